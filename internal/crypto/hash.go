// Package crypto holds the hashing used to identify signed ledger
// transactions.
package crypto

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
)

// txnPrefix is "TXN\x00", the hash prefix of a signed transaction.
var txnPrefix = []byte{0x54, 0x58, 0x4E, 0x00}

// Returns the first 32 bytes of a sha512 hash of a message
func Sha512Half(msg []byte) [32]byte {
	h := sha512.Sum512(msg)
	var result [32]byte
	copy(result[:], h[:32])
	return result
}

// TxHash returns the upper-case hex identifier of a signed transaction
// blob.
func TxHash(txBlobHex string) (string, error) {
	txBytes, err := hex.DecodeString(txBlobHex)
	if err != nil {
		return "", fmt.Errorf("decoding tx blob: %w", err)
	}
	data := make([]byte, 0, len(txnPrefix)+len(txBytes))
	data = append(data, txnPrefix...)
	data = append(data, txBytes...)
	hash := Sha512Half(data)
	return strings.ToUpper(hex.EncodeToString(hash[:])), nil
}
