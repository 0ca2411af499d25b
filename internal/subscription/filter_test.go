package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

const (
	watched = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	other   = "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"
)

func transfer(from, to, amt string) Event {
	return Event{Type: EventAssetTransfer, From: from, To: to, Amount: amt}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"", DirectionAny},
		{"any", DirectionAny},
		{"transfer", DirectionAny},
		{"incoming", DirectionIncoming},
		{"transferTo", DirectionIncoming},
		{"outgoing", DirectionOutgoing},
		{"transferFrom", DirectionOutgoing},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

func TestFilterValidate(t *testing.T) {
	f := Filter{Kind: KindAccountTransfer, WatchAddress: watched}
	require.NoError(t, f.Validate())
	assert.Equal(t, DirectionAny, f.Direction)

	f = Filter{Kind: KindAccountTransfer, WatchAddress: "0x8292Bb45bf1Ee4d140127049757C2E0fF06317eD"}
	assert.ErrorIs(t, f.Validate(), ledgererr.ErrInvalidAddress)

	f = Filter{Kind: KindContractTransfer, WatchAddress: "0x8292Bb45bf1Ee4d140127049757C2E0fF06317eD", MinAmount: "10"}
	assert.NoError(t, f.Validate())

	f = Filter{Kind: KindContractTransfer, MinAmount: "-1"}
	assert.ErrorIs(t, f.Validate(), ledgererr.ErrInvalidAmount)

	f = Filter{Kind: "mempool"}
	assert.Error(t, f.Validate())
}

func TestFilterValidateNormalizesDirectionAlias(t *testing.T) {
	tests := []struct {
		alias    Direction
		want     Direction
		sender   bool
		receiver bool
	}{
		{"transferTo", DirectionIncoming, false, true},
		{"transferFrom", DirectionOutgoing, true, false},
		{"transfer", DirectionAny, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.alias), func(t *testing.T) {
			f := Filter{Kind: KindAccountTransfer, WatchAddress: watched, Direction: tt.alias}
			require.NoError(t, f.Validate())
			assert.Equal(t, tt.want, f.Direction)
			assert.Equal(t, tt.sender, f.Match(transfer(watched, other, "5")))
			assert.Equal(t, tt.receiver, f.Match(transfer(other, watched, "5")))
		})
	}
}

func TestFilterThreshold(t *testing.T) {
	f := Filter{Kind: KindAccountTransfer, MinAmount: "100"}

	assert.False(t, f.Match(transfer(other, watched, "99.999999")))
	assert.True(t, f.Match(transfer(other, watched, "100")))
	assert.True(t, f.Match(transfer(other, watched, "1000.5")))
	assert.False(t, f.Match(transfer(other, watched, "garbage")))
}

func TestFilterDirection(t *testing.T) {
	senderOnly := transfer(watched, other, "5")
	receiverOnly := transfer(other, watched, "5")
	unrelated := transfer(other, other, "5")

	tests := []struct {
		direction string
		event     Event
		want      bool
	}{
		{"transfer", senderOnly, true},
		{"transferFrom", senderOnly, true},
		{"transferTo", senderOnly, false},
		{"transfer", receiverOnly, true},
		{"transferFrom", receiverOnly, false},
		{"transferTo", receiverOnly, true},
		{"transfer", unrelated, false},
	}
	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			dir, err := ParseDirection(tt.direction)
			require.NoError(t, err)
			f := Filter{Kind: KindAccountTransfer, WatchAddress: watched, Direction: dir}
			assert.Equal(t, tt.want, f.Match(tt.event))
		})
	}
}

func TestFilterEVMAddressCase(t *testing.T) {
	f := Filter{Kind: KindContractTransfer, WatchAddress: "0xe101fb315a64cda9944e570a7bffafe60b994b1d", Direction: DirectionIncoming}
	ev := transfer("0x0000000000000000000000000000000000000001", "0xe101FB315a64cDa9944E570a7bFfaFE60b994b1D", "1")
	assert.True(t, f.Match(ev))
}

func TestFilterPassesLedgerEvents(t *testing.T) {
	f := Filter{Kind: KindLedger, MinAmount: "100", WatchAddress: watched}
	assert.True(t, f.Match(Event{Type: EventLedgerClosed}))
	assert.True(t, f.Match(Event{Type: EventBlockProduced}))
}
