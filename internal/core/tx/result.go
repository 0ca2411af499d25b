package tx

import "strings"

// Result is an engine result code as reported by the ledger, such as
// "tesSUCCESS" or "tecNO_LINE".
type Result string

const (
	TesSUCCESS              Result = "tesSUCCESS"
	TecCLAIM                Result = "tecCLAIM"
	TecPATH_PARTIAL         Result = "tecPATH_PARTIAL"
	TecPATH_DRY             Result = "tecPATH_DRY"
	TecUNFUNDED_OFFER       Result = "tecUNFUNDED_OFFER"
	TecUNFUNDED_PAYMENT     Result = "tecUNFUNDED_PAYMENT"
	TecINSUF_RESERVE_LINE   Result = "tecINSUF_RESERVE_LINE"
	TecINSUF_RESERVE_OFFER  Result = "tecINSUF_RESERVE_OFFER"
	TecINSUFFICIENT_RESERVE Result = "tecINSUFFICIENT_RESERVE"
	TecNO_DST               Result = "tecNO_DST"
	TecNO_DST_INSUF_XRP     Result = "tecNO_DST_INSUF_XRP"
	TecNO_LINE              Result = "tecNO_LINE"
	TecNO_LINE_REDUNDANT    Result = "tecNO_LINE_REDUNDANT"
	TecNO_ISSUER            Result = "tecNO_ISSUER"
	TecNO_AUTH              Result = "tecNO_AUTH"
	TecNO_PERMISSION        Result = "tecNO_PERMISSION"
	TecFROZEN               Result = "tecFROZEN"
	TecDST_TAG_NEEDED       Result = "tecDST_TAG_NEEDED"
	TecEXPIRED              Result = "tecEXPIRED"
	TecKILLED               Result = "tecKILLED"
	TecNO_ENTRY             Result = "tecNO_ENTRY"
	TefBAD_SIGNATURE        Result = "tefBAD_SIGNATURE"
	TefPAST_SEQ             Result = "tefPAST_SEQ"
	TefMAX_LEDGER           Result = "tefMAX_LEDGER"
	TelINSUF_FEE_P          Result = "telINSUF_FEE_P"
	TemBAD_AMOUNT           Result = "temBAD_AMOUNT"
	TemBAD_CURRENCY         Result = "temBAD_CURRENCY"
	TemBAD_EXPIRATION       Result = "temBAD_EXPIRATION"
	TemBAD_FEE              Result = "temBAD_FEE"
	TemBAD_OFFER            Result = "temBAD_OFFER"
	TemDST_IS_SRC           Result = "temDST_IS_SRC"
	TemINVALID_FLAG         Result = "temINVALID_FLAG"
	TemMALFORMED            Result = "temMALFORMED"
	TemREDUNDANT            Result = "temREDUNDANT"
	TerINSUF_FEE_B          Result = "terINSUF_FEE_B"
	TerNO_ACCOUNT           Result = "terNO_ACCOUNT"
	TerNO_AUTH              Result = "terNO_AUTH"
	TerNO_LINE              Result = "terNO_LINE"
	TerPRE_SEQ              Result = "terPRE_SEQ"
	TerQUEUED               Result = "terQUEUED"
)

var resultMessages = map[Result]string{
	TesSUCCESS:              "The transaction was applied.",
	TecCLAIM:                "Fee claimed. No action taken.",
	TecPATH_PARTIAL:         "Path could not send full amount.",
	TecPATH_DRY:             "Path could not send partial amount: no path found.",
	TecUNFUNDED_OFFER:       "Insufficient balance to fund created offer.",
	TecUNFUNDED_PAYMENT:     "Insufficient balance to send.",
	TecINSUF_RESERVE_LINE:   "Insufficient reserve to add trust line.",
	TecINSUF_RESERVE_OFFER:  "Insufficient reserve to create offer.",
	TecINSUFFICIENT_RESERVE: "Insufficient reserve to complete requested operation.",
	TecNO_DST:               "Destination account does not exist.",
	TecNO_DST_INSUF_XRP:     "Destination account does not exist. Too little XRP sent to create it.",
	TecNO_LINE:              "No trust line for this currency.",
	TecNO_LINE_REDUNDANT:    "Can't set non-existent trust line to default.",
	TecNO_ISSUER:            "Issuer account does not exist.",
	TecNO_AUTH:              "Not authorized to hold this currency.",
	TecNO_PERMISSION:        "No permission to perform requested operation.",
	TecFROZEN:               "Trust line is frozen.",
	TecDST_TAG_NEEDED:       "A destination tag is required.",
	TecEXPIRED:              "Expiration time is passed.",
	TecKILLED:               "Fill-or-kill offer was not fully filled.",
	TecNO_ENTRY:             "No matching ledger entry found.",
	TefBAD_SIGNATURE:        "Invalid signature.",
	TefPAST_SEQ:             "Sequence number has already passed.",
	TefMAX_LEDGER:           "Transaction expired before it could be validated.",
	TelINSUF_FEE_P:          "Fee insufficient for current server load.",
	TemBAD_AMOUNT:           "Can only send positive amounts.",
	TemBAD_CURRENCY:         "Malformed: bad currency.",
	TemBAD_EXPIRATION:       "Malformed: bad expiration.",
	TemBAD_FEE:              "Invalid fee, negative or not XRP.",
	TemBAD_OFFER:            "Malformed: bad offer.",
	TemDST_IS_SRC:           "Destination may not be source.",
	TemINVALID_FLAG:         "Invalid flags.",
	TemMALFORMED:            "Malformed transaction.",
	TemREDUNDANT:            "Transaction sends to self.",
	TerINSUF_FEE_B:          "Account balance can't pay fee.",
	TerNO_ACCOUNT:           "The source account does not exist.",
	TerNO_AUTH:              "Not authorized to hold this currency.",
	TerNO_LINE:              "No trust line for this currency.",
	TerPRE_SEQ:              "Missing/inapplicable prior transaction.",
	TerQUEUED:               "Held until escalated fee drops.",
}

func (r Result) String() string {
	return string(r)
}

// IsSuccess reports whether the transaction fully succeeded. tesSUCCESS is
// the only success code; tec results are applied but failed.
func (r Result) IsSuccess() bool {
	return r == TesSUCCESS
}

func (r Result) IsTec() bool { return strings.HasPrefix(string(r), "tec") }
func (r Result) IsTef() bool { return strings.HasPrefix(string(r), "tef") }
func (r Result) IsTel() bool { return strings.HasPrefix(string(r), "tel") }
func (r Result) IsTem() bool { return strings.HasPrefix(string(r), "tem") }
func (r Result) IsTer() bool { return strings.HasPrefix(string(r), "ter") }

// IsApplied reports whether the transaction was included in a ledger and
// charged a fee.
func (r Result) IsApplied() bool {
	return r.IsSuccess() || r.IsTec()
}

// IsFinalLocally reports whether a preliminary result already rules out
// inclusion. tem, tef and tel transactions are not relayed.
func (r Result) IsFinalLocally() bool {
	return r.IsTem() || r.IsTef() || r.IsTel()
}

// Message returns a human-readable message for the result.
func (r Result) Message() string {
	if msg, ok := resultMessages[r]; ok {
		return msg
	}
	return "transaction result: " + string(r)
}
