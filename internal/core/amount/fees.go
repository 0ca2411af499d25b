package amount

// Fees holds the network fee schedule reported by a server.
type Fees struct {
	Base      XRPAmount
	Reserve   XRPAmount
	Increment XRPAmount
}

// AccountReserve is the XRP an account must hold given its owner count.
func (f Fees) AccountReserve(ownerCount int64) XRPAmount {
	return f.Reserve + f.Increment.Mul(ownerCount)
}

// Spendable is the part of balance above the account reserve, never negative.
func (f Fees) Spendable(balance XRPAmount, ownerCount int64) XRPAmount {
	free := balance.Sub(f.AccountReserve(ownerCount))
	if free < 0 {
		return 0
	}
	return free
}
