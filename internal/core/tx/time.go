package tx

import "time"

// RippleEpoch is 2000-01-01T00:00:00Z, the zero of ledger timestamps.
var RippleEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ToRippleTime converts t to seconds since the Ripple epoch. Times before
// the epoch clamp to zero.
func ToRippleTime(t time.Time) uint32 {
	secs := t.Unix() - RippleEpoch.Unix()
	if secs < 0 {
		return 0
	}
	return uint32(secs)
}

// FromRippleTime converts ledger seconds back to wall time.
func FromRippleTime(secs uint32) time.Time {
	return RippleEpoch.Add(time.Duration(secs) * time.Second)
}
