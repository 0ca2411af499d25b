package amount

import "github.com/shopspring/decimal"

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
func Compare(a, b string) (int, error) {
	da, err := parseDisplay(a)
	if err != nil {
		return 0, err
	}
	db, err := parseDisplay(b)
	if err != nil {
		return 0, err
	}
	return da.Cmp(db), nil
}

// Add sums display amounts exactly. No arguments yields "0".
func Add(amounts ...string) (string, error) {
	sum := decimal.Zero
	for _, a := range amounts {
		d, err := parseDisplay(a)
		if err != nil {
			return "", err
		}
		sum = sum.Add(d)
	}
	return sum.String(), nil
}

// Subtract returns a - b exactly.
func Subtract(a, b string) (string, error) {
	da, err := parseDisplay(a)
	if err != nil {
		return "", err
	}
	db, err := parseDisplay(b)
	if err != nil {
		return "", err
	}
	return da.Sub(db).String(), nil
}

// IsZero reports whether the display amount is zero. Unparseable input is
// treated as non-zero so it is not silently skipped.
func IsZero(a string) bool {
	d, err := parseDisplay(a)
	return err == nil && d.IsZero()
}

// Normalize parses a display amount and returns its canonical form.
func Normalize(display string) (string, error) {
	d, err := parseDisplay(display)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// Sign returns -1, 0 or 1 for a negative, zero or positive display amount.
func Sign(display string) (int, error) {
	d, err := parseDisplay(display)
	if err != nil {
		return 0, err
	}
	return d.Sign(), nil
}
