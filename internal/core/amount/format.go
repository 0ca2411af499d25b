package amount

import (
	"strings"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

const (
	minFractionDigits = 2
	maxFractionDigits = 6
)

// currency decoration accepted by ParseFormatted, longest first
var currencyTokens = []string{"RLUSD", "USD", "XRP", "$"}

// Format renders a display amount with comma grouping and between two and
// six fractional digits, independent of the process locale.
// "1234567.5" -> "1,234,567.50".
func Format(display string) (string, error) {
	d, err := parseDisplay(display)
	if err != nil {
		return "", err
	}
	rounded := d.Round(maxFractionDigits)

	digits := 0
	if s := rounded.String(); strings.Contains(s, ".") {
		digits = len(s) - strings.Index(s, ".") - 1
	}
	if digits < minFractionDigits {
		digits = minFractionDigits
	}

	fixed := rounded.StringFixed(int32(digits))
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	return sign + groupThousands(intPart) + "." + fracPart, nil
}

// ParseFormatted strips grouping separators and currency decoration from
// text and returns the remaining decimal amount in canonical form.
func ParseFormatted(text string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.NewReplacer(",", "", "_", "", " ", "", " ", "").Replace(s)
	if s == "" {
		return "", ledgererr.New(ledgererr.KindInvalidAmount, "no amount in %q", text)
	}
	d, err := parseDisplay(s)
	if err != nil {
		return "", ledgererr.Wrap(ledgererr.KindInvalidAmount, err, "not a finite decimal number: %q", text)
	}
	return d.String(), nil
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
