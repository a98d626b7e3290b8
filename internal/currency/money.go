package currency

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/chequepro/depositslip/internal/domain"
)

// DefaultLabel is the currency printed next to amounts when none is configured.
const DefaultLabel = "LKR"

// maxIntDigits is the number of integer digits in MaxAmount.
const maxIntDigits = 15

var (
	hundred = decimal.NewFromInt(100)

	// MaxAmount is the largest amount a cheque or slip line may carry. Six
	// lines of it still total well inside int64 rupees.
	MaxAmount = decimal.RequireFromString("999999999999999.99")

	// numericPrefix matches the leading number of a string the way a lenient
	// float parser does ("12.5abc" -> "12.5").
	numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE]([+-]?)(\d+))?`)
)

// Split breaks a non-negative amount into its integer rupees and two-digit
// cents. Cents that round up to 100 carry into rupees, so 99.995 splits into
// 100 rupees and 0 cents. Rupees must fit in an int64; amounts that passed
// CheckAmount always do, even summed over a full slip.
func Split(amount decimal.Decimal) (rupees, cents int64) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	whole := amount.Floor()
	frac := amount.Sub(whole).Mul(hundred).Round(0)
	if frac.GreaterThanOrEqual(hundred) {
		whole = whole.Add(decimal.NewFromInt(1))
		frac = frac.Sub(hundred)
	}
	return whole.IntPart(), frac.IntPart()
}

// ParseAmount reads a user-typed amount. Anything that does not start with a
// number, and any negative value, becomes zero. The only error is
// domain.ErrAmountTooLarge for values above MaxAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	m := numericPrefix.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return decimal.Zero, nil
	}
	// Exponents this long are out of range either way; decide before parsing.
	if len(strings.TrimLeft(m[4], "0")) > 9 {
		if m[3] == "-" || strings.HasPrefix(m[0], "-") {
			return decimal.Zero, nil
		}
		return decimal.Zero, domain.ErrAmountTooLarge
	}
	d, err := decimal.NewFromString(m[0])
	if err != nil || d.IsNegative() {
		return decimal.Zero, nil
	}
	return CheckAmount(d)
}

// CheckAmount returns domain.ErrAmountTooLarge for amounts above MaxAmount.
// Positive amounts below a tenth of a cent come back as zero. The size is
// judged from digit counts first, so huge exponents are never expanded.
func CheckAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if d.Sign() == 0 {
		return d, nil
	}
	coef := new(big.Int).Abs(d.Coefficient())
	intDigits := int64(len(coef.String())) + int64(d.Exponent())
	switch {
	case intDigits > maxIntDigits:
		return decimal.Zero, domain.ErrAmountTooLarge
	case intDigits < -2:
		return decimal.Zero, nil
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return decimal.Zero, domain.ErrAmountTooLarge
	}
	return d, nil
}

// Fixed2 renders the amount with exactly two decimals and parses it back.
// Amounts copied from stored cheques into slip lines always pass through this
// round trip.
func Fixed2(amount decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(amount.StringFixed(2))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders an amount as "<label> 1,234.50".
func Format(amount decimal.Decimal, label string) string {
	if label == "" {
		label = DefaultLabel
	}
	rupees, cents := Split(amount.Abs())
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%s %s%s.%02d", label, sign, humanize.Comma(rupees), cents)
}
