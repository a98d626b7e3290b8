package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	units  = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}
	teens  = []string{"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tens   = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
	scales = []string{"", "Thousand", "Million", "Billion", "Trillion", "Quadrillion", "Quintillion"}
)

// Words spells out the integer part of amount in English, e.g.
// 1206250 -> "One Million Two Hundred Six Thousand Two Hundred Fifty".
func Words(amount decimal.Decimal) string {
	n := amount.Floor().IntPart()
	if n <= 0 {
		return "Zero"
	}

	var groups []string
	for i := 0; n > 0; i++ {
		if chunk := n % 1000; chunk != 0 {
			g := hundreds(int(chunk))
			if scales[i] != "" {
				g = append(g, scales[i])
			}
			groups = append([]string{strings.Join(g, " ")}, groups...)
		}
		n /= 1000
	}
	return strings.Join(groups, " ")
}

// AmountWords is the text stored on a cheque record.
func AmountWords(amount decimal.Decimal) string {
	return Words(amount) + " Only"
}

func hundreds(n int) []string {
	var out []string
	if n >= 100 {
		out = append(out, units[n/100], "Hundred")
		n %= 100
	}
	switch {
	case n >= 20:
		out = append(out, tens[n/10])
		n %= 10
	case n >= 10:
		out = append(out, teens[n-10])
		n = 0
	}
	if n > 0 {
		out = append(out, units[n])
	}
	return out
}
