package schema

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"GBP": "£",
	"USD": "$",
	"EUR": "€",
	"JPY": "¥",
}

// FormatValue renders a range value for display. With a currency hint the
// value gets two fraction digits and the currency symbol (or code when no
// symbol is known); otherwise the shortest exact representation is used.
func (c *RangeContent) FormatValue(v float64) string {
	d := decimal.NewFromFloat(v)
	code := strings.ToUpper(strings.TrimSpace(c.Currency))
	if code == "" {
		return d.String()
	}
	amount := d.StringFixed(2)
	if symbol, ok := currencySymbols[code]; ok {
		if d.IsNegative() {
			return "-" + symbol + d.Abs().StringFixed(2)
		}
		return symbol + amount
	}
	return code + " " + amount
}

// Labels reports whether value labels should be shown. Defaults to true.
func (c *RangeContent) Labels() bool {
	return c.ShowLabels == nil || *c.ShowLabels
}

// OnStep reports whether v sits on the step grid anchored at Min. Decimal
// arithmetic keeps steps such as 0.1 exact.
func (c *RangeContent) OnStep(v float64) bool {
	step := decimal.NewFromFloat(c.StepOrDefault())
	offset := decimal.NewFromFloat(v).Sub(decimal.NewFromFloat(c.Min))
	return offset.Mod(step).IsZero()
}

// Contains reports whether v lies within [Min, Max].
func (c *RangeContent) Contains(v float64) bool {
	return v >= c.Min && v <= c.Max
}
