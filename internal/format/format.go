// Package format renders currency amounts and related display strings.
package format

import (
	"fmt"
	"strings"

	"github.com/zihangg/kuberan-bot/internal/gateway"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"MYR": "RM",
}

// Currency renders integer minor units as a display amount, e.g.
// Currency(1050, "USD") -> "$10.50". Unknown codes fall back to a
// "CODE " prefix.
func Currency(minor int64, currency string) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}

	negative := minor < 0
	if negative {
		minor = -minor
	}
	whole := minor / 100
	cents := minor % 100

	out := symbol
	if negative {
		out += "-"
	}
	return out + groupThousands(whole) + fmt.Sprintf(".%02d", cents)
}

func groupThousands(n int64) string {
	digits := fmt.Sprintf("%d", n)
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

// AccountType renders an account type with its display emoji.
func AccountType(t gateway.AccountType) string {
	switch t {
	case gateway.AccountCash:
		return "💵 Cash"
	case gateway.AccountInvestment:
		return "📈 Investment"
	case gateway.AccountCreditCard:
		return "💳 Credit Card"
	}
	return Title(string(t))
}

// Percentage renders a percentage with one fraction digit.
func Percentage(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// Title upper-cases the first letter of each underscore- or
// space-separated word.
func Title(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
