// Package match implements the free-text interpretation used by the
// transaction flows: amount parsing and trailing-token entity matching.
package match

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zihangg/kuberan-bot/internal/gateway"
)

// amountRe captures a leading decimal number with at most two fraction
// digits; everything after it is the candidate description.
var amountRe = regexp.MustCompile(`^(\d+(?:\.\d{1,2})?)\s*(.*)$`)

// ParseAmount extracts a leading amount from text and returns it as
// integer minor units together with the trimmed remainder. ok is false
// when the text does not start with a number.
//
// The decimal-to-minor-units conversion is the single tolerated
// floating-point-adjacent step; with fraction digits capped at two the
// result is exact.
func ParseAmount(text string) (minor int64, description string, ok bool) {
	m := amountRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, "", false
	}
	value, err := decimal.NewFromString(m[1])
	if err != nil {
		return 0, "", false
	}
	minor = value.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return minor, strings.TrimSpace(m[2]), true
}

// Entities extracts trailing account and category names from text.
// Tokens are inspected right to left: the last token is compared against
// account names, then the (possibly new) last token against category
// names. Matching is exact, case-insensitive, whole-token only; at most
// one account and one category are consumed. The returned description is
// the remaining text.
func Entities(text string, accounts []gateway.Account, categories []gateway.Category) (description string, account *gateway.Account, category *gateway.Category) {
	words := strings.Fields(text)

	if len(words) > 0 {
		last := words[len(words)-1]
		for i := range accounts {
			if strings.EqualFold(accounts[i].Name, last) {
				account = &accounts[i]
				words = words[:len(words)-1]
				break
			}
		}
	}

	if len(words) > 0 {
		last := words[len(words)-1]
		for i := range categories {
			if strings.EqualFold(categories[i].Name, last) {
				category = &categories[i]
				words = words[:len(words)-1]
				break
			}
		}
	}

	return strings.Join(words, " "), account, category
}
