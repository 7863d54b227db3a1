// Package choices builds the inline choice lists presented during
// guided flows: hierarchically ordered, paginated category pickers and
// account pickers, plus the fixed confirm/currency keyboards.
package choices

import (
	"strconv"

	"github.com/zihangg/kuberan-bot/internal/gateway"
	"github.com/zihangg/kuberan-bot/internal/outbound"
)

// Callback payload namespaces and values. These strings are the wire
// protocol carried inside button payloads and must round-trip exactly.
const (
	NSCategory = "cat"
	NSAccount  = "acc"
	NSCurrency = "ccy"
	NSParent   = "ncp"
	NSIcon     = "nci"
	NSConfirm  = "txn"
	NSLink     = "cur"

	ValueNew   = "new"
	ValueNone  = "none"
	ValueBack  = "back"
	ValueOther = "other"
	ValueSkip  = "skip"

	ConfirmCommit         = "confirm"
	ConfirmCancel         = "cancel"
	ConfirmChangeCategory = "chg_cat"
	ConfirmChangeAccount  = "chg_acc"
	ConfirmChangeCurrency = "chg_ccy"
)

const (
	// CategoryPageSize is the number of category choices per page.
	CategoryPageSize = 9
	categoriesPerRow = 3
	accountsPerRow   = 2
)

// OrderCategories returns a stable two-level ordering: parents in fetch
// order, each immediately followed by its children in fetch order.
// Categories whose parent is absent from the set are appended at the
// end, deduplicated against already-emitted ids.
func OrderCategories(categories []gateway.Category) []gateway.Category {
	children := make(map[string][]gateway.Category)
	for _, c := range categories {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	ordered := make([]gateway.Category, 0, len(categories))
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.ParentID != nil {
			continue
		}
		ordered = append(ordered, c)
		seen[c.ID] = true
		for _, child := range children[c.ID] {
			ordered = append(ordered, child)
			seen[child.ID] = true
		}
	}

	// Orphans keep their original relative order.
	for _, c := range categories {
		if !seen[c.ID] {
			ordered = append(ordered, c)
			seen[c.ID] = true
		}
	}
	return ordered
}

// CategoryLabel renders a category button label with its icon, or an
// indent marking it as a subcategory.
func CategoryLabel(c gateway.Category) string {
	if c.Icon != "" {
		return c.Icon + " " + c.Name
	}
	if c.ParentID != nil {
		return "  " + c.Name
	}
	return c.Name
}

// CategoryKeyboard builds page `page` of the category picker. Navigation
// buttons appear only when the corresponding page exists; the trailing
// row always offers "+ New" and "Skip".
func CategoryKeyboard(categories []gateway.Category, page int) [][]outbound.Button {
	ordered := OrderCategories(categories)

	start := page * CategoryPageSize
	if start > len(ordered) {
		start = len(ordered)
	}
	end := start + CategoryPageSize
	if end > len(ordered) {
		end = len(ordered)
	}

	var buttons []outbound.Button
	for _, c := range ordered[start:end] {
		buttons = append(buttons, outbound.Button{
			Text: CategoryLabel(c),
			Data: NSCategory + ":" + c.ID,
		})
	}
	rows := chunk(buttons, categoriesPerRow)

	var nav []outbound.Button
	if page > 0 {
		nav = append(nav, outbound.Button{
			Text: "< Prev",
			Data: NSCategory + ":page:" + strconv.Itoa(page-1),
		})
	}
	if start+CategoryPageSize < len(ordered) {
		nav = append(nav, outbound.Button{
			Text: "Next >",
			Data: NSCategory + ":page:" + strconv.Itoa(page+1),
		})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, []outbound.Button{
		{Text: "+ New", Data: NSCategory + ":" + ValueNew},
		{Text: "Skip", Data: NSCategory + ":" + ValueNone},
	})
	return rows
}

// EligibleAccounts filters accounts down to valid transaction targets.
func EligibleAccounts(accounts []gateway.Account) []gateway.Account {
	var eligible []gateway.Account
	for _, a := range accounts {
		if a.Type.TransactionEligible() {
			eligible = append(eligible, a)
		}
	}
	return eligible
}

// DefaultAccount picks the first active eligible account, falling back
// to the first eligible account regardless of active flag. Returns nil
// when no eligible account exists.
func DefaultAccount(accounts []gateway.Account) *gateway.Account {
	eligible := EligibleAccounts(accounts)
	for i := range eligible {
		if eligible[i].IsActive {
			return &eligible[i]
		}
	}
	if len(eligible) > 0 {
		return &eligible[0]
	}
	return nil
}

// AccountKeyboard builds the account picker from eligible accounts, two
// per row, with fixed "+ New" and "Back" actions.
func AccountKeyboard(accounts []gateway.Account) [][]outbound.Button {
	var buttons []outbound.Button
	for _, a := range EligibleAccounts(accounts) {
		buttons = append(buttons, outbound.Button{
			Text: a.Name,
			Data: NSAccount + ":" + a.ID,
		})
	}
	rows := chunk(buttons, accountsPerRow)
	rows = append(rows, []outbound.Button{
		{Text: "+ New", Data: NSAccount + ":" + ValueNew},
		{Text: "Back", Data: NSAccount + ":" + ValueBack},
	})
	return rows
}

// ParentKeyboard offers the top-level categories of the given type as
// parent choices for a new category, plus a top-level option.
func ParentKeyboard(categories []gateway.Category, typ gateway.CategoryType) [][]outbound.Button {
	var buttons []outbound.Button
	for _, c := range categories {
		if c.ParentID != nil || c.Type != typ {
			continue
		}
		label := c.Name
		if c.Icon != "" {
			label = c.Icon + " " + c.Name
		}
		buttons = append(buttons, outbound.Button{
			Text: label,
			Data: NSParent + ":" + c.ID,
		})
	}
	rows := chunk(buttons, accountsPerRow)
	rows = append(rows, []outbound.Button{
		{Text: "Top-level (no parent)", Data: NSParent + ":" + ValueNone},
	})
	return rows
}

// IconKeyboard is the skip-only keyboard of the new-category icon step.
func IconKeyboard() [][]outbound.Button {
	return [][]outbound.Button{
		{{Text: "Skip", Data: NSIcon + ":" + ValueSkip}},
	}
}

// ConfirmKeyboard is the fixed confirmation card keyboard.
func ConfirmKeyboard() [][]outbound.Button {
	return [][]outbound.Button{
		{
			{Text: "Change Category", Data: NSConfirm + ":" + ConfirmChangeCategory},
			{Text: "Change Account", Data: NSConfirm + ":" + ConfirmChangeAccount},
		},
		{{Text: "Change Currency", Data: NSConfirm + ":" + ConfirmChangeCurrency}},
		{{Text: "Confirm", Data: NSConfirm + ":" + ConfirmCommit}},
		{{Text: "Cancel", Data: NSConfirm + ":" + ConfirmCancel}},
	}
}

// CurrencyKeyboard is the transaction-flow currency picker.
func CurrencyKeyboard(defaultCurrency string) [][]outbound.Button {
	return [][]outbound.Button{
		{
			{Text: "🇲🇾 " + defaultCurrency + " (Default)", Data: NSCurrency + ":" + defaultCurrency},
			{Text: "Other", Data: NSCurrency + ":" + ValueOther},
		},
		{{Text: "Back", Data: NSCurrency + ":" + ValueBack}},
	}
}

// LinkCurrencyKeyboard is the linking-flow currency picker. It uses its
// own namespace so link and transaction currency prompts cannot
// cross-route.
func LinkCurrencyKeyboard(defaultCurrency string) [][]outbound.Button {
	return [][]outbound.Button{
		{
			{Text: "🇲🇾 " + defaultCurrency + " (Default)", Data: NSLink + ":" + defaultCurrency},
			{Text: "Other", Data: NSLink + ":" + ValueOther},
		},
	}
}

func chunk(buttons []outbound.Button, perRow int) [][]outbound.Button {
	var rows [][]outbound.Button
	for i := 0; i < len(buttons); i += perRow {
		end := i + perRow
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return rows
}
