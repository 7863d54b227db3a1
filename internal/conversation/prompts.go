package conversation

import (
	"fmt"
	"strings"

	"github.com/zihangg/kuberan-bot/internal/format"
	"github.com/zihangg/kuberan-bot/internal/session"
)

const (
	msgNotLinked = "Your Telegram account isn't linked yet.\nGet a link code from the web app and send /link <code>."
	msgBackend   = "Something went wrong talking to the server. Please try again in a moment."
	msgNoAccount = "You have no accounts that can hold transactions.\nCreate a cash or credit card account in the web app first."
	msgExpired   = "This session has expired. Start again with /expense or /income."
	msgCancelled = "Cancelled."

	msgAmountPrompt  = "How much? Send an amount, e.g. `12.50 lunch`."
	msgAmountInvalid = "I couldn't read that amount. Send a number first, e.g. `12.50 lunch`."

	msgCategoryPrompt = "Pick a category:"
	msgAccountPrompt  = "Pick an account:"
	msgCurrencyPrompt = "Pick a currency:"

	msgNewCategoryName   = "Send a name for the new category:"
	msgNewCategoryParent = "Pick a parent, or keep it top-level:"
	msgNewCategoryIcon   = "Send an emoji icon for it, or skip:"
	msgNewAccountName    = "Send a name for the new cash account:"
	msgCurrencyCode      = "Send a 3-letter currency code, e.g. `JPY`:"
	msgCurrencyInvalid   = "That doesn't look like a currency code. Send 3 letters, e.g. `JPY`."

	msgLinkUsage       = "Usage: /link <code>\nGet your link code from the web app settings."
	msgLinkInvalidCode = "That link code is invalid or has expired. Generate a fresh one in the web app and try again."
	msgLinkDone        = "✅ Account linked!\nTry `/expense 12.50 lunch` to record your first expense."
)

// flowTitle renders the flow kind for display, e.g. "Expense".
func flowTitle(kind session.FlowKind) string {
	return format.Title(string(kind))
}

// confirmCard renders the confirmation card. Guided and quick entry
// converge here: the card depends only on the accumulated memory.
func confirmCard(kind session.FlowKind, m *session.TxnMemory) string {
	desc := m.Description
	if desc == "" {
		desc = flowTitle(kind)
	}
	category := "—"
	if m.CategoryID != nil {
		category = m.CategoryName
		if m.CategoryIcon != "" {
			category = m.CategoryIcon + " " + m.CategoryName
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s: %s*\n", flowTitle(kind), format.Currency(m.AmountMinor, m.Currency))
	b.WriteString(desc)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Category: %s\n", category)
	fmt.Fprintf(&b, "Account: %s\n", m.AccountName)
	fmt.Fprintf(&b, "Currency: %s", m.Currency)
	return b.String()
}

// successCard renders the post-commit card that replaces the
// confirmation prompt.
func successCard(kind session.FlowKind, m *session.TxnMemory) string {
	desc := m.Description
	if desc == "" {
		desc = flowTitle(kind)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s Recorded* ✅\n", flowTitle(kind))
	fmt.Fprintf(&b, "%s — %s\n", format.Currency(m.AmountMinor, m.Currency), desc)
	fmt.Fprintf(&b, "Account: %s", m.AccountName)
	return b.String()
}

// commitFailedCard appends a retry note to the confirmation card.
func commitFailedCard(kind session.FlowKind, m *session.TxnMemory) string {
	return confirmCard(kind, m) + "\n\n⚠️ Saving failed. Tap Confirm to retry, or Cancel."
}

func linkWelcome(firstName string) string {
	name := firstName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s! One last step: pick your default currency.", name)
}
