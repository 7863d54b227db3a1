// Package session holds the ephemeral per-conversation working memory
// and the store that owns it.
package session

import (
	"time"

	"github.com/zihangg/kuberan-bot/internal/gateway"
	"github.com/zihangg/kuberan-bot/internal/outbound"
)

// FlowKind identifies one guided interaction.
type FlowKind string

const (
	FlowExpense FlowKind = "expense"
	FlowIncome  FlowKind = "income"
	FlowLink    FlowKind = "link"
)

// Family groups flows that share a session slot. At most one live
// session exists per (chat, user, family).
type Family int

const (
	FamilyTransaction Family = iota
	FamilyLink
)

// Family returns the session family of the flow.
func (f FlowKind) Family() Family {
	if f == FlowLink {
		return FamilyLink
	}
	return FamilyTransaction
}

// State identifies a conversation step.
type State string

const (
	StateAwaitingAmount   State = "awaiting_amount"
	StateAwaitingCategory State = "awaiting_category"
	StateAwaitingAccount  State = "awaiting_account"
	StateConfirm          State = "confirm"
	StateNewCategoryName  State = "new_category_name"
	StateNewCategoryParent State = "new_category_parent"
	StateNewCategoryIcon  State = "new_category_icon"
	StateNewAccountName   State = "new_account_name"
	StateCurrencyChoice   State = "currency_choice"
	StateNewCurrencyCode  State = "new_currency_code"

	StateLinkCurrencyChoice State = "link_currency_choice"
	StateLinkCustomCurrency State = "link_custom_currency"
)

// Key identifies a conversation owner.
type Key struct {
	ChatID int64
	UserID int64
}

// CategoryDraft carries the in-progress creation of a new category. The
// icon arrives in the final step and is passed straight to the commit.
type CategoryDraft struct {
	Name     string
	ParentID *string
}

// TxnMemory is the working memory of an expense or income flow.
type TxnMemory struct {
	Token string

	// Copy-on-fetch caches, owned exclusively by this session.
	Accounts   []gateway.Account
	Categories []gateway.Category

	AccountID   string
	AccountName string

	CategoryID   *string
	CategoryName string
	CategoryIcon string

	AmountMinor int64
	Description string
	Currency    string

	Draft *CategoryDraft

	// Prompt is the handle of the last sent prompt, used to edit in
	// place instead of resending.
	Prompt outbound.MessageRef
}

// LinkMemory is the working memory of the account linking flow.
type LinkMemory struct {
	LinkCode  string
	Username  string
	FirstName string

	// Prompt is the handle of the currency prompt, edited in place so
	// its keyboard retires with the flow.
	Prompt outbound.MessageRef
}

// Session is one live conversation. It is only ever touched under the
// store's per-key exclusivity guarantee.
type Session struct {
	Key   Key
	Flow  FlowKind
	State State

	Txn  *TxnMemory
	Link *LinkMemory

	LastActive time.Time

	ended bool
}

// End marks the session for removal when the current handler returns.
func (s *Session) End() { s.ended = true }

// Ended reports whether End was called.
func (s *Session) Ended() bool { return s.ended }
