package gateway

// AccountType enumerates the account types known to the backend.
type AccountType string

const (
	AccountCash       AccountType = "cash"
	AccountCreditCard AccountType = "credit_card"
	AccountDebt       AccountType = "debt"
	AccountInvestment AccountType = "investment"
)

// TransactionEligible reports whether accounts of this type may be used
// as transaction targets. Investment accounts are excluded.
func (t AccountType) TransactionEligible() bool {
	switch t {
	case AccountCash, AccountCreditCard, AccountDebt:
		return true
	}
	return false
}

// CategoryType enumerates category kinds.
type CategoryType string

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
)

// ResolvedUser is the backend's answer to resolving a Telegram user.
type ResolvedUser struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
	AuthToken       string `json:"auth_token"`
	DefaultCurrency string `json:"default_currency"`
}

// Account mirrors the backend account resource. Balance and credit limit
// are integer minor units.
type Account struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        AccountType `json:"type"`
	Balance     int64       `json:"balance"`
	Currency    string      `json:"currency"`
	IsActive    bool        `json:"is_active"`
	CreditLimit int64       `json:"credit_limit,omitempty"`
}

// Category mirrors the backend category resource. Nesting is a single
// level: ParentID, when set, always names a top-level category.
type Category struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        CategoryType `json:"type"`
	ParentID    *string      `json:"parent_id,omitempty"`
	Icon        string       `json:"icon,omitempty"`
	Description string       `json:"description,omitempty"`
}

// Budget mirrors the backend budget resource.
type Budget struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Period   string `json:"period"`
	IsActive bool   `json:"is_active"`
}

// BudgetProgress is fetched separately per budget and may fail
// independently of the budget list.
type BudgetProgress struct {
	Spent      int64   `json:"spent"`
	Remaining  int64   `json:"remaining"`
	Percentage float64 `json:"percentage"`
}

// MonthSummary is one row of the monthly income/expense report.
type MonthSummary struct {
	Month    string `json:"month"`
	Income   int64  `json:"income"`
	Expenses int64  `json:"expenses"`
}

// Transaction is the created transaction returned by the backend.
type Transaction struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id,omitempty"`
}

// TransactionRequest is the commit payload for creating a transaction.
type TransactionRequest struct {
	Type        string `json:"type"`
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id,omitempty"`
}

// CreateCategoryRequest is the payload for creating a category.
type CreateCategoryRequest struct {
	Name     string       `json:"name"`
	Type     CategoryType `json:"type"`
	Icon     string       `json:"icon,omitempty"`
	ParentID *string      `json:"parent_id,omitempty"`
}

// CompleteLinkRequest finishes linking a Telegram user to a backend user.
type CompleteLinkRequest struct {
	LinkCode          string `json:"link_code"`
	TelegramUserID    int64  `json:"telegram_user_id"`
	TelegramUsername  string `json:"telegram_username,omitempty"`
	TelegramFirstName string `json:"telegram_first_name,omitempty"`
	DefaultCurrency   string `json:"default_currency,omitempty"`
}
