package gateway

import "context"

// API is the bot-principal capability surface, authenticated with the
// shared internal secret.
type API interface {
	// Resolve maps a Telegram user to a backend user. Returns ErrNotLinked
	// when no link exists.
	Resolve(ctx context.Context, telegramUserID int64) (*ResolvedUser, error)
	// RecordActivity is fire-and-forget; callers log the error and move on.
	RecordActivity(ctx context.Context, telegramUserID int64) error
	// CompleteLink finishes the linking flow. Returns ErrLinkCodeInvalid
	// for a rejected code.
	CompleteLink(ctx context.Context, req CompleteLinkRequest) error
	// ForUser returns a user-principal client for the given auth token.
	ForUser(token string) UserAPI
}

// UserAPI is the user-principal capability surface, authenticated with a
// per-user bearer token obtained from Resolve.
type UserAPI interface {
	Accounts(ctx context.Context) ([]Account, error)
	Categories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error)
	CreateCashAccount(ctx context.Context, name, currency string) (*Account, error)
	CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error)
	Budgets(ctx context.Context) ([]Budget, error)
	BudgetProgress(ctx context.Context, budgetID string) (*BudgetProgress, error)
	MonthlySummary(ctx context.Context, months int) ([]MonthSummary, error)
}
