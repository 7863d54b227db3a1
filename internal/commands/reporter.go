// Package commands implements the one-shot report commands: stateless
// read paths that render backend data into a single reply.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zihangg/kuberan-bot/internal/charts"
	"github.com/zihangg/kuberan-bot/internal/choices"
	"github.com/zihangg/kuberan-bot/internal/format"
	"github.com/zihangg/kuberan-bot/internal/gateway"
	"github.com/zihangg/kuberan-bot/internal/logger"
	"github.com/zihangg/kuberan-bot/internal/outbound"
)

const (
	msgNotLinked = "Your Telegram account isn't linked yet.\nGet a link code from the web app and send /link <code>."
	msgBackend   = "Something went wrong talking to the server. Please try again in a moment."
)

// Reporter serves the report commands. It is stateless; each call
// resolves the user and fetches fresh data.
type Reporter struct {
	gw   gateway.API
	send outbound.Sender
	log  *slog.Logger
	now  func() time.Time
}

// NewReporter builds a Reporter.
func NewReporter(gw gateway.API, send outbound.Sender) *Reporter {
	return &Reporter{
		gw:   gw,
		send: send,
		log:  logger.Component("commands"),
		now:  time.Now,
	}
}

func (r *Reporter) reply(ctx context.Context, chatID int64, text string) error {
	_, err := r.send.Send(ctx, chatID, outbound.Message{Text: text})
	return err
}

func (r *Reporter) replyMarkdown(ctx context.Context, chatID int64, text string) error {
	_, err := r.send.Send(ctx, chatID, outbound.Message{Text: text, Markdown: true})
	return err
}

// resolve maps the sender to a backend user, replying on failure. A nil
// user with a nil error means the reply was already sent.
func (r *Reporter) resolve(ctx context.Context, chatID, userID int64) (*gateway.ResolvedUser, error) {
	user, err := r.gw.Resolve(ctx, userID)
	if err == nil {
		go func() {
			if actErr := r.gw.RecordActivity(context.Background(), userID); actErr != nil {
				r.log.Debug("record activity failed", slog.Int64("user_id", userID), slog.Any("error", actErr))
			}
		}()
		return user, nil
	}
	msg := msgBackend
	if errors.Is(err, gateway.ErrNotLinked) {
		msg = msgNotLinked
	} else {
		r.log.Error("resolve failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return nil, r.reply(ctx, chatID, msg)
}

// Start greets the user and points them at linking, or confirms the
// existing link.
func (r *Reporter) Start(ctx context.Context, chatID, userID int64, firstName string) error {
	user, err := r.gw.Resolve(ctx, userID)
	if err == nil {
		text := fmt.Sprintf("You're linked as %s. Try /expense 12.50 lunch, or /help for everything I can do.", user.Email)
		return r.reply(ctx, chatID, text)
	}
	if !errors.Is(err, gateway.ErrNotLinked) {
		r.log.Error("resolve failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return r.reply(ctx, chatID, msgBackend)
	}

	name := firstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf(
		"Hi %s! 👋 I'm the Kuberan bot.\n\n"+
			"To get started, open the web app, generate a link code in settings, and send it to me:\n"+
			"/link <code>\n\n"+
			"Once linked you can record expenses and income right from this chat.",
		name,
	)
	return r.reply(ctx, chatID, text)
}

// Balance lists active accounts with balances and a per-currency total.
func (r *Reporter) Balance(ctx context.Context, chatID, userID int64) error {
	user, err := r.resolve(ctx, chatID, userID)
	if err != nil || user == nil {
		return err
	}
	accounts, err := r.gw.ForUser(user.AuthToken).Accounts(ctx)
	if err != nil {
		r.log.Error("fetch accounts failed", slog.Any("error", err))
		return r.reply(ctx, chatID, msgBackend)
	}

	var active []gateway.Account
	for _, a := range accounts {
		if a.IsActive {
			active = append(active, a)
		}
	}
	if len(active) == 0 {
		return r.reply(ctx, chatID, "You don't have any active accounts yet.\nCreate one in the web app to get started!")
	}

	var b strings.Builder
	b.WriteString("💰 *Your Accounts*\n\n")
	totals := make(map[string]int64)
	var order []string
	for _, a := range active {
		fmt.Fprintf(&b, "%s\n*%s*\nBalance: %s\n\n", format.AccountType(a.Type), a.Name, format.Currency(a.Balance, a.Currency))
		if _, seen := totals[a.Currency]; !seen {
			order = append(order, a.Currency)
		}
		totals[a.Currency] += a.Balance
	}
	b.WriteString("━━━━━━━━━━━━━━━━\n")
	for i, currency := range order {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "*Total:* %s", format.Currency(totals[currency], currency))
	}
	return r.replyMarkdown(ctx, chatID, b.String())
}

// Accounts lists every account, including inactive ones.
func (r *Reporter) Accounts(ctx context.Context, chatID, userID int64) error {
	user, err := r.resolve(ctx, chatID, userID)
	if err != nil || user == nil {
		return err
	}
	accounts, err := r.gw.ForUser(user.AuthToken).Accounts(ctx)
	if err != nil {
		r.log.Error("fetch accounts failed", slog.Any("error", err))
		return r.reply(ctx, chatID, msgBackend)
	}
	if len(accounts) == 0 {
		return r.reply(ctx, chatID, "You don't have any accounts yet.\nCreate one in the web app to get started!")
	}

	var b strings.Builder
	b.WriteString("🏦 *All Accounts*\n\n")
	for _, a := range accounts {
		status := "✅"
		if !a.IsActive {
			status = "🔒"
		}
		fmt.Fprintf(&b, "%s %s\n*%s*\nBalance: %s\n", status, format.AccountType(a.Type), a.Name, format.Currency(a.Balance, a.Currency))
		if a.Type == gateway.AccountCreditCard && a.CreditLimit != 0 {
			fmt.Fprintf(&b, "Limit: %s\n", format.Currency(a.CreditLimit, a.Currency))
		}
		b.WriteString("\n")
	}
	return r.replyMarkdown(ctx, chatID, strings.TrimRight(b.String(), "\n"))
}

// Categories renders the expense and income category trees.
func (r *Reporter) Categories(ctx context.Context, chatID, userID int64) error {
	user, err := r.resolve(ctx, chatID, userID)
	if err != nil || user == nil {
		return err
	}
	categories, err := r.gw.ForUser(user.AuthToken).Categories(ctx)
	if err != nil {
		r.log.Error("fetch categories failed", slog.Any("error", err))
		return r.reply(ctx, chatID, msgBackend)
	}
	if len(categories) == 0 {
		return r.reply(ctx, chatID, "You don't have any categories yet.\nCreate some with /expense or /income, or in the web app!")
	}

	var b strings.Builder
	b.WriteString("*Your Categories*\n\n")
	for _, section := range []struct {
		label string
		typ   gateway.CategoryType
	}{
		{"Expense", gateway.CategoryExpense},
		{"Income", gateway.CategoryIncome},
	} {
		var ofType []gateway.Category
		for _, c := range categories {
			if c.Type == section.typ {
				ofType = append(ofType, c)
			}
		}
		if len(ofType) == 0 {
			continue
		}
		fmt.Fprintf(&b, "*%s*\n", section.label)
		for _, c := range choices.OrderCategories(ofType) {
			indent := ""
			if c.ParentID != nil {
				indent = "    "
			}
			line := indent + strings.TrimSpace(c.Icon+" "+c.Name)
			if c.Description != "" {
				line += " — " + c.Description
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
	return r.replyMarkdown(ctx, chatID, strings.TrimRight(b.String(), "\n"))
}

// Budgets renders per-budget progress. A failed progress fetch degrades
// to the budget info alone.
func (r *Reporter) Budgets(ctx context.Context, chatID, userID int64) error {
	user, err := r.resolve(ctx, chatID, userID)
	if err != nil || user == nil {
		return err
	}
	api := r.gw.ForUser(user.AuthToken)
	budgets, err := api.Budgets(ctx)
	if err != nil {
		r.log.Error("fetch budgets failed", slog.Any("error", err))
		return r.reply(ctx, chatID, msgBackend)
	}

	var b strings.Builder
	b.WriteString("📊 *Your Budgets*\n\n")
	shown := 0
	for _, budget := range budgets {
		if !budget.IsActive {
			continue
		}
		shown++
		progress, progErr := api.BudgetProgress(ctx, budget.ID)
		if progErr != nil {
			r.log.Warn("budget progress failed", slog.String("budget_id", budget.ID), slog.Any("error", progErr))
			fmt.Fprintf(&b, "📋 *%s* (%s)\nBudget: %s\n\n", budget.Name, budget.Period, format.Currency(budget.Amount, user.DefaultCurrency))
			continue
		}
		status := "✅"
		switch {
		case progress.Percentage >= 100:
			status = "🚨"
		case progress.Percentage >= 80:
			status = "⚠️"
		}
		fmt.Fprintf(&b, "%s *%s* (%s)\n", status, budget.Name, budget.Period)
		fmt.Fprintf(&b, "Budget: %s\n", format.Currency(budget.Amount, user.DefaultCurrency))
		fmt.Fprintf(&b, "Spent: %s (%s)\n", format.Currency(progress.Spent, user.DefaultCurrency), format.Percentage(progress.Percentage))
		fmt.Fprintf(&b, "Remaining: %s\n\n", format.Currency(progress.Remaining, user.DefaultCurrency))
	}
	if shown == 0 {
		return r.reply(ctx, chatID, "You don't have any budgets yet.\nCreate budgets in the web app to track your spending!")
	}
	return r.replyMarkdown(ctx, chatID, strings.TrimRight(b.String(), "\n"))
}

// Summary renders the current-month summary; with a month count of 2-12
// it also sends an income-vs-expenses chart.
func (r *Reporter) Summary(ctx context.Context, chatID, userID int64, args string) error {
	months := 1
	if args = strings.TrimSpace(args); args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 2 || n > 12 {
			return r.reply(ctx, chatID, "Usage: /summary or /summary <months> (2-12).")
		}
		months = n
	}

	user, err := r.resolve(ctx, chatID, userID)
	if err != nil || user == nil {
		return err
	}
	rows, err := r.gw.ForUser(user.AuthToken).MonthlySummary(ctx, months)
	if err != nil {
		r.log.Error("fetch summary failed", slog.Any("error", err))
		return r.reply(ctx, chatID, msgBackend)
	}
	if len(rows) == 0 {
		return r.reply(ctx, chatID, "No transaction data available for this month.")
	}

	current := rows[len(rows)-1]
	net := current.Income - current.Expenses
	netMark := "✅"
	if net < 0 {
		netMark = "⚠️"
	}
	currency := user.DefaultCurrency

	var b strings.Builder
	fmt.Fprintf(&b, "📈 *Monthly Summary - %s*\n\n", r.now().Format("January 2006"))
	fmt.Fprintf(&b, "💰 Income: %s\n", format.Currency(current.Income, currency))
	fmt.Fprintf(&b, "💸 Expenses: %s\n", format.Currency(current.Expenses, currency))
	b.WriteString("━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "%s Net: %s", netMark, format.Currency(net, currency))
	if err := r.replyMarkdown(ctx, chatID, b.String()); err != nil {
		return err
	}

	if months < 2 {
		return nil
	}
	png, err := charts.MonthlySummary(rows)
	if err != nil {
		// The text summary already went out; the chart is best effort.
		r.log.Warn("summary chart failed", slog.Any("error", err))
		return nil
	}
	caption := fmt.Sprintf("Income vs expenses, last %d months", months)
	if err := r.send.SendPhoto(ctx, chatID, png, caption); err != nil {
		r.log.Error("send chart failed", slog.Any("error", err))
	}
	return nil
}

// Help lists every command.
func (r *Reporter) Help(ctx context.Context, chatID int64) error {
	help := `*Kuberan Bot Commands*

*Transactions*
/expense - Record an expense
/expense 50 Coffee - Quick expense with amount & description
/income - Record income
/income 3000 Salary - Quick income with amount & description

*Accounts*
/balance - View active account balances
/accounts - List all your accounts

*Categories*
/categories - Browse your categories

*Budgets & Reports*
/budgets - View budget status
/summary - Monthly income/expense summary
/summary 6 - Summary with a 6-month chart

*Other*
/start - Get started
/link <code> - Link your Kuberan account
/cancel - Cancel the current operation
/clear - Push old messages out of view
/help - Show this help message

*Tips*
- Amounts can include decimals, e.g. 50.50
- End a quick entry with a category or account name to pre-select it
- Type a command alone for a guided flow`
	return r.replyMarkdown(ctx, chatID, help)
}

// Clear pushes the recent history out of view with a block of blank
// lines.
func (r *Reporter) Clear(ctx context.Context, chatID int64) error {
	return r.reply(ctx, chatID, strings.Repeat("\n", 50)+"Chat cleared.")
}
