package conversation

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zihangg/kuberan-bot/internal/choices"
	"github.com/zihangg/kuberan-bot/internal/gateway"
	"github.com/zihangg/kuberan-bot/internal/match"
	"github.com/zihangg/kuberan-bot/internal/outbound"
	"github.com/zihangg/kuberan-bot/internal/session"
)

// StartExpense begins an expense flow. args is everything after the
// command and may carry a complete quick entry.
func (e *Engine) StartExpense(ctx context.Context, ev Event, args string) error {
	return e.startTransaction(ctx, ev, session.FlowExpense, args)
}

// StartIncome begins an income flow.
func (e *Engine) StartIncome(ctx context.Context, ev Event, args string) error {
	return e.startTransaction(ctx, ev, session.FlowIncome, args)
}

func categoryType(kind session.FlowKind) gateway.CategoryType {
	if kind == session.FlowIncome {
		return gateway.CategoryIncome
	}
	return gateway.CategoryExpense
}

// flowCategories returns the session's categories of the flow's type.
func flowCategories(sess *session.Session) []gateway.Category {
	typ := categoryType(sess.Flow)
	var out []gateway.Category
	for _, c := range sess.Txn.Categories {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) startTransaction(ctx context.Context, ev Event, kind session.FlowKind, args string) error {
	user, err := e.resolve(ctx, ev)
	if err != nil || user == nil {
		return err
	}
	e.recordActivity(ev.UserID)

	api := e.gw.ForUser(user.AuthToken)
	accounts, err := api.Accounts(ctx)
	if err != nil {
		e.log.Error("fetch accounts failed", slog.Any("error", err))
		_, sendErr := e.send.Send(ctx, ev.ChatID, outbound.Message{Text: msgBackend})
		return sendErr
	}
	categories, err := api.Categories(ctx)
	if err != nil {
		e.log.Error("fetch categories failed", slog.Any("error", err))
		_, sendErr := e.send.Send(ctx, ev.ChatID, outbound.Message{Text: msgBackend})
		return sendErr
	}

	def := choices.DefaultAccount(accounts)
	if def == nil {
		_, err := e.send.Send(ctx, ev.ChatID, outbound.Message{Text: msgNoAccount})
		return err
	}

	sess := &session.Session{
		Key:   ev.Key(),
		Flow:  kind,
		State: session.StateAwaitingAmount,
		Txn: &session.TxnMemory{
			Token:       user.AuthToken,
			Accounts:    accounts,
			Categories:  categories,
			AccountID:   def.ID,
			AccountName: def.Name,
			Currency:    user.DefaultCurrency,
		},
	}
	e.store.Begin(sess)

	return e.store.Do(ev.Key(), session.FamilyTransaction, func(sess *session.Session) error {
		fc := &flowCtx{e: e, ctx: ctx, ev: ev, sess: sess}
		if args == "" {
			return fc.prompt(outbound.Message{Text: msgAmountPrompt, Markdown: true})
		}
		return e.onAmountText(fc, strings.TrimSpace(args))
	})
}

// onAmountText handles the amount step, for both guided entry and the
// argument of a quick entry.
func (e *Engine) onAmountText(fc *flowCtx, text string) error {
	minor, rest, ok := match.ParseAmount(text)
	if !ok || minor == 0 {
		return fc.prompt(outbound.Message{Text: msgAmountInvalid, Markdown: true})
	}
	return e.proceedWithAmount(fc, minor, rest)
}

// proceedWithAmount is the convergence point of quick and guided entry:
// match trailing entities, then either confirm or ask for a category.
func (e *Engine) proceedWithAmount(fc *flowCtx, minor int64, rest string) error {
	m := fc.sess.Txn
	cats := flowCategories(fc.sess)

	// Only eligible accounts are offered to the matcher: a trailing
	// token naming an ineligible account stays in the description.
	desc, account, category := match.Entities(rest, choices.EligibleAccounts(m.Accounts), cats)
	m.AmountMinor = minor
	m.Description = desc
	if account != nil {
		m.AccountID = account.ID
		m.AccountName = account.Name
	}
	if category != nil {
		fc.selectCategory(*category)
		return fc.showConfirm()
	}
	if len(cats) == 0 {
		return fc.showConfirm()
	}
	return fc.showCategoryPage(0)
}

func (fc *flowCtx) selectCategory(c gateway.Category) {
	id := c.ID
	fc.sess.Txn.CategoryID = &id
	fc.sess.Txn.CategoryName = c.Name
	fc.sess.Txn.CategoryIcon = c.Icon
}

func (fc *flowCtx) showCategoryPage(page int) error {
	fc.sess.State = session.StateAwaitingCategory
	return fc.prompt(outbound.Message{
		Text:     msgCategoryPrompt,
		Keyboard: choices.CategoryKeyboard(flowCategories(fc.sess), page),
	})
}

func (fc *flowCtx) showConfirm() error {
	fc.sess.State = session.StateConfirm
	return fc.prompt(outbound.Message{
		Text:     confirmCard(fc.sess.Flow, fc.sess.Txn),
		Keyboard: choices.ConfirmKeyboard(),
		Markdown: true,
	})
}

func (e *Engine) onCategoryButton(fc *flowCtx, ns, value string) error {
	if ns != choices.NSCategory {
		return nil
	}
	switch {
	case strings.HasPrefix(value, "page:"):
		page, err := strconv.Atoi(strings.TrimPrefix(value, "page:"))
		if err != nil || page < 0 {
			return nil
		}
		return fc.showCategoryPage(page)
	case value == choices.ValueNew:
		fc.sess.State = session.StateNewCategoryName
		return fc.prompt(outbound.Message{Text: msgNewCategoryName})
	case value == choices.ValueNone:
		fc.sess.Txn.CategoryID = nil
		fc.sess.Txn.CategoryName = ""
		fc.sess.Txn.CategoryIcon = ""
		return fc.showConfirm()
	}
	for _, c := range flowCategories(fc.sess) {
		if c.ID == value {
			fc.selectCategory(c)
			return fc.showConfirm()
		}
	}
	// A press from an outdated keyboard; re-show the current page.
	return fc.showCategoryPage(0)
}

func (e *Engine) onNewCategoryName(fc *flowCtx, text string) error {
	if text == "" {
		return fc.prompt(outbound.Message{Text: msgNewCategoryName})
	}
	fc.sess.Txn.Draft = &session.CategoryDraft{Name: text}
	fc.sess.State = session.StateNewCategoryParent
	return fc.prompt(outbound.Message{
		Text:     msgNewCategoryParent,
		Keyboard: choices.ParentKeyboard(flowCategories(fc.sess), categoryType(fc.sess.Flow)),
	})
}

func (e *Engine) onNewCategoryParent(fc *flowCtx, ns, value string) error {
	if ns != choices.NSParent || fc.sess.Txn.Draft == nil {
		return nil
	}
	if value != choices.ValueNone {
		id := value
		fc.sess.Txn.Draft.ParentID = &id
	}
	fc.sess.State = session.StateNewCategoryIcon
	return fc.prompt(outbound.Message{
		Text:     msgNewCategoryIcon,
		Keyboard: choices.IconKeyboard(),
	})
}

// truncateIcon caps the icon at two runes, enough for an emoji with a
// variation selector.
func truncateIcon(s string) string {
	runes := []rune(s)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}

func (e *Engine) onNewCategoryIcon(fc *flowCtx, text string) error {
	if text == "" {
		return fc.prompt(outbound.Message{
			Text:     msgNewCategoryIcon,
			Keyboard: choices.IconKeyboard(),
		})
	}
	return e.commitNewCategory(fc, truncateIcon(text))
}

func (e *Engine) onNewCategoryIconButton(fc *flowCtx, ns, value string) error {
	if ns != choices.NSIcon || value != choices.ValueSkip {
		return nil
	}
	return e.commitNewCategory(fc, "")
}

func (e *Engine) commitNewCategory(fc *flowCtx, icon string) error {
	draft := fc.sess.Txn.Draft
	if draft == nil {
		return fc.showCategoryPage(0)
	}
	api := e.gw.ForUser(fc.sess.Txn.Token)
	created, err := api.CreateCategory(fc.ctx, gateway.CreateCategoryRequest{
		Name:     draft.Name,
		Type:     categoryType(fc.sess.Flow),
		Icon:     icon,
		ParentID: draft.ParentID,
	})
	fc.sess.Txn.Draft = nil
	if err != nil {
		e.log.Error("create category failed", slog.Any("error", err))
		if sendErr := fc.reply(msgBackend); sendErr != nil {
			return sendErr
		}
		return fc.showCategoryPage(0)
	}
	fc.sess.Txn.Categories = append(fc.sess.Txn.Categories, *created)
	fc.selectCategory(*created)
	return fc.showConfirm()
}

func (e *Engine) onConfirmButton(fc *flowCtx, ns, value string) error {
	if ns != choices.NSConfirm {
		return nil
	}
	switch value {
	case choices.ConfirmCancel:
		fc.sess.End()
		return fc.prompt(outbound.Message{Text: msgCancelled})
	case choices.ConfirmChangeCategory:
		return fc.showCategoryPage(0)
	case choices.ConfirmChangeAccount:
		fc.sess.State = session.StateAwaitingAccount
		return fc.prompt(outbound.Message{
			Text:     msgAccountPrompt,
			Keyboard: choices.AccountKeyboard(fc.sess.Txn.Accounts),
		})
	case choices.ConfirmChangeCurrency:
		fc.sess.State = session.StateCurrencyChoice
		return fc.prompt(outbound.Message{
			Text:     msgCurrencyPrompt,
			Keyboard: choices.CurrencyKeyboard(fc.sess.Txn.Currency),
		})
	case choices.ConfirmCommit:
		return e.commitTransaction(fc)
	}
	return nil
}

// commitTransaction performs the single commit of the flow. On failure
// the session stays in the confirm state so the user can retry or
// cancel; nothing is retried automatically.
func (e *Engine) commitTransaction(fc *flowCtx) error {
	m := fc.sess.Txn
	desc := m.Description
	if desc == "" {
		desc = flowTitle(fc.sess.Flow)
	}
	req := gateway.TransactionRequest{
		Type:        string(fc.sess.Flow),
		AccountID:   m.AccountID,
		Amount:      m.AmountMinor,
		Description: desc,
	}
	if m.CategoryID != nil {
		req.CategoryID = *m.CategoryID
	}

	api := e.gw.ForUser(m.Token)
	if _, err := api.CreateTransaction(fc.ctx, req); err != nil {
		e.log.Error("create transaction failed", slog.Any("error", err))
		return fc.prompt(outbound.Message{
			Text:     commitFailedCard(fc.sess.Flow, m),
			Keyboard: choices.ConfirmKeyboard(),
			Markdown: true,
		})
	}

	fc.sess.End()
	return fc.prompt(outbound.Message{
		Text:     successCard(fc.sess.Flow, m),
		Markdown: true,
	})
}

func (e *Engine) onAccountButton(fc *flowCtx, ns, value string) error {
	if ns != choices.NSAccount {
		return nil
	}
	switch value {
	case choices.ValueBack:
		return fc.showConfirm()
	case choices.ValueNew:
		fc.sess.State = session.StateNewAccountName
		return fc.prompt(outbound.Message{Text: msgNewAccountName})
	}
	for _, a := range choices.EligibleAccounts(fc.sess.Txn.Accounts) {
		if a.ID == value {
			fc.sess.Txn.AccountID = a.ID
			fc.sess.Txn.AccountName = a.Name
			return fc.showConfirm()
		}
	}
	return fc.showConfirm()
}

func (e *Engine) onNewAccountName(fc *flowCtx, text string) error {
	if text == "" {
		return fc.prompt(outbound.Message{Text: msgNewAccountName})
	}
	api := e.gw.ForUser(fc.sess.Txn.Token)
	created, err := api.CreateCashAccount(fc.ctx, text, fc.sess.Txn.Currency)
	if err != nil {
		e.log.Error("create account failed", slog.Any("error", err))
		if sendErr := fc.reply(msgBackend); sendErr != nil {
			return sendErr
		}
		fc.sess.State = session.StateAwaitingAccount
		return fc.prompt(outbound.Message{
			Text:     msgAccountPrompt,
			Keyboard: choices.AccountKeyboard(fc.sess.Txn.Accounts),
		})
	}
	fc.sess.Txn.Accounts = append(fc.sess.Txn.Accounts, *created)
	fc.sess.Txn.AccountID = created.ID
	fc.sess.Txn.AccountName = created.Name
	return fc.showConfirm()
}

func (e *Engine) onCurrencyButton(fc *flowCtx, ns, value string) error {
	if ns != choices.NSCurrency {
		return nil
	}
	switch value {
	case choices.ValueBack:
		return fc.showConfirm()
	case choices.ValueOther:
		fc.sess.State = session.StateNewCurrencyCode
		return fc.prompt(outbound.Message{Text: msgCurrencyCode, Markdown: true})
	}
	fc.sess.Txn.Currency = value
	return fc.showConfirm()
}

// validCurrency accepts exactly three ASCII letters.
func validCurrency(s string) (string, bool) {
	if len(s) != 3 {
		return "", false
	}
	for _, r := range s {
		if r < 'A' || (r > 'Z' && r < 'a') || r > 'z' {
			return "", false
		}
	}
	return strings.ToUpper(s), true
}

func (e *Engine) onCurrencyCode(fc *flowCtx, text string) error {
	code, ok := validCurrency(text)
	if !ok {
		return fc.prompt(outbound.Message{Text: msgCurrencyInvalid, Markdown: true})
	}
	fc.sess.Txn.Currency = code
	return fc.showConfirm()
}
