// Package gateway is the HTTP client for the Kuberan backend API. Two
// principals exist: the bot itself (internal secret) and the resolved
// user (bearer token). All durable finance data lives behind this API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/zihangg/kuberan-bot/internal/logger"
)

// Options tunes client behaviour; zero values select defaults.
type Options struct {
	// RequestTimeout bounds regular read/write calls (default 10s).
	RequestTimeout time.Duration
	// ActivityTimeout bounds the fire-and-forget activity call (default 5s).
	ActivityTimeout time.Duration
	HTTPClient      *http.Client
}

// Client is the bot-principal API client.
type Client struct {
	baseURL         string
	secret          string
	http            *http.Client
	requestTimeout  time.Duration
	activityTimeout time.Duration
	log             *slog.Logger
}

// New constructs a Client for the given base URL and internal secret.
func New(baseURL, internalSecret string, opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.ActivityTimeout <= 0 {
		opts.ActivityTimeout = 5 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL:         baseURL,
		secret:          internalSecret,
		http:            opts.HTTPClient,
		requestTimeout:  opts.RequestTimeout,
		activityTimeout: opts.ActivityTimeout,
		log:             logger.Component("gateway"),
	}
}

// Resolve maps a Telegram user id to a backend user with an auth token.
func (c *Client) Resolve(ctx context.Context, telegramUserID int64) (*ResolvedUser, error) {
	var user ResolvedUser
	err := c.call(ctx, callSpec{
		method:  http.MethodGet,
		path:    "/api/v1/internal/telegram/resolve/" + strconv.FormatInt(telegramUserID, 10),
		headers: c.internalHeaders(),
		timeout: c.requestTimeout,
		out:     &user,
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, ErrNotLinked
		}
		return nil, err
	}
	return &user, nil
}

// RecordActivity updates bot activity stats for the user. Failures are
// reported to the caller but must never abort a flow.
func (c *Client) RecordActivity(ctx context.Context, telegramUserID int64) error {
	return c.call(ctx, callSpec{
		method:  http.MethodPost,
		path:    "/api/v1/internal/telegram/activity/" + strconv.FormatInt(telegramUserID, 10),
		headers: c.internalHeaders(),
		timeout: c.activityTimeout,
	})
}

// CompleteLink finishes linking a Telegram account to a backend user.
func (c *Client) CompleteLink(ctx context.Context, req CompleteLinkRequest) error {
	err := c.call(ctx, callSpec{
		method:  http.MethodPost,
		path:    "/api/v1/internal/telegram/complete-link",
		headers: c.internalHeaders(),
		timeout: c.requestTimeout,
		body:    req,
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
			return fmt.Errorf("%w: %v", ErrLinkCodeInvalid, err)
		}
		return err
	}
	return nil
}

// ForUser returns a user-principal client bound to the given token.
func (c *Client) ForUser(token string) UserAPI {
	return &UserClient{parent: c, token: token}
}

func (c *Client) internalHeaders() http.Header {
	h := http.Header{}
	h.Set("X-Internal-Secret", c.secret)
	return h
}

// UserClient performs user-scoped calls with a bearer token.
type UserClient struct {
	parent *Client
	token  string
}

func (u *UserClient) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+u.token)
	return h
}

// Accounts returns the user's accounts in backend order.
func (u *UserClient) Accounts(ctx context.Context) ([]Account, error) {
	var envelope struct {
		Data []Account `json:"data"`
	}
	err := u.parent.call(ctx, callSpec{
		method:  http.MethodGet,
		path:    "/api/v1/accounts",
		headers: u.headers(),
		timeout: u.parent.requestTimeout,
		out:     &envelope,
	})
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// Categories returns the user's categories in backend order.
func (u *UserClient) Categories(ctx context.Context) ([]Category, error) {
	var envelope struct {
		Data []Category `json:"data"`
	}
	err := u.parent.call(ctx, callSpec{
		method:  http.MethodGet,
		path:    "/api/v1/categories",
		query:   url.Values{"page_size": []string{"100"}},
		headers: u.headers(),
		timeout: u.parent.requestTimeout,
		out:     &envelope,
	})
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// CreateCategory creates a category and returns the created resource.
func (u *UserClient) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	var envelope struct {
		Category Category `json:"category"`
	}
	err := u.parent.call(ctx, callSpec{
		method:  http.MethodPost,
		path:    "/api/v1/categories",
		headers: u.headers(),
		timeout: u.parent.requestTimeout,
		body:    req,
		out:     &envelope,
	})
	if err != nil {
		return nil, err
	}
	return &envelope.Category, nil
}

// CreateCashAccount creates a cash account, optionally with a currency.
func (u *UserClient) CreateCashAccount(ctx context.Context, name, currency string) (*Account, error) {
	payload := map[string]string{"name": name}
	if currency != "" {
		payload["currency"] = currency
	}
	var envelope struct {
		Account Account `json:"account"`
	}
	err := u.parent.call(ctx, callSpec{
		method:  http.MethodPost,
		path:    "/api/v1/accounts/cash",
		headers: u.headers(),
		timeout: u.parent.requestTimeout,
		body:    payload,
		out:     &envelope,
	})
	if err != nil {
		return nil, err
	}
	return &envelope.Account, nil
}

// CreateTransaction records a transaction. This is the commit point of
// the transaction flows; callers invoke it exactly once per confirm.
func (u *UserClient) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	var txn Transaction
	err := u.parent.call(ctx, callSpec{
		method:  http.MethodPost,
		path:    "/api/v1/transactions",
		headers: u.headers(),
		timeout: u.parent.requestTimeout,
		body:    req,
		out:     &txn,
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Budgets returns the user's budgets.
func (u *UserClient) Budgets(ctx context.Context) ([]Budget, error) {
	var envelope struct {
		Data []Budget `json:"data"`
	}
	err := u.parent.call(ctx, callSpec{
		method:  http.MethodGet,
		path:    "/api/v1/budgets",
		headers: u.headers(),
		timeout: u.parent.requestTimeout,
		out:     &envelope,
	})
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// BudgetProgress fetches spending progress for a single budget.
func (u *UserClient) BudgetProgress(ctx context.Context, budgetID string) (*BudgetProgress, error) {
	var envelope struct {
		Progress BudgetProgress `json:"progress"`
	}
	err := u.parent.call(ctx, callSpec{
		method:  http.MethodGet,
		path:    "/api/v1/budgets/" + budgetID + "/progress",
		headers: u.headers(),
		timeout: u.parent.requestTimeout,
		out:     &envelope,
	})
	if err != nil {
		return nil, err
	}
	return &envelope.Progress, nil
}

// MonthlySummary returns income/expense totals for the last N months.
func (u *UserClient) MonthlySummary(ctx context.Context, months int) ([]MonthSummary, error) {
	var envelope struct {
		Data []MonthSummary `json:"data"`
	}
	err := u.parent.call(ctx, callSpec{
		method:  http.MethodGet,
		path:    "/api/v1/transactions/monthly-summary",
		query:   url.Values{"months": []string{strconv.Itoa(months)}},
		headers: u.headers(),
		timeout: u.parent.requestTimeout,
		out:     &envelope,
	})
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

type callSpec struct {
	method  string
	path    string
	query   url.Values
	headers http.Header
	timeout time.Duration
	body    any
	out     any
}

func (c *Client) call(ctx context.Context, spec callSpec) error {
	ctx, cancel := context.WithTimeout(ctx, spec.timeout)
	defer cancel()

	endpoint := c.baseURL + spec.path
	if len(spec.query) > 0 {
		endpoint += "?" + spec.query.Encode()
	}

	var body io.Reader
	if spec.body != nil {
		data, err := json.Marshal(spec.body)
		if err != nil {
			return fmt.Errorf("gateway: encode %s: %w", spec.path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("gateway: build request %s: %w", spec.path, err)
	}
	for key, values := range spec.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if spec.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rid := logger.RIDFrom(ctx)
	if rid == "" {
		rid = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", rid)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", spec.method, spec.path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	c.log.DebugContext(ctx, "api call",
		slog.String("method", spec.method),
		slog.String("path", spec.path),
		slog.Int("status", resp.StatusCode),
		slog.String("rid", rid),
		slog.Duration("duration", time.Since(start).Round(time.Millisecond)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: spec.path, Code: resp.StatusCode}
	}

	if spec.out != nil {
		if err := json.NewDecoder(resp.Body).Decode(spec.out); err != nil {
			return fmt.Errorf("gateway: decode %s: %w", spec.path, err)
		}
	}
	return nil
}

