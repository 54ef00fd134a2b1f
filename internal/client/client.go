// Package client talks to the transaction REST backend.
//
// Every call is a single attempt: failures come back as *Error and the
// caller decides what to tell the user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/middleware/trace"
)

const (
	transactionsPath = "/transactions"
	healthPath       = "/healthz"
	maxBodyBytes     = 4 << 20
	userAgent        = "budget-tracker/1.0"
)

// Client implements the transaction store port over HTTP
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *log.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a client for the backend rooted at baseURL
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.FromContext(context.Background()).WithComponent(log.ComponentClient),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root
func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := c.do(ctx, "list transactions", http.MethodGet, transactionsPath, nil, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

func (c *Client) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var tx core.Transaction
	err := c.do(ctx, "get transaction", http.MethodGet, itemPath(id), nil, &tx)
	return tx, err
}

func (c *Client) CreateTransaction(ctx context.Context, d core.Draft) (core.Transaction, error) {
	var tx core.Transaction
	err := c.do(ctx, "create transaction", http.MethodPost, transactionsPath, d, &tx)
	return tx, err
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, d core.Draft) (core.Transaction, error) {
	var tx core.Transaction
	err := c.do(ctx, "update transaction", http.MethodPut, itemPath(id), d, &tx)
	return tx, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, "delete transaction", http.MethodDelete, itemPath(id), nil, nil)
}

// Ping checks the backend liveness endpoint
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, healthPath, nil, nil)
}

func itemPath(id int64) string {
	return transactionsPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := trace.GetRequestID(ctx)
	if requestID == "" {
		requestID = trace.GenerateRequestID()
	}
	req.Header.Set(trace.HeaderRequestID, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend unreachable",
			log.NewFields().
				WithRequestID(requestID).
				WithOperation(op).
				WithErrorType(log.ErrorTypeNetwork).
				WithError(err).
				ToSlice()...)
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.DebugContext(ctx, "Backend call",
		log.NewFields().
			WithRequestID(requestID).
			WithOperation(op).
			WithHTTPRequest(method, path, "", "").
			WithHTTPResponse(resp.StatusCode, time.Since(start).Milliseconds()).
			ToSlice()...)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:       KindStatus,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    backendMessage(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecode, Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// backendMessage pulls {"message": "..."} out of an error body
func backendMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}
