package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"budget/internal/client"
	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/storage/memory"
)

func newTestServer(t *testing.T, seed ...core.Transaction) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New(seed...)
	s := NewServer(":0", store, Options{RateLimitPerMinute: 1000})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body.Message
}

var rent = core.Transaction{
	ID:       5,
	Title:    "Rent",
	Amount:   core.Money{Cents: 90000},
	Category: "Housing",
	Type:     core.Expense,
	Date:     time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: MsgNoData},
		{name: "empty object", body: `{}`, want: MsgNoData},
		{name: "not json", body: `title=x`, want: MsgNoData},
		{name: "missing date", body: `{"title":"a","amount":1,"category":"Food","type":"expense"}`, want: MsgMissingData},
		{name: "zero amount counts as missing", body: `{"title":"a","amount":0,"category":"Food","type":"expense","date":"2024-01-01T10:00:00"}`, want: MsgMissingData},
		{name: "blank title", body: `{"title":"","amount":1,"category":"Food","type":"expense","date":"2024-01-01T10:00:00"}`, want: MsgMissingData},
		{name: "negative amount", body: `{"title":"a","amount":-3,"category":"Food","type":"expense","date":"2024-01-01T10:00:00"}`, want: MsgInvalidAmount},
		{name: "string amount", body: `{"title":"a","amount":"12","category":"Food","type":"expense","date":"2024-01-01T10:00:00"}`, want: MsgInvalidAmount},
		{name: "bad type", body: `{"title":"a","amount":1,"category":"Food","type":"gift","date":"2024-01-01T10:00:00"}`, want: MsgInvalidType},
		{name: "bad date", body: `{"title":"a","amount":1,"category":"Food","type":"expense","date":"yesterday"}`, want: MsgInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newTestServer(t)
			rec := do(t, s, http.MethodPost, "/transactions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			if got := message(t, rec); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
			if store.Len() != 0 {
				t.Error("invalid request was stored")
			}
		})
	}
}

func TestCreateAndGet(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/transactions",
		`{"title":"Lunch","amount":12.5,"category":"Food","type":"expense","date":"2024-01-02T10:00:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var created core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 || created.Amount.Cents != 1250 {
		t.Errorf("created = %+v", created)
	}

	rec = do(t, s, http.MethodGet, "/transactions/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"date":"2024-01-02T10:00:00Z"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/transactions/9", "")
	if rec.Code != http.StatusNotFound || message(t, rec) != MsgNotFound {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestListOrderedByID(t *testing.T) {
	older := rent
	older.ID = 2
	older.Date = rent.Date.Add(-48 * time.Hour)
	s, _ := newTestServer(t, rent, older)

	rec := do(t, s, http.MethodGet, "/transactions", "")
	var txs []core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 || txs[0].ID != 2 || txs[1].ID != 5 {
		t.Errorf("list = %+v", txs)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/transactions", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestPartialUpdate(t *testing.T) {
	s, store := newTestServer(t, rent)
	rec := do(t, s, http.MethodPut, "/transactions/5", `{"amount":950}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	got, err := store.GetTransaction(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	want := rent
	want.Amount = core.Money{Cents: 95000}
	if got.Draft() != want.Draft() {
		t.Errorf("stored = %+v, want %+v", got, want)
	}
}

func TestUpdateErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{name: "missing id", path: "/transactions/77", body: `{"amount":1}`, status: http.StatusNotFound, want: MsgNotFound},
		{name: "no data", path: "/transactions/5", body: `{}`, status: http.StatusBadRequest, want: MsgNoData},
		{name: "bad amount", path: "/transactions/5", body: `{"amount":0}`, status: http.StatusBadRequest, want: MsgInvalidAmount},
		{name: "bad type", path: "/transactions/5", body: `{"type":"gift"}`, status: http.StatusBadRequest, want: MsgInvalidType},
		{name: "bad date", path: "/transactions/5", body: `{"date":"2024-13-45"}`, status: http.StatusBadRequest, want: MsgInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, rent)
			rec := do(t, s, http.MethodPut, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if got := message(t, rec); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s, store := newTestServer(t, rent)
	rec := do(t, s, http.MethodDelete, "/transactions/5", "")
	if rec.Code != http.StatusOK || message(t, rec) != MsgDeleted {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if store.Len() != 0 {
		t.Error("transaction still stored")
	}
	rec = do(t, s, http.MethodDelete, "/transactions/5", "")
	if rec.Code != http.StatusNotFound || message(t, rec) != MsgNotFound {
		t.Errorf("second delete: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodOptions, "/transactions", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	req.Header.Set("X-Request-ID", "req_fromui")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req_fromui" {
		t.Errorf("X-Request-ID = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	store := memory.New()
	s := NewServer(":0", store, Options{RateLimitPerMinute: 2})
	defer s.Shutdown(context.Background())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = do(t, s, http.MethodGet, "/transactions", "")
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

// TestClientAgainstServer drives the REST client through a real listener
// backed by the service layer.
func TestClientAgainstServer(t *testing.T) {
	store := memory.New()
	s := NewServer(":0", services.NewTransactionService(store, nil), Options{RateLimitPerMinute: 1000})
	defer s.Shutdown(context.Background())
	srv := httptest.NewServer(s.Handler)
	defer srv.Close()

	c, err := client.New(srv.URL, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	d := rent.Draft()
	d.Date = time.Date(2024, 2, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	created, err := c.CreateTransaction(ctx, d)
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	got, err := c.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if core.FormatTimestamp(got.Date) != "2024-02-01T09:00:00Z" {
		t.Errorf("date = %s, want canonical UTC", core.FormatTimestamp(got.Date))
	}

	d.Amount = core.Money{Cents: 95000}
	updated, err := c.UpdateTransaction(ctx, created.ID, d)
	if err != nil || updated.Amount.Cents != 95000 {
		t.Fatalf("UpdateTransaction() = %+v, %v", updated, err)
	}

	if err := c.DeleteTransaction(ctx, 999); !isNotFound(err) {
		t.Errorf("delete missing error = %v, want not found", err)
	}
	bad := d
	bad.Amount = core.Money{}
	_, err = c.CreateTransaction(ctx, bad)
	ce, ok := client.AsError(err)
	if !ok || ce.StatusCode != http.StatusBadRequest || ce.Message != MsgMissingData {
		t.Errorf("create with zero amount error = %v", err)
	}
}

func isNotFound(err error) bool {
	ce, ok := client.AsError(err)
	return ok && ce.StatusCode == http.StatusNotFound
}
