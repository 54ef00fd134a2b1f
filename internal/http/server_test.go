package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/render"
	"budget/internal/services"
	"budget/internal/storage/memory"
	appweb "budget/web"
)

// gatedStore holds creates until release is closed and reports when one
// has started.
type gatedStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) CreateTransaction(ctx context.Context, d core.Draft) (core.Transaction, error) {
	close(s.entered)
	<-s.release
	return s.Store.CreateTransaction(ctx, d)
}

func newTestServer(t *testing.T, store services.TransactionStore, opts Options) *Server {
	t.Helper()
	renderer, err := render.New(appweb.TemplatesFS)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	tracker := services.NewTracker(services.NewRepository(store, nil), nil,
		render.Options{Currency: "PLN", Location: time.UTC})
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}
	srv := NewServer(":0", tracker, renderer, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func rent() core.Transaction {
	return core.Transaction{
		ID:       5,
		Title:    "Rent",
		Amount:   core.Money{Cents: 90000},
		Category: "Housing",
		Type:     core.Expense,
		Date:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, memory.New(rent()), Options{})

	rr := serve(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Add a transaction", "Rent", "-900.00 PLN", "transaction-5"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}

	for _, path := range []string{"/healthz", "/readyz", "/static/app.js"} {
		rr := serve(srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestReadyReportsBackendFailure(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{
		Ready: func(context.Context) error { return errors.New("connection refused") },
	})

	rr := serve(srv, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "connection refused") {
		t.Errorf("readyz body = %s", rr.Body.String())
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})

	if rr := serve(srv, http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Errorf("GET /nope status=%d, want 404", rr.Code)
	}
	if rr := serve(srv, http.MethodGet, "/ui/transactions", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /ui/transactions status=%d, want 405", rr.Code)
	}
}

func TestSubmitCreatesAndResetsForm(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store, Options{})

	rr := serve(srv, http.MethodPost, "/ui/transactions", url.Values{
		"title":    {"Groceries"},
		"amount":   {"200"},
		"category": {"Food"},
		"type":     {"expense"},
		"date":     {"2024-01-02T10:00"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("submit status=%d body=%s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{`"form:reset"`, `"type":"success"`, services.MsgCreated} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %q: %s", want, trigger)
		}
	}
	body := rr.Body.String()
	if !strings.Contains(body, `id="app"`) || !strings.Contains(body, "Groceries") || !strings.Contains(body, "-200.00 PLN") {
		t.Errorf("app partial missing new transaction: %s", body)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d transactions, want 1", store.Len())
	}
}

func TestSubmitValidationKeepsValues(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store, Options{})

	rr := serve(srv, http.MethodPost, "/ui/transactions", url.Values{
		"title":    {"Lunch"},
		"amount":   {"0"},
		"category": {"Food"},
		"type":     {"expense"},
		"date":     {"2024-01-02T10:00"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, `"type":"error"`) || strings.Contains(trigger, "form:reset") {
		t.Errorf("HX-Trigger = %s", trigger)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `value="Lunch"`) {
		t.Errorf("entered title not kept")
	}
	if !strings.Contains(body, `name="amount" value="0" min="0.01" step="0.01" class="error"`) {
		t.Errorf("amount field not marked invalid: %s", body)
	}
	if store.Len() != 0 {
		t.Errorf("store has %d transactions, want 0", store.Len())
	}
}

func TestSubmitRejectedWhileInFlight(t *testing.T) {
	store := &gatedStore{Store: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	srv := newTestServer(t, store, Options{})

	form := url.Values{
		"title":    {"Salary"},
		"amount":   {"1000"},
		"category": {"Other"},
		"type":     {"income"},
		"date":     {"2024-01-01T09:00"},
	}
	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- serve(srv, http.MethodPost, "/ui/transactions", form) }()
	<-store.entered

	rr := serve(srv, http.MethodPost, "/ui/transactions", form)
	if rr.Code != http.StatusConflict {
		t.Errorf("second submit status=%d, want 409", rr.Code)
	}
	if rr.Header().Get("HX-Reswap") != "none" {
		t.Errorf("HX-Reswap = %q, want none", rr.Header().Get("HX-Reswap"))
	}

	close(store.release)
	if first := <-done; first.Code != http.StatusOK {
		t.Errorf("first submit status=%d", first.Code)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d transactions, want 1", store.Len())
	}
}

func TestEditThenReset(t *testing.T) {
	srv := newTestServer(t, memory.New(rent()), Options{})

	rr := serve(srv, http.MethodGet, "/ui/transactions/5/edit", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("edit status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Edit transaction", `value="Rent"`, `value="900.00"`, "Save Changes", "Cancel"} {
		if !strings.Contains(body, want) {
			t.Errorf("edit form missing %q", want)
		}
	}

	rr = serve(srv, http.MethodPost, "/ui/form/reset", url.Values{})
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Add Transaction") {
		t.Errorf("reset did not restore create mode")
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "form:reset") {
		t.Errorf("reset missing form:reset trigger")
	}
}

func TestEditMissingNotifies(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})

	rr := serve(srv, http.MethodGet, "/ui/transactions/99/edit", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"error"`) {
		t.Errorf("HX-Trigger = %s", rr.Header().Get("HX-Trigger"))
	}
	if !strings.Contains(rr.Body.String(), "Add a transaction") {
		t.Errorf("form left create mode")
	}

	if rr := serve(srv, http.MethodGet, "/ui/transactions/abc/edit", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id status=%d, want 400", rr.Code)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	store := memory.New(rent())
	srv := newTestServer(t, store, Options{})

	rr := serve(srv, http.MethodDelete, "/ui/transactions/5", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed delete status=%d, want 400", rr.Code)
	}
	if store.Len() != 1 {
		t.Fatalf("transaction deleted without confirmation")
	}

	rr = serve(srv, http.MethodDelete, "/ui/transactions/5?confirm=true", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "transaction-5") || !strings.Contains(body, render.EmptyListText) {
		t.Errorf("dashboard still lists deleted row: %s", body)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), services.MsgDeleted) {
		t.Errorf("HX-Trigger = %s", rr.Header().Get("HX-Trigger"))
	}
	if store.Len() != 0 {
		t.Errorf("store has %d transactions, want 0", store.Len())
	}
}

func TestDashboardAndMetrics(t *testing.T) {
	srv := newTestServer(t, memory.New(rent()), Options{})

	rr := serve(srv, http.MethodGet, "/ui/dashboard", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `id="dashboard"`) {
		t.Fatalf("dashboard status=%d", rr.Code)
	}

	serve(srv, http.MethodDelete, "/ui/transactions/5?confirm=true", nil)

	rr = serve(srv, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	for _, want := range []string{"transaction_deletes_total 1", "http_requests_total", "uptime_seconds"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{RateLimitPerMinute: 1})

	serve(srv, http.MethodPost, "/ui/form/reset", url.Values{})
	rr := serve(srv, http.MethodPost, "/ui/form/reset", url.Values{})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr := serve(srv, http.MethodGet, "/ui/dashboard", nil); rr.Code != http.StatusOK {
		t.Errorf("reads should not be limited, status=%d", rr.Code)
	}
}

func TestFailedDeleteLeavesDashboardAlone(t *testing.T) {
	store := memory.New(rent())
	srv := newTestServer(t, store, Options{})

	rr := serve(srv, http.MethodDelete, "/ui/transactions/99?confirm=true", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("HX-Reswap") != "none" {
		t.Errorf("HX-Reswap = %q, want none", rr.Header().Get("HX-Reswap"))
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"error"`) {
		t.Errorf("HX-Trigger = %s", rr.Header().Get("HX-Trigger"))
	}
	if rr.Body.Len() != 0 {
		t.Errorf("failed delete returned a body: %s", rr.Body.String())
	}

	body := serve(srv, http.MethodGet, "/", nil).Body.String()
	if !strings.Contains(body, "data-fade-row") || strings.Contains(body, "hx-indicator") {
		t.Error("delete button must fade its row on swap only")
	}
}

func TestFormLockedWhileSubmitting(t *testing.T) {
	store := &gatedStore{Store: memory.New(rent()), entered: make(chan struct{}), release: make(chan struct{})}
	srv := newTestServer(t, store, Options{})

	if rr := serve(srv, http.MethodGet, "/ui/transactions/5/edit", nil); !strings.Contains(rr.Body.String(), `hx-disabled-elt="#transaction-form .form-actions button"`) {
		t.Error("cancel button is not disabled while a submit runs")
	}
	serve(srv, http.MethodPost, "/ui/form/reset", url.Values{})

	form := url.Values{
		"title":    {"Gas"},
		"amount":   {"95"},
		"category": {"Utilities"},
		"type":     {"expense"},
		"date":     {"2024-01-01T09:00"},
	}
	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- serve(srv, http.MethodPost, "/ui/transactions", form) }()
	<-store.entered

	for _, tc := range []struct {
		method, target string
		form           url.Values
	}{
		{http.MethodPost, "/ui/form/reset", url.Values{}},
		{http.MethodGet, "/ui/transactions/5/edit", nil},
	} {
		rr := serve(srv, tc.method, tc.target, tc.form)
		if rr.Code != http.StatusConflict || rr.Header().Get("HX-Reswap") != "none" {
			t.Errorf("%s %s status=%d reswap=%q, want 409 none", tc.method, tc.target, rr.Code, rr.Header().Get("HX-Reswap"))
		}
	}

	close(store.release)
	if first := <-done; first.Code != http.StatusOK {
		t.Errorf("submit status=%d", first.Code)
	}
}
