// Package api serves the transaction REST backend the tracker UI talks to.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
)

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the API server.
type Options struct {
	RateLimitPerMinute int
	AllowOrigin        string
	Logger             *log.Logger
}

// Server is the REST backend.
type Server struct {
	http.Server
	store    services.TransactionStore
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around store.
func NewServer(addr string, store services.TransactionStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentAPI)

	s := &Server{
		store:    store,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /transactions", s.handleList)
	mux.HandleFunc("POST /transactions", s.handleCreate)
	mux.HandleFunc("GET /transactions/{id}", s.handleGet)
	mux.HandleFunc("PUT /transactions/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDelete)
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(h)
	h = security.CORS(opts.AllowOrigin)(h)
	h = s.suspicious(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) suspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.NewFields().
					WithClientIP(s.detector.ExtractClientIP(r)).
					WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
					ToSlice()...)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.detector.RecordRateLimitHit()
	writeMessage(w, http.StatusTooManyRequests, MsgRateLimited)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		s.internalError(w, r, log.OpList, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		s.storeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(r)
	if err != nil {
		s.storeError(w, r, log.OpCreate, err)
		return
	}
	d, err := payload.createDraft()
	if err != nil {
		s.storeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := s.store.CreateTransaction(r.Context(), d)
	if err != nil {
		s.storeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	current, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		s.storeError(w, r, log.OpUpdate, err)
		return
	}
	payload, err := decodePayload(r)
	if err != nil {
		s.storeError(w, r, log.OpUpdate, err)
		return
	}
	d, err := payload.mergeInto(current)
	if err != nil {
		s.storeError(w, r, log.OpUpdate, err)
		return
	}
	tx, err := s.store.UpdateTransaction(r.Context(), id, d)
	if err != nil {
		s.storeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteTransaction(r.Context(), id); err != nil {
		s.storeError(w, r, log.OpDelete, err)
		return
	}
	writeMessage(w, http.StatusOK, MsgDeleted)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, core.Categories)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// storeError maps validation and not-found errors onto 400/404 and logs
// everything else as a 500.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var br errBadRequest
	switch {
	case errors.As(err, &br):
		log.FromContext(r.Context()).InfoContext(r.Context(), "Rejected request",
			log.NewFields().WithOperation(op).WithErrorType(log.ErrorTypeValidation).WithError(err).ToSlice()...)
		writeMessage(w, http.StatusBadRequest, br.message)
	case errors.Is(err, core.ErrNotFound):
		writeMessage(w, http.StatusNotFound, MsgNotFound)
	default:
		if verr := validateDraftError(err); verr != nil {
			writeMessage(w, http.StatusBadRequest, verr.message)
			return
		}
		s.internalError(w, r, op, err)
	}
}

// validateDraftError translates domain validation errors coming back from
// the store layer.
func validateDraftError(err error) *errBadRequest {
	msgs := map[error]string{
		core.ErrEmptyTitle:    MsgMissingData,
		core.ErrEmptyCategory: MsgMissingData,
		core.ErrInvalidAmount: MsgInvalidAmount,
		core.ErrInvalidType:   MsgInvalidType,
		core.ErrInvalidDate:   MsgInvalidDate,
	}
	for sentinel, msg := range msgs {
		if errors.Is(err, sentinel) {
			return &errBadRequest{message: msg}
		}
	}
	return nil
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Store operation failed",
		log.NewFields().WithOperation(op).WithErrorType(log.ErrorTypeDatabase).WithError(err).ToSlice()...)
	writeMessage(w, http.StatusInternalServerError, MsgInternal)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusNotFound, MsgInvalidID)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
