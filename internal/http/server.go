package http

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/render"
	"budget/internal/services"
	appweb "budget/web"
)

// ReadyCheck reports whether the transaction backend can serve requests.
type ReadyCheck func(ctx context.Context) error

// Options tune the UI server.
type Options struct {
	RateLimitPerMinute int
	// Ready is consulted by /readyz; nil means always ready.
	Ready  ReadyCheck
	Logger *log.Logger
}

type appMetrics struct {
	uptime           time.Time
	submits          int64
	rejectedSubmits  int64
	deletes          int64
	validationErrors int64
}

// Server serves the tracker UI: the full page and the HTMX partials.
type Server struct {
	http.Server
	tracker  *services.Tracker
	renderer *render.Renderer
	ready    ReadyCheck
	logger   *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. renderer may be nil, in which case HTML routes answer 500
// and /readyz reports not ready.
func NewServer(addr string, tracker *services.Tracker, renderer *render.Renderer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		tracker:          tracker,
		renderer:         renderer,
		ready:            opts.Ready,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /ui/transactions", s.handleSubmit)
	mux.HandleFunc("GET /ui/transactions/{id}/edit", s.handleEdit)
	mux.HandleFunc("POST /ui/form/reset", s.handleReset)
	mux.HandleFunc("DELETE /ui/transactions/{id}", s.handleDelete)

	var h http.Handler = s.limitMutations(mux)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detectSuspicious(h)
	h = s.traceMiddleware.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the limiter's cleanup loop
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// limitMutations rate limits everything except reads, so page loads and
// static assets never count against a client.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.securityDetector.RecordRateLimitHit()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.NewFields().
			WithClientIP(s.securityDetector.ExtractClientIP(r)).
			WithHTTPRequest(r.Method, r.URL.Path, "", "").
			ToSlice()...)
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		Reswap("none").
		TriggerErrorNotification("Too many requests. Please try again later.").
		Write(w)
}

func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.NewFields().
					WithComponent(log.ComponentSecurity).
					WithClientIP(s.securityDetector.ExtractClientIP(r)).
					WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
					ToSlice()...)
		}
		next.ServeHTTP(w, r)
	})
}
