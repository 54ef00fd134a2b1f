package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"budget/internal/log"
	"budget/internal/render"
	"budget/internal/services"
	"budget/internal/viewmodel"
)

const (
	msgSubmitInFlight  = "A submission is already in progress."
	msgNotConfirmed    = "Deletion was not confirmed."
	msgInvalidID       = "Invalid transaction id"
	msgTemplatesFailed = "templates not loaded"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.renderer == nil {
		checks["templates"] = "failed: " + msgTemplatesFailed
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	} else {
		checks["backend"] = "not_checked"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}
	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_requests_failed_total", "HTTP requests answered with 5xx", traceMetrics.FailedRequests)
	counter("transaction_submits_total", "Form submissions accepted", atomic.LoadInt64(&s.appMetrics.submits))
	counter("transaction_submits_rejected_total", "Submissions rejected while another was in flight", atomic.LoadInt64(&s.appMetrics.rejectedSubmits))
	counter("transaction_validation_errors_total", "Submissions failing form validation", atomic.LoadInt64(&s.appMetrics.validationErrors))
	counter("transaction_deletes_total", "Confirmed deletions that succeeded", atomic.LoadInt64(&s.appMetrics.deletes))
	counter("rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

// handleIndex renders the full page. It is the tracker's initial load:
// fetch, compute, render and reset the form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, msgTemplatesFailed, http.StatusInternalServerError)
		return
	}

	ctx, notices := services.CollectNotices(r.Context())
	page := s.tracker.Load(ctx)
	for _, n := range notices.All() {
		page.Notices = append(page.Notices, render.Notice{Level: string(n.Level), Message: n.Message})
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, render.TemplateIndex, page); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err, "template", render.TemplateIndex)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleDashboard refetches and renders balance, list and chart.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, notices := services.CollectNotices(r.Context())
	page := s.tracker.Refresh(ctx)
	s.renderPartial(w, r, render.TemplateDashboard, page, notices)
}

// handleSubmit creates or updates depending on the form mode and answers
// with the whole app (form + dashboard).
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.logger.WarnContext(r.Context(), "Parse form error", log.FieldError, err)
		BadRequestError("Invalid request format").Reswap("none").Write(w)
		return
	}
	fields := ParseTransactionFields(parser)

	ctx, notices := services.CollectNotices(r.Context())
	page, err := s.tracker.Submit(ctx, fields)

	var verr *viewmodel.ValidationError
	switch {
	case errors.Is(err, services.ErrSubmitInFlight):
		atomic.AddInt64(&s.appMetrics.rejectedSubmits, 1)
		ConflictError(msgSubmitInFlight).Write(w)
		return
	case errors.As(err, &verr):
		atomic.AddInt64(&s.appMetrics.validationErrors, 1)
		s.logger.InfoContext(r.Context(), "Form rejected",
			log.FieldErrorType, log.ErrorTypeValidation,
			"invalid_fields", verr.Fields)
	case err == nil:
		atomic.AddInt64(&s.appMetrics.submits, 1)
		s.renderPartialWith(w, r, NewHTMXResponse().TriggerFormReset(), render.TemplateApp, page, notices)
		return
	}

	s.renderPartial(w, r, render.TemplateApp, page, notices)
}

// handleEdit loads a transaction into the form.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		BadRequestError(msgInvalidID).Reswap("none").TriggerErrorNotification(msgInvalidID).Write(w)
		return
	}
	ctx, notices := services.CollectNotices(r.Context())
	page, err := s.tracker.BeginEdit(ctx, id)
	if errors.Is(err, services.ErrSubmitInFlight) {
		ConflictError(msgSubmitInFlight).Write(w)
		return
	}
	s.renderPartial(w, r, render.TemplateForm, page, notices)
}

// handleReset cancels an edit.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	page, err := s.tracker.Cancel()
	if errors.Is(err, services.ErrSubmitInFlight) {
		ConflictError(msgSubmitInFlight).Write(w)
		return
	}
	s.renderPartialWith(w, r, NewHTMXResponse().TriggerFormReset(), render.TemplateForm, page, nil)
}

// handleDelete removes a transaction after the browser confirmed it.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		BadRequestError(msgInvalidID).Reswap("none").TriggerErrorNotification(msgInvalidID).Write(w)
		return
	}
	if !ParseConfirm(r.URL.Query()) {
		NewHTMXResponse().
			Status(http.StatusBadRequest).
			Reswap("none").
			TriggerWarningNotification(msgNotConfirmed).
			Write(w)
		return
	}

	ctx, notices := services.CollectNotices(r.Context())
	page, ok := s.tracker.Delete(ctx, id, true)
	if !ok {
		// Nothing changed; the row stays where it is.
		NewHTMXResponse().Reswap("none").TriggerNotices(notices.All()).Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.deletes, 1)
	s.renderPartial(w, r, render.TemplateDashboard, page, notices)
}

// renderPartial executes a partial and attaches the request's notices as a
// show-notification trigger.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, page render.Page, notices *services.Notices) {
	s.renderPartialWith(w, r, NewHTMXResponse(), name, page, notices)
}

func (s *Server) renderPartialWith(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, name string, page render.Page, notices *services.Notices) {
	if s.renderer == nil {
		InternalServerError(msgTemplatesFailed).Reswap("none").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, name, page); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution error",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
		InternalServerError("Error rendering page").Reswap("none").Write(w)
		return
	}

	if notices != nil {
		resp.TriggerNotices(notices.All())
	}
	resp.BodyHTML(buf.String()).Write(w)
}
