package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/report"
	"spendlens/internal/services"
	"spendlens/internal/statement"
)

const readyTimeout = 5 * time.Second

type namedView struct {
	endpoint string
	view     services.ViewFunc
}

// views lists the aggregation endpoints. Each takes an uploaded file and
// returns a JSON array.
func views() []namedView {
	return []namedView{
		{core.EndpointMonthlyTrend, report.MonthlyTrend},
		{core.EndpointMonthlyCategoryBreakdown, report.MonthlyCategoryBreakdown},
		{core.EndpointTopMerchants, topMerchants},
		{core.EndpointIncomeVsExpense, report.IncomeVsExpense},
	}
}

func topMerchants(t *statement.Table, caps statement.Capabilities) []statement.Record {
	return report.TopMerchants(t, caps, report.DefaultTopMerchants)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Body(map[string]string{"status": "ok", "message": "Backend is running"}).
		Write(w)
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Body(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(s.started).Round(time.Second).String(),
		}).
		Write(w)
}

// handleReady checks the run recorder. Categorization itself has no
// dependencies, so the recorder is the only thing that can be unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"recorder": "ok"}
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["recorder"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	NewJSONResponse().
		Status(code).
		Body(map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleMetrics writes process counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	svc := s.service.Metrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "gauge", "Requests currently being served", traceMetrics.InFlight)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_request_duration_avg_microseconds", "gauge", "Mean request duration", traceMetrics.AverageMicros)

	metric("statement_runs_total", "counter", "Categorization runs", svc.Runs)
	metric("statement_failures_total", "counter", "Uploads rejected before categorization", svc.Failures)
	metric("statement_rows_in_total", "counter", "Rows read from uploads", svc.RowsIn)
	metric("statement_rows_out_total", "counter", "Rows left after filtering", svc.RowsOut)
	metric("statement_record_failures_total", "counter", "Runs the recorder failed to accept", svc.RecordFails)

	metric("result_cache_hits_total", "counter", "Result cache hits", svc.Cache.Hits)
	metric("result_cache_misses_total", "counter", "Result cache misses", svc.Cache.Misses)
	metric("result_cache_evictions_total", "counter", "Result cache evictions", svc.Cache.Evictions)
	metric("result_cache_entries", "gauge", "Result cache entries", svc.Cache.Size)

	metric("rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", rateMetrics.Rejected)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", rateMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests flagged as probes", securityMetrics.SuspiciousRequests)

	metric("uptime_seconds", "gauge", "Process uptime in seconds", int64(time.Since(s.started).Seconds()))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := ParsePagination(r.URL.Query())
	if err != nil {
		s.writeError(w, r, core.EndpointUpload, err)
		return
	}

	up, err := s.readUpload(w, r, core.EndpointUpload)
	if err != nil {
		s.writeError(w, r, core.EndpointUpload, err)
		return
	}

	c, err := s.service.Categorize(r.Context(), up)
	if err != nil {
		s.writeError(w, r, core.EndpointUpload, err)
		return
	}

	page := s.service.Page(c, limit, offset, report.CategorySummary)
	NewJSONResponse().
		Header("X-Run-ID", c.RunID).
		Body(page).
		Write(w)
}

func (s *Server) handleView(endpoint string, view services.ViewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, err := s.readUpload(w, r, endpoint)
		if err != nil {
			s.writeError(w, r, endpoint, err)
			return
		}

		rows, err := s.service.Aggregate(r.Context(), up, view)
		if err != nil {
			s.writeError(w, r, endpoint, err)
			return
		}
		NewJSONResponse().Body(rows).Write(w)
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusNotFound, "Not Found").Write(w)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusMethodNotAllowed, "Method Not Allowed").Write(w)
}

// writeError maps err onto a status code. Client mistakes get their message
// back; anything else is logged and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		s.logger.WarnContext(r.Context(), "Rejected request",
			log.FieldEndpoint, endpoint, log.FieldStatusCode, reqErr.Status, log.FieldError, err.Error())
		ErrorResponse(reqErr.Status, reqErr.Detail).Write(w)
	case statement.IsInputError(err):
		s.logger.WarnContext(r.Context(), "Rejected upload",
			log.FieldEndpoint, endpoint, log.FieldError, err.Error())
		BadRequestError(err.Error()).Write(w)
	default:
		s.events.LogError(r.Context(), "Request failed", err, log.OpCategorize,
			log.LogFields{log.FieldEndpoint: endpoint})
		InternalServerError("Internal Server Error").Write(w)
	}
}
