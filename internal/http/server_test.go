package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendlens/internal/log"
	"spendlens/internal/services"
	"spendlens/internal/statement"
)

const sampleCSV = `Date,Narration,Amount
2024-01-05,UBER TRIP 123,-20
2024-01-20,SALARY ACME,1000
2024-02-03,UBER TRIP 456,-15.5
2024-02-10,GST TAX PAYMENT,-3
`

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	svc := services.NewStatementService(
		statement.NewPipeline(statement.DefaultRules()),
		services.WithLogger(logger),
	)
	opts.Logger = logger
	srv := NewServer(svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func postFile(t *testing.T, srv *Server, target, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, uploadField, "statement.csv", content)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %q", rec.Body.String())
	}
	return body.Detail
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rec.Code)
	}
	var root map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &root); err != nil {
		t.Fatal(err)
	}
	if root["status"] != "ok" || root["message"] != "Backend is running" {
		t.Fatalf("GET / body = %v", root)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s response has no request id", path)
		}
	}
}

func TestReady_RecorderDown(t *testing.T) {
	srv := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("broker unreachable") }})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "broker unreachable") {
		t.Fatalf("body does not name the failure: %s", rec.Body.String())
	}
}

func TestUpload(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := postFile(t, srv, "/upload?limit=2&offset=1", sampleCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Run-ID") == "" {
		t.Fatal("missing X-Run-ID header")
	}

	var page struct {
		Transactions    []map[string]any `json:"transactions"`
		CategorySummary []map[string]any `json:"category_summary"`
		Total           int              `json:"total"`
		Limit           int              `json:"limit"`
		Offset          int              `json:"offset"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}

	// the tax row is dropped
	if page.Total != 3 || page.Limit != 2 || page.Offset != 1 {
		t.Fatalf("page header = total %d limit %d offset %d", page.Total, page.Limit, page.Offset)
	}
	if len(page.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(page.Transactions))
	}
	if got := page.Transactions[1]["category"]; got != "Transport" {
		t.Fatalf("third row category = %v, want Transport", got)
	}
	if got := page.Transactions[1]["narration"]; got != "uber trip" {
		t.Fatalf("third row narration = %v, want cleaned text", got)
	}

	var transport float64
	for _, row := range page.CategorySummary {
		if row["category"] == "Transport" {
			transport = row["amount"].(float64)
		}
	}
	if transport != -35.5 {
		t.Fatalf("Transport total = %v, want -35.5", transport)
	}
}

func TestUpload_PaginationClampedAndRejected(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantCount  int
	}{
		{"defaults", "", http.StatusOK, 20, 3},
		{"limit clamped up", "?limit=0", http.StatusOK, 1, 1},
		{"limit clamped down", "?limit=500", http.StatusOK, 100, 3},
		{"offset past end", "?offset=10", http.StatusOK, 20, 0},
		{"negative offset", "?offset=-4", http.StatusOK, 20, 3},
		{"non-integer limit", "?limit=ten", http.StatusBadRequest, 0, 0},
		{"non-integer offset", "?offset=1.5", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postFile(t, srv, "/upload"+tt.query, sampleCSV)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if decodeDetail(t, rec) == "" {
					t.Fatal("error response without detail")
				}
				return
			}
			var page struct {
				Transactions []json.RawMessage `json:"transactions"`
				Limit        int               `json:"limit"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
				t.Fatal(err)
			}
			if page.Limit != tt.wantLimit || len(page.Transactions) != tt.wantCount {
				t.Fatalf("limit %d with %d transactions, want %d with %d",
					page.Limit, len(page.Transactions), tt.wantLimit, tt.wantCount)
			}
		})
	}
}

func TestUpload_BadInput(t *testing.T) {
	srv := newTestServer(t, Options{MaxUploadBytes: 512})

	t.Run("empty file", func(t *testing.T) {
		rec := postFile(t, srv, "/upload", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("ragged csv", func(t *testing.T) {
		rec := postFile(t, srv, "/upload", "a,b\n1,2,3\n")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong field name", func(t *testing.T) {
		body, contentType := multipartBody(t, "upload", "x.csv", sampleCSV)
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(decodeDetail(t, rec), "file") {
			t.Fatalf("detail should name the missing field: %s", rec.Body.String())
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(sampleCSV))
		req.Header.Set("Content-Type", "text/csv")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("too large", func(t *testing.T) {
		rec := postFile(t, srv, "/upload", sampleCSV+strings.Repeat("2024-03-01,uber,-1\n", 100))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want 413", rec.Code)
		}
	})
}

func TestViews(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		path string
		want string
	}{
		{"/monthly_trend", `[{"month":"2024-01","amount":980},{"month":"2024-02","amount":-15.5}]`},
		{"/monthly_category_breakdown", `[{"month":"2024-01","Transport":-20,"Unclassified":1000},{"month":"2024-02","Transport":-15.5,"Unclassified":0}]`},
		{"/top_merchants", `[{"narration":"salary acme","amount":1000},{"narration":"uber trip","amount":35.5}]`},
		{"/income_vs_expense", `[{"month":"2024-01","income":1000,"expense":20},{"month":"2024-02","income":0,"expense":15.5}]`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := postFile(t, srv, tt.path, sampleCSV)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.want {
				t.Fatalf("body = %s\nwant   %s", got, tt.want)
			}
		})
	}
}

func TestViews_MissingColumnsGiveEmptyArrays(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/monthly_trend", "/monthly_category_breakdown", "/top_merchants", "/income_vs_expense"} {
		rec := postFile(t, srv, path, "foo,bar\n1,2\n")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
			t.Fatalf("%s body = %s, want []", path, got)
		}
	}
}

func TestRouting(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /upload status = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || decodeDetail(t, rec) != "Not Found" {
		t.Fatalf("GET /nope status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, postFile(t, srv, "/monthly_trend", sampleCSV).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v", codes)
	}

	// GET requests are not limited
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz status = %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, Options{})
	postFile(t, srv, "/upload", sampleCSV)
	postFile(t, srv, "/monthly_trend", sampleCSV)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"statement_runs_total 2\n",
		"statement_rows_in_total 8\n",
		"http_requests_total 3\n",
		"# TYPE result_cache_entries gauge",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"statement.csv", "statement.csv"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\bank.csv`, "bank.csv"},
		{"bad\x00name\n.csv", "badname.csv"},
		{"", ""},
		{strings.Repeat("a", 300), strings.Repeat("a", 255)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
