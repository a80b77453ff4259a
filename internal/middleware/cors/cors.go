package cors

import (
	"net/http"
	"strconv"
	"strings"
)

const defaultMaxAge = 600

// Config controls cross-origin access. An AllowedOrigins entry of "*"
// allows every origin.
type Config struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         int
}

type Middleware struct {
	anyOrigin bool
	origins   map[string]struct{}
	methods   string
	headers   string
	exposed   string
	maxAge    string
}

func New(cfg Config) *Middleware {
	m := &Middleware{origins: make(map[string]struct{})}
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			m.anyOrigin = true
			continue
		}
		if o != "" {
			m.origins[strings.ToLower(o)] = struct{}{}
		}
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "X-Request-ID"}
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}

	m.methods = strings.Join(methods, ", ")
	m.headers = strings.Join(headers, ", ")
	m.exposed = strings.Join(cfg.ExposedHeaders, ", ")
	m.maxAge = strconv.Itoa(maxAge)
	return m
}

func (m *Middleware) allowed(origin string) bool {
	if m.anyOrigin {
		return true
	}
	_, ok := m.origins[strings.ToLower(origin)]
	return ok
}

// Handler sets CORS headers for allowed origins and answers preflight
// requests with 204 without calling next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

		if origin != "" && m.allowed(origin) {
			h := w.Header()
			if m.anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			if m.exposed != "" {
				h.Set("Access-Control-Expose-Headers", m.exposed)
			}
			if preflight {
				h.Set("Access-Control-Allow-Methods", m.methods)
				h.Set("Access-Control-Allow-Headers", m.headers)
				h.Set("Access-Control-Max-Age", m.maxAge)
			}
		}

		if preflight {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
