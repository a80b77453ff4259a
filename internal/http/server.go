package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"spendlens/internal/backend"
	"spendlens/internal/log"
	"spendlens/internal/middleware/cors"
	"spendlens/internal/middleware/ratelimit"
	"spendlens/internal/middleware/security"
	"spendlens/internal/middleware/trace"
	"spendlens/internal/services"
)

const (
	defaultMaxUploadBytes = 10 << 20
	readHeaderTimeout     = 10 * time.Second
	readTimeout           = 60 * time.Second
	writeTimeout          = 60 * time.Second
	idleTimeout           = 120 * time.Second
)

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Addr               string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Ready reports whether the run recorder is usable. Nil means always ready.
	Ready  backend.ReadyFunc
	Logger *log.Logger
}

// Server serves the statement API.
type Server struct {
	http.Server
	service *services.StatementService
	logger  *log.Logger
	events  *log.StructuredLogger
	ready   backend.ReadyFunc

	maxUploadBytes int64
	started        time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(svc *services.StatementService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	detector := security.NewDetector(logger.WithComponent(log.ComponentSecurity).Slog())
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ErrorLog:          slogErrorLog(httpLogger),
		},
		service:          svc,
		logger:           httpLogger,
		events:           log.NewStructuredLogger(httpLogger),
		ready:            opts.Ready,
		maxUploadBytes:   maxUpload,
		started:          time.Now(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(httpLogger, detector.ExtractClientIP),
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	router.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	for _, v := range views() {
		router.HandleFunc("/"+v.endpoint, s.handleView(v.endpoint, v.view)).Methods(http.MethodPost)
	}

	// Outermost first: CORS answers preflights before routing, trace sees
	// every other request, rate limiting applies to POST only.
	var handler http.Handler = router
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, ratelimit.OnlyMethods(http.MethodPost), s.handleRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = cors.New(cors.Config{
		AllowedOrigins: origins,
		ExposedHeaders: []string{trace.HeaderRequestID},
	}).Handler(handler)

	s.Handler = handler
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
