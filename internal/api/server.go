// Package api exposes header mapping over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/header-mapper/internal/model"
)

const (
	defaultMaxUpload = 10 << 20
	maxJSONBody      = 1 << 20
)

// Mapper infers header mappings.
type Mapper interface {
	Map(ctx context.Context, headers []string) (*model.MappingResult, error)
	MapTable(ctx context.Context, table *model.RawTable) (*model.MappingResult, model.Stats, error)
}

// IngestObserver is told about every uploaded file.
type IngestObserver interface {
	ObserveIngest(format string, rows int, err error)
}

// Options configures the HTTP surface.
type Options struct {
	// MaxUploadBytes caps multipart uploads. Zero means 10 MiB.
	MaxUploadBytes int64
	// CORSOrigins lists allowed browser origins. Empty allows any.
	CORSOrigins []string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Ingest observes uploads when set.
	Ingest IngestObserver
}

// Server holds the handlers' dependencies.
type Server struct {
	mapper Mapper
	opts   Options
}

// NewServer creates a Server.
func NewServer(mapper Mapper, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{mapper: mapper, opts: opts}
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	r.Post("/process-headers", s.handleProcessHeaders)
	r.Post("/upload", s.handleUpload)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
