package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalyses "github.com/bryanwahyu/quality-gate/internal/application/analyses"
	domai "github.com/bryanwahyu/quality-gate/internal/domain/ai"
	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
	"github.com/bryanwahyu/quality-gate/internal/middleware"
)

// maxBodyBytes bounds form and JSON submissions.
const maxBodyBytes = 1 << 20

// Options configures the HTTP surface.
type Options struct {
	APIKeys     map[string]string
	CORSOrigins []string
	RateLimit   int
	RateWindow  time.Duration
	Checks      map[string]middleware.HealthChecker
	// Context stops background work such as the rate limiter sweep;
	// nil means it lives as long as the process.
	Context context.Context
}

type Router struct {
	svc   *appanalyses.Service
	pages *pages
}

func NewRouter(svc *appanalyses.Service, opts Options) http.Handler {
	r := &Router{svc: svc, pages: mustLoadPages()}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(chimw.Recoverer)

	mux.Get("/health", middleware.HealthHandler(opts.Checks, svc.ToolsStatus))
	mux.Get("/healthz/live", middleware.LivenessHandler)
	mux.Get("/healthz/ready", middleware.ReadinessHandler(opts.Checks))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Get("/", r.wrap(r.handleHome))
	mux.Get("/analyze", r.wrap(r.handleAnalyzeForm))
	mux.Post("/analyze", r.wrap(r.handleAnalyzeSubmit))
	mux.Get("/results/{id}", r.wrap(r.handleResult))
	mux.Get("/history", r.wrap(r.handleHistory))
	mux.Get("/analyses/{id}", r.wrap(r.handleDetail))
	mux.Post("/analyses/{id}/delete", r.wrap(r.handleDelete))
	mux.Get("/analyses/{id}/export/{format}", r.wrap(r.handleExport))

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Route("/api", func(rt chi.Router) {
		rt.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		rt.Use(middleware.RateLimitMiddleware(ctx, opts.RateLimit, opts.RateWindow))
		rt.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		})

		rt.Post("/analyze", r.wrapAPI(r.handleAPIAnalyze))
		rt.Get("/statistics", r.wrapAPI(r.handleAPIStatistics))
		rt.Get("/tools", r.wrapAPI(r.handleAPITools))
		rt.Get("/analyses", r.wrapAPI(r.handleAPIHistory))
		rt.Get("/analyses/{id}", r.wrapAPI(r.handleAPIGet))
		rt.Delete("/analyses/{id}", r.wrapAPI(r.handleAPIDelete))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest is returned by handlers for malformed input.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func statusFor(err error) int {
	var verr *domain.ValidationError
	var bad badRequest
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr), errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				log.Printf("request_id=%s path=%s error=%v", chimw.GetReqID(req.Context()), req.URL.Path, err)
				http.Error(w, "internal server error", status)
				return
			}
			http.Error(w, err.Error(), status)
		}
	}
}

func (r *Router) wrapAPI(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		body := map[string]any{"error": err.Error()}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			body["fields"] = verr.Fields
		}
		if status == http.StatusInternalServerError {
			log.Printf("request_id=%s path=%s error=%v", chimw.GetReqID(req.Context()), req.URL.Path, err)
			body["error"] = "internal server error"
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// analysisID reads {id}; anything that is not a UUID cannot exist.
func analysisID(req *http.Request) (domain.AnalysisID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return "", domain.ErrNotFound
	}
	return domain.AnalysisID(id), nil
}
