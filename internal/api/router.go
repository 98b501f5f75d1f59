package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/wmo-decoder/pkg/logger"
)

// Router wires the handlers, the websocket endpoint and static assets
type Router struct {
	handler   *Handler
	websocket http.HandlerFunc
	static    http.Handler
	logger    *logger.Logger
}

// NewRouter creates a new router. ws may be nil to disable live updates.
func NewRouter(handler *Handler, ws http.HandlerFunc, static http.Handler, log *logger.Logger) *Router {
	return &Router{
		handler:   handler,
		websocket: ws,
		static:    static,
		logger:    log.Named("router"),
	}
}

// Routes returns the HTTP handler for every endpoint
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)

	h := rt.handler

	// Page
	r.Get("/", h.Index)
	r.Post("/translate", h.SubmitForm)
	r.Post("/history/{id}/select", h.SelectForm)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/translate", h.Translate)
		r.Get("/history", h.GetHistory)
		r.Post("/history/{id}/select", h.SelectHistory)
		r.Get("/examples", h.GetExamples)
		r.Get("/health", h.Health)
	})

	if rt.websocket != nil {
		r.Get("/ws", rt.websocket)
	}
	if rt.static != nil {
		r.Handle("/static/*", http.StripPrefix("/static", rt.static))
	}

	return r
}

// requestLogger logs one line per request through zap
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			rt.logger.Debug("HTTP request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("elapsed", time.Since(start)),
				logger.String("request_id", middleware.GetReqID(r.Context())),
				logger.String("remote_addr", r.RemoteAddr))
		}()

		next.ServeHTTP(ww, r)
	})
}
