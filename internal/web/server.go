package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/ssk4988/nim/internal/app"
)

type Option func(*handlers)

// WithHeartbeat sets how often idle event streams and sockets are pinged.
func WithHeartbeat(d time.Duration) Option {
	return func(h *handlers) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, options ...Option) http.Handler {
	h := &handlers{svc: s, tpl: loadTemplates(), heartbeat: defaultHeartbeat}
	for _, option := range options {
		option(h)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/", h.index)
	r.Get("/health", h.health)
	r.Post("/game", h.create)
	r.Get("/g", h.join)
	r.Get("/g/{code}", h.join)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/play", h.play)
		r.Post("/undo", h.undo)
		r.Get("/hint", h.hint)
		r.Get("/events", h.events)
		r.Get("/ws", h.socket)
	})
	r.Get("/stats/{kind}", h.stats)
	r.Get("/recent", h.recent)
	return r
}

// requestLogger writes one structured line per request once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("req", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("http")
		}()
		next.ServeHTTP(ww, r)
	})
}
