package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		hlog.NewHandler(log.Logger),
		hlog.RequestIDHandler("requestId", "X-Request-Id"),
		s.withRecover,
		s.withMetrics,
		s.withBodyLimit,
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if s.opts.HTTP != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.HTTP.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/media/upload-url", s.handleUploadURL)
			r.Get("/media", s.handleList)
			r.Get("/media/shared", s.handleListShared)
			r.Get("/media/{id}", s.handleGet)
			r.Post("/media/{id}/confirm", s.handleConfirm)
			r.Post("/media/{id}/share", s.handleShare)
		})
	})

	return gzhttp.GzipHandler(r)
}
