package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gracestream/gracestream/internal/database"
	"github.com/gracestream/gracestream/internal/ratelimit"
	"github.com/gracestream/gracestream/internal/sermon"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB            database.DBTX
	Pinger        Pinger
	Storage       sermon.ObjectStorage
	Geo           sermon.GeoResolver
	TokenSecret   string
	HMACSecret    string
	SecureCookies bool
}

type Server struct {
	router        chi.Router
	pinger        Pinger
	sermonHandler *sermon.Handler
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(slogMiddleware)
	r.Use(securityHeaders)

	s := &Server{router: r, pinger: cfg.Pinger}
	if cfg.DB != nil {
		s.sermonHandler = sermon.NewHandler(cfg.DB, cfg.Storage, cfg.Geo,
			cfg.TokenSecret, cfg.HMACSecret, cfg.SecureCookies)
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.sermonHandler != nil {
		watchLimiter := ratelimit.NewLimiter(2, 10)
		telemetryLimiter := ratelimit.NewLimiter(1, 5)

		s.router.Route("/api/watch/{shareToken}", func(r chi.Router) {
			r.With(watchLimiter.Middleware).Get("/", s.sermonHandler.Watch)
			r.With(watchLimiter.Middleware).Post("/password", s.sermonHandler.VerifyWatchPassword)
			r.With(telemetryLimiter.Middleware).Post("/view", s.sermonHandler.RecordView)
			r.With(telemetryLimiter.Middleware).Post("/notes", s.sermonHandler.RecordNote)
		})
		s.router.Get("/api/sermons/{id}/analytics", s.sermonHandler.Analytics)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
