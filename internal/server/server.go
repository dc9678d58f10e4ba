package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"spellbreak/config"
	"spellbreak/internal/admin"
	"spellbreak/internal/api"
	"spellbreak/internal/auth"
	"spellbreak/internal/db"
	"spellbreak/internal/db/models"
	"spellbreak/internal/metrics"
	"spellbreak/internal/nats"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

//go:embed static/secret.html
var secretPage []byte

type Server struct {
	cfg     *config.Config
	router  *mux.Router
	handler http.Handler
	metrics *metrics.Metrics
}

// New assembles the full HTTP surface: the JSON:API resources, the gated
// /secret page, the admin console and the metrics endpoint.
func New(cfg *config.Config, gdb *gorm.DB, publisher nats.Publisher) (*Server, error) {
	s := &Server{cfg: cfg, router: mux.NewRouter()}
	basic := auth.NewBasic(&cfg.Auth)

	if err := api.Register(s.router, gdb, publisher, api.OptionsFromConfig(&cfg.API)); err != nil {
		return nil, fmt.Errorf("failed to register api routes: %w", err)
	}

	s.router.Handle("/secret", auth.RateLimit(cfg.Auth.RateLimit)(basic.Middleware(http.HandlerFunc(serveSecret)))).
		Methods(http.MethodGet).Name("secret")

	if cfg.Admin.Enabled {
		h, err := admin.New(gdb, cfg.Admin.PageSize)
		if err != nil {
			return nil, err
		}
		h.Register(s.router, "/admin").Use(basic.Middleware)
	}

	if cfg.Metrics.Enabled {
		s.metrics = metrics.New(map[string]metrics.Counter{
			"users":   db.NewRepository[models.User](gdb),
			"tourns":  db.NewRepository[models.Tourn](gdb),
			"records": db.NewRepository[models.Record](gdb),
		})
		s.router.Handle(cfg.Metrics.Path, s.metrics.Handler()).Methods(http.MethodGet)
	}

	var handler http.Handler = s.router
	if cfg.Auth.Force {
		handler = basic.Middleware(handler)
	}
	s.handler = s.logRequests(handler)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr(),
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Server is listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func serveSecret(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(secretPage)
}
