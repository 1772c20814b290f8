// Package httpserver exposes the connection scaffold over a JSON API: CRUD
// for each entity kind on either database target, migration operations, and
// a health probe.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dualbase/internal/config"
	"dualbase/internal/entity"
	"dualbase/internal/model"
)

type Server struct {
	cfg              config.Config
	logger           requestLogger
	health           healthReporter
	facade           *entity.Facade
	migrationHandler *MigrationHandler
}

type requestLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

func New(cfg config.Config, logger requestLogger, health healthReporter, facade *entity.Facade, migrations migrationService) *Server {
	return &Server{
		cfg:              cfg,
		logger:           logger,
		health:           health,
		facade:           facade,
		migrationHandler: NewMigrationHandler(migrations, logger),
	}
}

func (s *Server) Start(ctx context.Context) error {
	r := s.routes()
	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddress,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.cfg.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RequestLogger(s.logger))

	users := &entityResource[model.User, *model.User]{facade: s.facade, logger: s.logger, kind: model.KindUsers}
	tenants := &entityResource[model.Tenant, *model.Tenant]{facade: s.facade, logger: s.logger, kind: model.KindTenants}
	organizations := &entityResource[model.Organization, *model.Organization]{facade: s.facade, logger: s.logger, kind: model.KindOrganizations}

	r.Route("/api/v1", func(api chi.Router) {
		api.Method(http.MethodGet, "/health", HealthHandler{Reporter: s.health})

		api.Route("/{target}", func(tr chi.Router) {
			users.mount(tr)
			tenants.mount(tr)
			organizations.mount(tr)

			tr.Route("/migrations", func(mg chi.Router) {
				mg.Get("/", s.migrationHandler.Status)
				mg.Get("/history", s.migrationHandler.History)
				mg.Post("/run", s.migrationHandler.Run)
				mg.Post("/revert", s.migrationHandler.Revert)
			})
		})
	})

	return r
}
