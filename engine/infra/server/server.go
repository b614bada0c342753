// Package server exposes the reconciliation pipeline and the filtered read
// side over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ingenieria/tareas-api/engine/tarea"
	"github.com/ingenieria/tareas-api/pkg/config"
	"github.com/ingenieria/tareas-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Reconciliador is the write-side port: diff-merge parsed records against
// the persisted set.
type Reconciliador interface {
	Reconcile(ctx context.Context, nuevas []*tarea.Tarea) (int, int, error)
}

// Consultas is the read-side port.
type Consultas interface {
	Filtrar(ctx context.Context, f *tarea.Filtro) ([]*tarea.Tarea, int, error)
	Facetas(ctx context.Context) (map[string][]string, error)
}

type Server struct {
	cfg       *config.Config
	log       logger.Logger
	rec       Reconciliador
	consultas Consultas
	engine    *gin.Engine
}

func New(cfg *config.Config, log logger.Logger, rec Reconciliador, consultas Consultas) *Server {
	s := &Server{cfg: cfg, log: log, rec: rec, consultas: consultas}
	s.engine = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(s.log))
	router.Use(CORSMiddleware(s.cfg.Server.AllowedOrigins))

	router.GET("/health", s.health)
	router.POST("/upload-tareas", s.uploadTareas)
	router.GET("/tareas-filtradas", s.tareasFiltradas)
	router.GET("/facetas", s.facetas)
	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}
