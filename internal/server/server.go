// Package server exposes the report service over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/skill-bright/cde-huddle-sub001/internal/config"
	"github.com/skill-bright/cde-huddle-sub001/internal/model"
	"github.com/skill-bright/cde-huddle-sub001/internal/report"
)

// Drafter suggests a standup update from notes.
type Drafter interface {
	Generate(ctx context.Context, person model.Member, notes string) (model.Draft, error)
}

type Server struct {
	svc    *report.Service
	drafts Drafter
	logger *slog.Logger
	engine *gin.Engine
	http   *http.Server
}

// New builds the router. drafts may be nil when AI is disabled. When
// cfg.AuthSecret is set every /api route requires a bearer token.
func New(cfg config.ServerConfig, svc *report.Service, drafts Drafter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{svc: svc, drafts: drafts, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group("/api")
	if cfg.AuthSecret != "" {
		api.Use(requireToken([]byte(cfg.AuthSecret)))
	}
	api.GET("/team", s.team)
	api.POST("/updates", s.submitUpdate)
	api.GET("/history", s.history)
	api.GET("/reports", s.getReport)
	api.GET("/reports/snapshots", s.listSnapshots)
	api.POST("/reports/snapshots", s.saveSnapshot)
	api.POST("/drafts", s.draft)

	s.engine = r
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves in the background until Shutdown is called.
func (s *Server) Start() {
	go func() {
		s.logger.Info("server starting", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed", "err", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if member := c.GetString(memberKey); member != "" {
			attrs = append(attrs, "member", member)
		}
		s.logger.Debug("http request", attrs...)
	}
}
