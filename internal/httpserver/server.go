// internal/httpserver/server.go
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/sps30-replicator/internal/config"
)

// Server wraps the gin engine and its http.Server.
type Server struct {
	srv *http.Server
}

// LatestSource returns the last cached reading fields of a unit.
// *cache.Store implements it.
type LatestSource interface {
	Latest(ctx context.Context, unit string) (map[string]string, error)
}

// Option configures a Server.
type Option func(*options)

type options struct {
	cache LatestSource
}

// WithCache serves cached readings for units with no fresh reading yet.
func WithCache(src LatestSource) Option {
	return func(o *options) { o.cache = src }
}

// New builds the router: health probes, metrics and the unit API.
func New(cfg config.HTTPConfig, metricsHandler http.Handler, board *Board, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if board == nil || board.Ready() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = config.DefaultMetricsPath
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	if board != nil {
		api := r.Group("/api")
		api.GET("/units", func(c *gin.Context) {
			c.JSON(http.StatusOK, board.Units())
		})
		api.GET("/units/:id", func(c *gin.Context) {
			v, ok := board.Unit(c.Param("id"))
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown unit"})
				return
			}
			if v.Reading == nil && o.cache != nil {
				fields, err := o.cache.Latest(c.Request.Context(), v.Unit)
				if err != nil {
					c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
					return
				}
				if len(fields) > 0 {
					v.Cached = fields
				}
			}
			c.JSON(http.StatusOK, v)
		})
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{srv: srv}
}

// Start serves HTTP until Shutdown (blocking).
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
