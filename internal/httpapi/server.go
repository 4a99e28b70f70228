// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package httpapi serves the REST control surface, health probes and
// Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Thermoquad/tclstat/internal/config"
	"github.com/Thermoquad/tclstat/internal/daemon"
	"github.com/Thermoquad/tclstat/pkg/tclac"
)

// submitTimeout bounds how long a request waits for the runner
const submitTimeout = 5 * time.Second

// Controller is the runner surface the API needs
type Controller interface {
	Snapshot() tclac.DeviceState
	Updated() time.Time
	Submit(ctx context.Context, req tclac.ControlRequest) (tclac.DeviceState, error)
	Ready() bool
}

// Server wraps the gin engine and its http.Server
type Server struct {
	srv     *http.Server
	ctrl    Controller
	limiter *rate.Limiter
	log     *zap.Logger
}

// New builds the router. metricsHandler may be nil to disable /metrics.
func New(cfg config.HTTPConfig, ctrl Controller, metricsHandler http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		ctrl:    ctrl,
		limiter: rate.NewLimiter(rate.Limit(cfg.ControlRate), cfg.ControlBurst),
		log:     log,
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if ctrl.Ready() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/state", s.getState)
	v1.POST("/control", s.rateLimit(), s.postControl)

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until Shutdown (blocking)
func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			s.log.Warn("control rate limited", zap.String("remote_addr", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		c.Next()
	}
}

func (s *Server) getState(c *gin.Context) {
	v := NewStateView(s.ctrl.Snapshot())
	if at := s.ctrl.Updated(); !at.IsZero() {
		v.UpdatedAt = &at
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) postControl(c *gin.Context) {
	var body ControlBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := body.Request()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty control request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout)
	defer cancel()

	state, err := s.ctrl.Submit(ctx, req)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, NewStateView(state))
	case errors.Is(err, daemon.ErrNotRunning), errors.Is(err, daemon.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		s.log.Warn("control request failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
