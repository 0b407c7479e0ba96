package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Thejas775/Browser-Agent/internal/config"
	"github.com/Thejas775/Browser-Agent/internal/control"
	"github.com/Thejas775/Browser-Agent/internal/metrics"
)

// Server serves the control panel page.
type Server struct {
	echo     *echo.Echo
	driver   *control.Driver
	ui       config.UIConfig
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

type Option func(*Server)

// WithMetrics records request metrics into m and exposes g on /metrics.
func WithMetrics(m *metrics.Collector, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(d *control.Driver, ui config.UIConfig, opts ...Option) *Server {
	s := &Server{
		driver: d,
		ui:     ui,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "web"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = newRenderer()
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.observe)

	e.GET("/", s.index)
	e.POST("/start", s.start)
	e.POST("/stop", s.stop)
	e.GET("/logs", s.logs)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	s.echo = e
	return s
}

func (s *Server) Handler() http.Handler { return s.echo }

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) defaults() control.RunRequest {
	return control.RunRequest{
		MaxSteps:          control.ClampSteps(orDefault(s.ui.DefaultMaxSteps, control.DefaultSteps)),
		MaxActionsPerStep: control.ClampActions(orDefault(s.ui.DefaultMaxActions, control.DefaultActionsPerStep)),
	}
}

func (s *Server) index(c echo.Context) error {
	return c.Render(http.StatusOK, indexTemplate, s.view(s.defaults(), ""))
}

func (s *Server) start(c echo.Context) error {
	def := s.defaults()
	req := control.RunRequest{
		Task:              strings.TrimSpace(c.FormValue("task")),
		MaxSteps:          control.ClampSteps(formInt(c, "max_steps", def.MaxSteps)),
		MaxActionsPerStep: control.ClampActions(formInt(c, "max_actions", def.MaxActionsPerStep)),
	}

	// The run outlives the request: closing the tab must not cancel it.
	ctx := context.WithoutCancel(c.Request().Context())
	err := s.driver.Start(ctx, req)
	switch {
	case err == nil, errors.Is(err, control.ErrEmptyTask):
		return c.Render(http.StatusOK, indexTemplate, s.view(req, ""))
	case errors.Is(err, control.ErrRunInFlight):
		return c.Render(http.StatusConflict, indexTemplate, s.view(req, err.Error()))
	default:
		return c.Render(http.StatusOK, indexTemplate, s.view(req, err.Error()))
	}
}

func (s *Server) stop(c echo.Context) error {
	if s.driver.Session().Stop() {
		s.logger.Info("run flag cleared by user")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) logs(c echo.Context) error {
	return c.JSON(http.StatusOK, s.driver.Session().State())
}

func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(c.Request().Method, c.Path(), status, elapsed)
		s.logger.Debug("request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
		)
		return err
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

func formInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.FormValue(name)))
	if err != nil {
		return def
	}
	return n
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
