package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/yourorg/musigent/internal/config"
	"github.com/yourorg/musigent/internal/ledger"
	"github.com/yourorg/musigent/internal/logging"
	"github.com/yourorg/musigent/internal/metrics"
	"github.com/yourorg/musigent/internal/pipeline"
	"github.com/yourorg/musigent/internal/planner"
	"github.com/yourorg/musigent/pkg/types"
)

// DefaultDurationSec is used when a generate request omits duration_sec.
const DefaultDurationSec = 30

// Runner is the pipeline seen by the HTTP layer.
type Runner interface {
	Generate(ctx context.Context, username string, mode types.Mode, prompt string, durationSec int) (types.Result, error)
	Jingle(ctx context.Context, username string, survey types.JingleSurvey) (types.Result, error)
}

// Server exposes the pipeline over HTTP.
type Server struct {
	cfg     config.ServerConfig
	runner  Runner
	metrics *metrics.Metrics
	logger  logrus.FieldLogger
	engine  *gin.Engine
}

// New constructs a new Server with routes registered.
func New(cfg *config.Config, runner Runner, m *metrics.Metrics, logger logrus.FieldLogger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if runner == nil {
		return nil, errors.New("runner is nil")
	}
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &Server{
		cfg:     cfg.Server,
		runner:  runner,
		metrics: m,
		logger:  logging.OrDiscard(logger),
		engine:  gin.New(),
	}
	if err := srv.registerRoutes(); err != nil {
		return nil, err
	}
	return srv, nil
}

// Handler returns the http handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("http server listening")
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return hs.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() error {
	s.engine.Use(gin.Recovery(), s.requestLogger(), s.corsMiddleware())

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.engine.Group("/")
	if rate := strings.TrimSpace(s.cfg.RateLimit); rate != "" {
		r, err := limiter.NewRateFromFormatted(rate)
		if err != nil {
			return err
		}
		api.Use(mgin.NewMiddleware(limiter.New(memory.NewStore(), r)))
	}
	api.POST("/generate", s.handleGenerate)
	api.POST("/jingle", s.handleJingle)
	return nil
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 || containsWildcard(origins) {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.RecordHTTP(c.Request.Method, route, status)
		entry := s.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   status,
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type generateRequest struct {
	Mode        string `json:"mode" binding:"required"`
	Prompt      string `json:"prompt" binding:"required"`
	DurationSec *int   `json:"duration_sec"`
	Username    string `json:"username"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	duration := DefaultDurationSec
	if req.DurationSec != nil {
		duration = *req.DurationSec
	}
	if duration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_sec must be >= 0"})
		return
	}
	res, err := s.runner.Generate(c.Request.Context(), req.Username, types.ParseMode(req.Mode), req.Prompt, duration)
	s.respond(c, res, err)
}

type jingleRequest struct {
	Username        string `json:"username"`
	BrandName       string `json:"brand_name" binding:"required"`
	CompanyField    string `json:"company_field"`
	CustomerPersona string `json:"customer_persona"`
	Vibe            string `json:"vibe"`
}

func (s *Server) handleJingle(c *gin.Context) {
	var req jingleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	res, err := s.runner.Jingle(c.Request.Context(), req.Username, types.JingleSurvey{
		BrandName:       req.BrandName,
		CompanyField:    req.CompanyField,
		CustomerPersona: req.CustomerPersona,
		Vibe:            req.Vibe,
	})
	s.respond(c, res, err)
}

func (s *Server) respond(c *gin.Context, res types.Result, err error) {
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}
	var te *pipeline.ThrottleError
	switch {
	case errors.As(err, &te):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": te.Error(), "limit": te.Limit})
	case errors.Is(err, planner.ErrInvalidSurvey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrPersistence):
		s.logger.WithError(err).Error("interaction could not be recorded")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "interaction could not be recorded: " + err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
