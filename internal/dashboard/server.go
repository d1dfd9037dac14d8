package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"contextgate/config"
	"contextgate/internal/app"
	"contextgate/internal/metrics"
	"contextgate/logger"
)

const activityHistory = 200

// Server exposes the application over a JSON API served by Gin.
type Server struct {
	cfg           config.DashboardConfig
	app           *app.App
	log           *logger.Log
	activity      *activity
	metricHandler metrics.MetricHandlerID
	httpServer    *http.Server
}

// NewServer constructs the API server when the dashboard feature is enabled.
// When the dashboard is disabled the returned server will be nil.
func NewServer(cfg config.DashboardConfig, a *app.App, log *logger.Log) (*Server, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if a == nil {
		return nil, errors.New("dashboard: nil app")
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Minute
	}

	act := newActivity(activityHistory)
	log.AddHook(act)

	return &Server{
		cfg:           cfg,
		app:           a,
		log:           log,
		activity:      act,
		metricHandler: metrics.RegisterMetricHandler(act.handleMetric),
	}, nil
}

// Run starts the HTTP server and blocks until the provided context is
// cancelled or the underlying HTTP server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}
	defer s.cleanup()

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.WithComponent("dashboard").WithFields(logger.Fields{
		"address":    s.cfg.Address,
		"pin_locked": s.cfg.PIN != "",
	}).Info("dashboard listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	metrics.UnregisterMetricHandler(s.metricHandler)
	if s.activity != nil {
		s.activity.close()
	}
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.GET("/reference", s.handleReference)
	api.GET("/activity", s.handleActivity)
	api.GET("/evaluate/:pair", s.handleEvaluate)
	api.GET("/contexts", s.handleListContexts)
	api.POST("/contexts", s.handleSaveContext)
	api.POST("/risk", s.handleRisk)
	api.GET("/trades", s.handleListTrades)
	api.GET("/downloads/contexts.csv", s.handleDownload(func() string { return s.app.Config().Journal.ContextFile }, "context_gate_journal.csv"))
	api.GET("/downloads/trades.csv", s.handleDownload(func() string { return s.app.Config().Journal.TradeFile }, "journal.csv"))

	locked := api.Group("/trades", s.requirePIN())
	locked.POST("", s.handleConfirmTrade)
	locked.POST("/:id/close", s.handleCloseTrade)
	locked.POST("/:id/result", s.handleAttachResult)

	return router, nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := s.log.WithComponent("dashboard").WithFields(logger.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		})
		logger.LogPerformanceEntry(entry, "dashboard", "http_request", time.Since(start), nil)
	}
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
