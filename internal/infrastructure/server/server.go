package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/etherpipe/internal/pipeline"
)

// Server exposes health, Prometheus metrics and the latest run report.
type Server struct {
	router   *gin.Engine
	metrics  *monitoring.Metrics
	gatherer prometheus.Gatherer
	logger   *logging.Logger

	mu     sync.RWMutex
	report *pipeline.Report
	state  string

	lis  net.Listener
	srv  *http.Server
	done chan struct{}
}

// NewServer creates a status server instance
func NewServer(metrics *monitoring.Metrics, gatherer prometheus.Gatherer, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))

	s := &Server{
		router:   router,
		metrics:  metrics,
		gatherer: gatherer,
		logger:   logger,
		state:    "starting",
	}

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/stats", s.stats)

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetState records the pipeline phase reported by /health.
func (s *Server) SetState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// SetReport publishes a finished run on /stats.
func (s *Server) SetReport(r *pipeline.Report) {
	s.mu.Lock()
	s.report = r
	s.state = "finished"
	s.mu.Unlock()
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.lis = lis
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})

	s.logger.Info("Starting status server", zap.String("addr", lis.Addr().String()))
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// Wait blocks until ctx is done or the server stops, so a finished report
// stays reachable on /stats after the run.
func (s *Server) Wait(ctx context.Context) {
	if s.srv == nil {
		return
	}
	s.logger.Info("Serving final report until interrupted", zap.String("addr", s.Addr()))
	select {
	case <-ctx.Done():
	case <-s.done:
	}
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	s.logger.Info("Shutting down status server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}

func (s *Server) health(c *gin.Context) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"pipeline": state,
	})
}

func (s *Server) stats(c *gin.Context) {
	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()

	body := gin.H{"metrics": s.metrics.Snapshot()}
	if report != nil {
		body["report"] = report
	}
	c.JSON(http.StatusOK, body)
}
