package echo

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/GriffinCanCode/etherpipe/internal/exchange"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HTTPServer serves POST /exchange, GET /health and the /ws websocket.
type HTTPServer struct {
	lis  net.Listener
	srv  *http.Server
	opts options
	done chan struct{}
}

// ListenHTTP binds addr and starts serving.
func ListenHTTP(addr string, opts ...Option) (*HTTPServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	if o.maxConns > 0 {
		lis = netutil.LimitListener(lis, o.maxConns)
	}

	s := &HTTPServer{
		lis:  lis,
		opts: o,
		done: make(chan struct{}),
	}
	s.srv = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.logger.Warn("HTTP serve stopped", zap.Error(err))
		}
	}()
	return s, nil
}

// Router builds the gin engine; exposed for httptest.
func (s *HTTPServer) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if len(s.opts.cors) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  s.opts.cors,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", "Accept", "Origin", exchange.RequestIDHeader},
			ExposeHeaders: []string{exchange.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limited := router.Group("/")
	if s.opts.rateLimit != nil {
		limited.Use(rateLimit(*s.opts.rateLimit, time.Now))
	}
	limited.POST(exchange.DefaultHTTPPath, s.handleExchange)
	limited.GET(exchange.DefaultWSPath, s.handleWS)
	return router
}

// Addr returns the bound address.
func (s *HTTPServer) Addr() string {
	return s.lis.Addr().String()
}

// Close shuts the server down.
func (s *HTTPServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}

func (s *HTTPServer) handleExchange(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var msg exchange.Message
	if err := sonic.Unmarshal(body, &msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message"})
		return
	}

	reply, err := s.answer(msg)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", reply)
}

func (s *HTTPServer) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.opts.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.opts.logger.Debug("WebSocket read ended", zap.Error(err))
			}
			return
		}

		var msg exchange.Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			s.opts.logger.Warn("Invalid websocket message", zap.Error(err))
			continue
		}

		reply, err := s.answer(msg)
		if err != nil {
			// No reply; the client times out the exchange.
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			s.opts.logger.Debug("WebSocket write failed", zap.Error(err))
			return
		}
	}
}

func (s *HTTPServer) answer(msg exchange.Message) ([]byte, error) {
	v, err := s.opts.responder(msg.Value)
	if err != nil {
		return nil, err
	}
	return sonic.Marshal(exchange.Message{Value: v, RequestID: msg.RequestID})
}
