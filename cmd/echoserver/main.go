package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/etherpipe/internal/echo"
	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/logging"
)

func main() {
	udpAddr := flag.String("udp", "localhost:8712", "UDP listen address, empty to disable")
	grpcAddr := flag.String("grpc", "", "gRPC listen address, empty to disable")
	httpAddr := flag.String("http", "", "HTTP and websocket listen address, empty to disable")
	rps := flag.Float64("rps", 0, "Per-client HTTP request limit, 0 for none")
	burst := flag.Int("burst", 10, "Per-client HTTP burst size")
	maxConns := flag.Int("max-conns", 0, "Simultaneous HTTP connections, 0 for unlimited")
	corsOrigins := flag.String("cors", "", "Comma-separated origins allowed to call the HTTP server")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	logger := logging.NewDefault()
	if *dev {
		logger = logging.NewDevelopment()
	}
	defer logger.Sync() //nolint:errcheck

	opts := []echo.Option{
		echo.WithLogger(logger.ForStage(logging.StageEcho, 0).Logger),
		echo.WithRateLimit(echo.RateLimitConfig{RequestsPerSecond: *rps, Burst: *burst}),
		echo.WithMaxConns(*maxConns),
	}
	if *corsOrigins != "" {
		opts = append(opts, echo.WithCORS(strings.Split(*corsOrigins, ",")...))
	}
	var servers []echo.Server

	if *udpAddr != "" {
		s, err := echo.ListenUDP(*udpAddr, opts...)
		if err != nil {
			log.Fatalf("Failed to listen on udp %s: %v", *udpAddr, err)
		}
		servers = append(servers, s)
		logger.Info("Serving udp echo", zap.String("addr", s.Addr()))
	}
	if *grpcAddr != "" {
		s, err := echo.ListenGRPC(*grpcAddr, opts...)
		if err != nil {
			log.Fatalf("Failed to listen on grpc %s: %v", *grpcAddr, err)
		}
		servers = append(servers, s)
		logger.Info("Serving grpc echo", zap.String("addr", s.Addr()))
	}
	if *httpAddr != "" {
		s, err := echo.ListenHTTP(*httpAddr, opts...)
		if err != nil {
			log.Fatalf("Failed to listen on http %s: %v", *httpAddr, err)
		}
		servers = append(servers, s)
		logger.Info("Serving http and websocket echo", zap.String("addr", s.Addr()))
	}
	if len(servers) == 0 {
		log.Fatal("No listeners configured")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")
	for _, s := range servers {
		if err := s.Close(); err != nil {
			logger.Warn("Error during shutdown", zap.String("addr", s.Addr()), zap.Error(err))
		}
	}
}
