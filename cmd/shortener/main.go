// Command shortener запускает HTTP и gRPC серверы сервиса коротких ссылок
package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tempizhere/linkgate/internal/app"
	"github.com/tempizhere/linkgate/internal/config"
	"github.com/tempizhere/linkgate/internal/events"
	grpcserver "github.com/tempizhere/linkgate/internal/grpc"
	"github.com/tempizhere/linkgate/internal/log"
	"github.com/tempizhere/linkgate/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		stdlog.Fatalf("shortener: %v", err)
	}
}

// run собирает зависимости, запускает серверы и блокируется до отмены ctx
func run(ctx context.Context, args []string) error {
	cfg, err := config.NewConfig(args)
	if err != nil {
		return err
	}
	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := newComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close(logger)

	resolver := service.NewResolver(c.repo, c.cache, events.NewClickEventPublisher(c.channel), service.ResolverConfig{
		DefaultHost:    cfg.DefaultHost,
		CacheTTL:       cfg.CacheTTL,
		LookupTimeout:  cfg.LookupTimeout,
		PublishTimeout: cfg.PublishTimeout,
	}, logger)
	links := service.NewLinks(c.repo, c.cache, service.LinksConfig{
		BaseURL:             cfg.BaseURL,
		CacheTTL:            cfg.CacheTTL,
		FreePlanLimit:       cfg.FreePlanLimit,
		MaxGenerateAttempts: cfg.MaxGenerateAttempts,
		ShortCodeLength:     cfg.ShortCodeLength,
	}, logger)

	domains := service.NewDomains(c.repo, cfg.DefaultHost, logger)

	httpServer := &http.Server{
		Addr: cfg.RunAddr,
		Handler: app.NewRouter(app.NewApp(links, domains, resolver, c.db, logger), app.RouterConfig{
			JWTSecret:     cfg.JWTSecret,
			TrustedSubnet: cfg.TrustedSubnet,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.RunAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		srv := grpcserver.NewServer(links, resolver, c.db, cfg.TrustedSubnet, logger)
		grpcServer = grpcserver.NewGRPCServer(srv, grpcserver.Config{JWTSecret: cfg.JWTSecret})
		go func() {
			logger.Info("Starting gRPC server", zap.String("addr", cfg.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errCh:
		logger.Error("Server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	// Фоновые задачи резолвера должны завершиться до закрытия кэша и канала событий
	if err := resolver.Wait(shutdownCtx); err != nil {
		logger.Warn("Detached tasks did not finish before shutdown deadline", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return runErr
}
