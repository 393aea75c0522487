package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory/internal/adapter/catalog"
	"github.com/rl1809/inventory/internal/adapter/handler"
	"github.com/rl1809/inventory/internal/adapter/storage"
	"github.com/rl1809/inventory/internal/config"
	"github.com/rl1809/inventory/internal/core/service"
	"github.com/rl1809/inventory/internal/platform/observability"
	"github.com/rl1809/inventory/pkg/logger"
	"github.com/rl1809/inventory/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OtelEndpoint)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}

	store, closeStore, err := storage.Open(ctx, cfg.Store())
	if err != nil {
		log.Fatal("failed to open stock store", zap.String("backend", cfg.StockBackend), zap.Error(err))
	}
	log.Info("stock store ready", zap.String("backend", cfg.StockBackend))
	if cfg.StockBackend == storage.BackendMemory {
		log.Warn("in-memory stock store, data is lost on restart")
	}

	gateway := catalog.NewHTTPGateway(cfg.Catalog(), log)
	inventoryService := service.NewInventoryService(gateway, store, log, cfg.StoreConflictRetries)

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(inventoryService, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID(), logger.GinMiddleware(log), gin.Recovery())
	handler.NewHTTPHandler(inventoryService, log).Register(router)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	if err := closeStore(); err != nil {
		log.Error("failed to close stock store", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("failed to flush traces", zap.Error(err))
	}
	log.Info("connections closed")
}
