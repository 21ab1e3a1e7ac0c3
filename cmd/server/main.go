package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/purchasing/internal/adapter/handler"
	"github.com/rl1809/purchasing/internal/adapter/storage"
	"github.com/rl1809/purchasing/internal/config"
	"github.com/rl1809/purchasing/internal/core/service"
	"github.com/rl1809/purchasing/internal/port"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Ping(ctx); err != nil {
		return err
	}
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("connected to mysql", "host", cfg.DBHost, "database", cfg.DBName)

	// Redis is optional; without it idempotency keys are ignored.
	var idempotency port.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		idempotency = storage.NewRedisAdapter(rdb)
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	}

	defaults := service.DefaultOrderDefaults()
	defaults.Currency = cfg.DefaultCurrency
	defaults.TaxRate = cfg.DefaultTaxRate

	orderService := service.NewOrderService(
		mysqlAdapter,
		idempotency,
		service.NewOrderIDGenerator(cfg.OrderIDPrefix, nil),
		defaults,
		logger,
	)
	supplierService := service.NewSupplierService(mysqlAdapter)

	// gRPC
	grpcServer := grpc.NewServer()
	handler.RegisterPurchaseOrdersServer(grpcServer, handler.NewGRPCHandler(orderService, logger))

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("gRPC server listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// HTTP
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.NewHTTPHandler(orderService, supplierService, mysqlAdapter, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("servers stopped")
	return nil
}
