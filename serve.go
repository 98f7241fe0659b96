package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/letter-recognizer/internal/config"
	"github.com/example/letter-recognizer/internal/grpcserver"
	"github.com/example/letter-recognizer/internal/handlers"
	"github.com/example/letter-recognizer/internal/inference"
	"github.com/example/letter-recognizer/internal/labels"
	"github.com/example/letter-recognizer/internal/logging"
	"github.com/example/letter-recognizer/internal/metrics"
	"github.com/example/letter-recognizer/internal/repository"
	"github.com/example/letter-recognizer/internal/usecase"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC prediction servers",
		Example: `  # Serve with defaults (HTTP on :5000, gRPC on :50051)
  letter-recognizer serve

  # Serve with a config file
  letter-recognizer serve --config recognizer.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a TOML or YAML config file")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.NewLogger(logging.Options{
		Level:        cfg.Log.Level,
		File:         cfg.Log.File,
		MaxAge:       cfg.Log.MaxAge,
		RotationTime: cfg.Log.RotationTime,
	})
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	model, err := inference.NewONNXModel(inference.ONNXOptions{
		Path:        cfg.Model.Path,
		LibraryPath: cfg.Model.LibraryPath,
		InputName:   cfg.Model.InputName,
		OutputName:  cfg.Model.OutputName,
	}, logger)
	if err != nil {
		logger.Error("failed to load model", zap.Error(err), zap.String("path", cfg.Model.Path))
		return err
	}
	defer model.Close() //nolint:errcheck

	if err := labels.CheckWidth(model.OutputWidth()); err != nil {
		logger.Error("model does not match label table", zap.Error(err))
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collectorSet, err := metrics.New(registry)
	if err != nil {
		return err
	}

	opts := []usecase.Option{usecase.WithRecorder(collectorSet)}

	if cfg.Cache.RedisAddr != "" {
		redisClient, err := initRedis(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			logger.Error("redis connection failed", zap.Error(err), zap.String("addr", cfg.Cache.RedisAddr))
			return err
		}
		defer redisClient.Close()
		opts = append(opts, usecase.WithCache(usecase.NewRedisCache(redisClient), cfg.Cache.TTL))
	}

	if cfg.DatabaseDSN != "" {
		db, err := initDatabase(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.Error("database connection failed", zap.Error(err))
			return err
		}
		repo := repository.NewPredictionRepository(db, logger)
		if err := repo.AutoMigrate(ctx); err != nil {
			logger.Error("auto migrate failed", zap.Error(err))
			return err
		}
		opts = append(opts, usecase.WithRepository(repo))
	}

	uc := usecase.NewPredictionUseCase(model, logger, opts...)

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(uc, handlers.Options{
		MaxUploadSize: cfg.MaxUploadSize,
		Metrics:       collectorSet,
		Gatherer:      registry,
		Logger:        logger,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcServer *grpc.Server
	if cfg.GRPCEnabled() {
		grpcServer = grpcserver.New(uc, grpcserver.Options{MaxUploadSize: cfg.MaxUploadSize, Logger: logger})
	}

	if err := serveAll(ctx, server, grpcServer, cfg.GRPCAddr, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// serveAll binds every listener before serving anything, then runs the HTTP
// and optional gRPC servers until ctx is cancelled or one of them fails.
func serveAll(ctx context.Context, httpServer *http.Server, grpcServer *grpc.Server, grpcAddr string, shutdownTimeout time.Duration, logger *zap.Logger) error {
	httpListener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return logging.NewOperationError("serve.listen_http", "", err)
	}

	var grpcListener net.Listener
	if grpcServer != nil {
		grpcListener, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			httpListener.Close()
			return logging.NewOperationError("serve.listen_grpc", "", err)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("HTTP API listening", zap.String("addr", httpListener.Addr().String()))
		return serveHTTPServer(groupCtx, httpServer, shutdownTimeout, logger, httpListener)
	})

	if grpcServer != nil {
		group.Go(func() error {
			logger.Info("gRPC API listening", zap.String("addr", grpcListener.Addr().String()))
			return serveGRPCServer(groupCtx, grpcServer, grpcListener, shutdownTimeout, logger)
		})
	}

	return group.Wait()
}

func initDatabase(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access db handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// serveHTTPServer runs server until it fails or ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout. A nil listener means
// ListenAndServe on server.Addr.
func serveHTTPServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down HTTP server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}

// serveGRPCServer mirrors serveHTTPServer for a gRPC server. Calls still
// running after shutdownTimeout are cut off.
func serveGRPCServer(ctx context.Context, server *grpc.Server, listener net.Listener, shutdownTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		err := server.Serve(listener)
		if grpcserver.IsServerClosed(err) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down gRPC server", zap.Duration("timeout", shutdownTimeout))
		stopped := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(shutdownTimeout):
			logger.Warn("gRPC graceful stop timed out")
			server.Stop()
		}
		return <-errCh
	}
}
