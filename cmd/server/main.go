package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"semaphore/learning/internal/catalog"
	"semaphore/learning/internal/config"
	"semaphore/learning/internal/db"
	"semaphore/learning/internal/directory"
	learninggrpc "semaphore/learning/internal/grpc"
	internalhttp "semaphore/learning/internal/http"
	"semaphore/learning/internal/logger"
	"semaphore/learning/internal/progress"
	"semaphore/learning/internal/repository"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := db.NewMongoClient(ctx, cfg.MongoURI, cfg.StoreTimeout)
	if err != nil {
		log.Fatal("Mongo connection failed", "error", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	users := repository.NewUserStore(mongoClient.Database(cfg.MongoDatabase), log)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal("Index creation failed", "error", err)
	}

	courses, closeCatalog := openCatalog(ctx, cfg, log)
	defer closeCatalog()

	tracker := progress.NewTracker(users, courses, progress.Options{
		VerifyCourseOnEnroll: cfg.VerifyCourseOnEnroll,
	}, log)
	dir := directory.NewService(users, directory.TokenConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.AccessTokenTTL,
	}, log)

	server := internalhttp.NewServer(cfg, dir, tracker, log)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Learning HTTP listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.ServiceAuthToken == "" {
		log.Warn("SERVICE_AUTH_TOKEN not set, gRPC enrollment service disabled")
	} else {
		interceptor, err := learninggrpc.NewServiceAuthUnaryInterceptor(cfg.ServiceAuthToken)
		if err != nil {
			log.Fatal("gRPC auth init failed", "error", err)
		}
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(interceptor))
		learninggrpc.RegisterEnrollmentServiceServer(grpcServer, learninggrpc.NewEnrollmentServer(tracker, log))

		go func() {
			listener, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				log.Fatal("gRPC listen error", "error", err)
			}
			log.Info("Learning gRPC listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(listener); err != nil {
				log.Fatal("gRPC server error", "error", err)
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
}

// openCatalog builds the course catalog from CATALOG_DATABASE_URL, fronted by
// Redis when REDIS_ADDR is set. Without a database every course reports as
// unknown, so completion percentages are never recomputed.
func openCatalog(ctx context.Context, cfg config.Config, log *logger.Logger) (catalog.Catalog, func()) {
	if cfg.CatalogDatabaseURL == "" {
		log.Warn("CATALOG_DATABASE_URL not set, using empty course catalog")
		return catalog.Static{}, func() {}
	}

	pool, err := db.NewPool(ctx, cfg.CatalogDatabaseURL)
	if err != nil {
		log.Fatal("Catalog database connection failed", "error", err)
	}
	var courses catalog.Catalog = catalog.NewPostgresCatalog(pool)
	closers := []func(){pool.Close}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable, catalog cache will fall through", "addr", cfg.RedisAddr, "error", err)
		}
		courses = catalog.NewCachedCatalog(courses, client, cfg.CatalogCacheTTL, log)
		closers = append(closers, func() { _ = client.Close() })
	}

	return courses, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
