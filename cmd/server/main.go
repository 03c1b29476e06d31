package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "library-circulation/internal/api/grpc"
	httpapi "library-circulation/internal/api/http"
	"library-circulation/internal/config"
	"library-circulation/internal/domain"
	"library-circulation/internal/logger"
	"library-circulation/internal/repository"
	"library-circulation/internal/repository/memory"
	"library-circulation/internal/repository/postgres"
	"library-circulation/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Library Circulation service...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetHTTPAddress(), "grpc", cfg.GetGRPCAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		tx       repository.Transactor
		loans    repository.LoanReader
		policies repository.FinePolicyRepository
		health   func(context.Context) error
	)

	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory store; data is lost on exit")
		store := memory.NewStore(cfg.FinePolicy)
		seedDemo(store)
		tx, loans, policies = store, store.Loans, store.Policies
		health = func(context.Context) error { return nil }
	} else {
		logger.Info("Database configuration", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
		db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.GetDatabaseConnectionString(), postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime(),
		})
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Info("Database connection established")

		store := postgres.NewStore(db, cfg.FinePolicy)
		tx, loans, policies = store, store.Loans, store.Policies
		health = pinger(db)
	}

	notifier := newNotifier(cfg)
	svc := service.NewCirculationService(tx, loans, policies, notifier, service.Options{
		DefaultLoanDays: cfg.Circulation.DefaultLoanDays,
	})

	// gRPC
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer, healthServer := grpcapi.NewServer(svc)
	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			stop()
		}
	}()

	// HTTP
	router := httpapi.NewRouter(svc, httpapi.RouterOptions{
		Health:  health,
		Metrics: promhttp.Handler(),
	})
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetHTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped")
}

func newNotifier(cfg *config.Config) service.Notifier {
	if !cfg.SMTP.Enabled {
		logger.Info("SMTP disabled; notices are logged only")
		return service.NewLogNotifier()
	}
	logger.Info("SMTP configuration", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
	return service.NewEmailNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
}

func pinger(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
}

// seedDemo loads a few readers and titles so the memory driver is usable
// without a catalog service.
func seedDemo(store *memory.Store) {
	readers := []domain.User{
		{ID: 1, Email: "alice@library.test", Name: "Alice", Verified: true},
		{ID: 2, Email: "bob@library.test", Name: "Bob", Verified: true},
		{ID: 3, Email: "carol@library.test", Name: "Carol", Verified: true},
		{ID: 4, Email: "dave@library.test", Name: "Dave"},
	}
	for _, u := range readers {
		store.AddUser(u)
	}

	books := []domain.Book{
		{ID: 1, Title: "The Left Hand of Darkness", Price: decimal.RequireFromString("24.99"), TotalCopies: 3, AvailableCopies: 3},
		{ID: 2, Title: "Middlemarch", Price: decimal.RequireFromString("18.50"), TotalCopies: 1, AvailableCopies: 1},
		{ID: 3, Title: "Gödel, Escher, Bach", Price: decimal.RequireFromString("35.00"), TotalCopies: 2, AvailableCopies: 2},
	}
	for _, b := range books {
		store.AddBook(b)
	}
	logger.Info("Seeded demo data", "users", len(readers), "books", len(books))
}
