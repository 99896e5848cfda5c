package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roadease/workshop-management/internal"
	"github.com/roadease/workshop-management/internal/audit"
	auditPostgres "github.com/roadease/workshop-management/internal/audit/postgres"
	"github.com/roadease/workshop-management/internal/auth"
	authPostgres "github.com/roadease/workshop-management/internal/auth/postgres"
	"github.com/roadease/workshop-management/internal/core/events"
	"github.com/roadease/workshop-management/internal/obs"
	"github.com/roadease/workshop-management/internal/ratelimit"
	ratelimitPostgres "github.com/roadease/workshop-management/internal/ratelimit/postgres"
	"github.com/roadease/workshop-management/internal/security"
	"github.com/roadease/workshop-management/internal/session"
	sessionPostgres "github.com/roadease/workshop-management/internal/session/postgres"
	"github.com/roadease/workshop-management/internal/transport/rest"
	"github.com/roadease/workshop-management/internal/user"
	"github.com/roadease/workshop-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	gormSqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config       *internal.Config
	DB           *sqlx.DB
	GormDB       *gorm.DB
	Router       *chi.Mux
	Bus          *events.EventBus
	AuthHandler  *auth.Handler
	RBAC         *auth.RBACAuthorization
	UserHandler  *user.Handler
	AuditHandler *audit.Handler
	Logger       *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		rest.RouterConfig{
			ThrottlePerSecond: float64(deps.Config.Server.ThrottlePerSecond),
			ThrottleBurst:     deps.Config.Server.ThrottleBurst,
		},
		deps.AuthHandler,
		deps.RBAC,
		deps.UserHandler,
		deps.AuditHandler,
		deps.Logger,
	)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	obs.Init()
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(config.Database, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	bus := events.NewEventBus(lg)

	auditRepo := auditPostgres.NewEventRepository(gormDB)
	auditService := audit.NewService(auditRepo, int64(config.Security.SecurityLogLimit), lg)
	auditService.Subscribe(bus)

	limiter := ratelimit.NewService(
		ratelimitPostgres.NewCounterRepository(gormDB),
		config.Security.MaxLoginAttempts,
		config.Security.RateLimitWindow,
		ratelimit.WithNormalizedKeys(config.Security.NormalizeRateLimitKeys),
	)

	sessions := session.NewManager(
		sessionPostgres.NewSessionRepository(gormDB),
		bus,
		config.Security.SessionDuration,
	)

	hasher := security.NewHasher(config.Security.BCryptCost, config.Security.LegacySalt)
	resetTokens := auth.NewResetTokenIssuer(config.Security.ResetTokenSecret, config.Security.ResetTokenDuration)

	accountRepo := authPostgres.NewAccountRepository(gormDB)
	resetRepo := authPostgres.NewResetRequestRepository(gormDB)

	authService := auth.NewService(
		accountRepo,
		resetRepo,
		sessions,
		limiter,
		hasher,
		resetTokens,
		bus,
		lg,
		auth.WithStrictSessionValidation(config.Security.StrictSessionValidation),
	)

	rbac := auth.NewRBACAuthorization(auth.NewPermissionChecker(), bus, lg)

	return &Dependencies{
		Config:       config,
		DB:           db,
		GormDB:       gormDB,
		Router:       chi.NewRouter(),
		Bus:          bus,
		AuthHandler:  auth.NewHandler(authService),
		RBAC:         rbac,
		UserHandler:  user.NewHandler(user.NewService(accountRepo)),
		AuditHandler: audit.NewHandler(auditService),
		Logger:       lg,
	}, nil
}

// initDB opens the raw database connection used by health checks and goose.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	driver := "pgx"
	if cfg.Driver == "sqlite" {
		driver = "sqlite3"
	}

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers the ORM over the already-open connection so both share one
// pool.
func initGorm(cfg internal.DatabaseConfig, db *sqlx.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = gormSqlite.Dialector{Conn: db.DB}
	default:
		dialector = gormPostgres.New(gormPostgres.Config{Conn: db.DB})
	}
	return gorm.Open(dialector, &gorm.Config{})
}
