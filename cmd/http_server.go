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

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/agent-management/internal"
	"github.com/frahmantamala/agent-management/internal/agent"
	agentpg "github.com/frahmantamala/agent-management/internal/agent/postgres"
	"github.com/frahmantamala/agent-management/internal/auth"
	authpg "github.com/frahmantamala/agent-management/internal/auth/postgres"
	"github.com/frahmantamala/agent-management/internal/cache"
	"github.com/frahmantamala/agent-management/internal/rbac"
	rbacpg "github.com/frahmantamala/agent-management/internal/rbac/postgres"
	"github.com/frahmantamala/agent-management/internal/transport/middleware"
	"github.com/frahmantamala/agent-management/internal/transport/rest"
	"github.com/frahmantamala/agent-management/internal/user"
	userpg "github.com/frahmantamala/agent-management/internal/user/postgres"
	"github.com/frahmantamala/agent-management/pkg/logger"
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
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Cache  cache.Cache
	Router *chi.Mux
	Logger *slog.Logger

	AuthHandler  *auth.Handler
	UserHandler  *user.Handler
	RBACHandler  *rbac.Handler
	AgentHandler *agent.Handler
	RateLimiter  *middleware.RateLimiter
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		deps.AuthHandler,
		deps.UserHandler,
		deps.RBACHandler,
		deps.AgentHandler,
		deps.RateLimiter,
		deps.Logger,
	)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

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
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.Cache.Close(); err != nil {
			deps.Logger.Error("cache close error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	redisAddr := fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port)
	cacheClient := cache.Connect(redisAddr, config.Redis.Password, config.Redis.DB, log)

	tokens := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenExpiry,
		config.Security.RefreshTokenExpiry,
	)

	authRepo := authpg.NewRepository(gormDB)
	userRepo := userpg.NewRepository(gormDB)
	rbacRepo := rbacpg.NewRepository(gormDB)
	agentRepo := agentpg.NewRepository(gormDB)

	authService := auth.NewService(authRepo, tokens, config.Security.BCryptCost, config.Security.ResetTokenExpiry, log)
	userService := user.NewService(userRepo, config.Security.BCryptCost, log)
	rbacService := rbac.NewService(rbacRepo, log)
	agentService := agent.NewService(agentRepo, userRepo, log)

	var rateLimiter *middleware.RateLimiter
	if config.Observability.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(
			cacheClient,
			config.Observability.RateLimit.RequestsPerWindow,
			config.Observability.RateLimit.Window,
			log,
		)
	}

	return &Dependencies{
		Config: config,
		DB:     db,
		Gorm:   gormDB,
		Cache:  cacheClient,
		Router: chi.NewRouter(),
		Logger: log,

		AuthHandler:  auth.NewHandler(authService, log),
		UserHandler:  user.NewHandler(userService, log),
		RBACHandler:  rbac.NewHandler(rbacService, log),
		AgentHandler: agent.NewHandler(agentService, log),
		RateLimiter:  rateLimiter,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

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

// initGorm layers the ORM over the already-open pgx connection.
// TranslateError turns driver unique-violation errors into
// gorm.ErrDuplicatedKey, which the repositories rely on.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
}
