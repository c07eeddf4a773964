package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "humanizer-backend/internal/auth"
	"humanizer-backend/internal/humanizer"
	"humanizer-backend/internal/jobs"
	"humanizer-backend/internal/shared/config"
	"humanizer-backend/internal/shared/server"
	"humanizer-backend/internal/shared/storage/db"
	"humanizer-backend/internal/users"
)

// App holds shared dependencies for the api and worker processes.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB

	UsersRepo users.Repo
	JobsRepo  jobs.Repo

	UsersService *users.Service
	JobsService  *jobs.Service

	UsersHandler *users.Handler
	JobsHandler  *jobs.Handler
	GoogleAuth   *googleauth.GoogleService

	Humanizer humanizer.Client
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	humanizerClient, err := buildHumanizer(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Humanizer: humanizerClient,
	}

	if sqlDB != nil {
		app.UsersRepo = &users.PGRepo{DB: sqlDB}
		app.JobsRepo = &jobs.PGRepo{DB: sqlDB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.JobsRepo = jobs.NewMemoryRepo()
	}

	app.UsersService = users.NewService(app.UsersRepo)
	app.JobsService = &jobs.Service{
		Repo:        app.JobsRepo,
		Humanizer:   app.Humanizer,
		MaxAttempts: cfg.MaxAttempts,
		CallTimeout: cfg.HumanizerTimeout,
	}

	app.UsersHandler = users.NewHandler(app.UsersService)
	app.JobsHandler = jobs.NewHandler(app.JobsService)
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
	)
	app.GoogleAuth.Users = app.UsersService

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      app.Config,
		UserHandler: app.UsersHandler,
		JobsHandler: app.JobsHandler,
		GoogleAuth:  app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildHumanizer(cfg config.Config) (humanizer.Client, error) {
	if strings.TrimSpace(cfg.HumanizerURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: HUMANIZER_URL empty; queue processing disabled")
			return nil, nil
		}
		return nil, fmt.Errorf("HUMANIZER_URL is required")
	}
	client, err := humanizer.NewHTTPClient(cfg.HumanizerURL, cfg.HumanizerTimeout)
	if err != nil {
		return nil, err
	}
	return humanizer.NewRetryingClient(client), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
