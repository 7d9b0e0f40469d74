// Package app wires configuration, storage, resolvers, the OAuth handler
// and the HTTP surface into a runnable connector service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/ledgerlink/qbconnect/internal/connector/http"
	"github.com/ledgerlink/qbconnect/internal/connector/oauth"
	"github.com/ledgerlink/qbconnect/internal/connector/resolver"
	"github.com/ledgerlink/qbconnect/internal/connector/service"
	"github.com/ledgerlink/qbconnect/internal/connector/store"
	"github.com/ledgerlink/qbconnect/internal/connector/store/drivers/sqlite"
	"github.com/ledgerlink/qbconnect/internal/connector/tokenstore"
	"github.com/ledgerlink/qbconnect/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the connector service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	tokens   tokenstore.Store
	resolver resolver.Resolver
	oauth    *oauth.Handler

	manager   *service.Manager
	registrar *service.Registrar

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. Invalid
// driver names and missing credentials fail here, before the server starts.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "qbconnect",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURI == "" {
		return nil, errors.New("QB_CLIENT_ID, QB_CLIENT_SECRET and QB_REDIRECT_URI are required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initTokenStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initResolver(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initOAuth()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("connector starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"environment", app.cfg.Environment,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down connector...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("connector stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initTokenStore() error {
	driver, err := tokenstore.ParseDriver(app.cfg.TokenStoreDriver)
	if err != nil {
		return err
	}

	tokens, err := tokenstore.New(driver, app.db, tokenstore.CacheOptions{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
		Prefix:   app.cfg.RedisPrefix,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token store: %w", err)
	}

	app.tokens = tokens
	app.logger.Info("token store initialized", "driver", driver)
	return nil
}

func (app *Application) initResolver() error {
	res, err := resolver.New(app.cfg.ResolverDriver, resolver.Config{
		Companies:  app.cfg.Companies,
		Store:      app.db,
		OnlyActive: app.cfg.ResolverOnlyActive,
		ChainOf:    app.cfg.ResolverChain,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize company resolver: %w", err)
	}

	app.resolver = res
	app.logger.Info("company resolver initialized", "driver", app.cfg.ResolverDriver)
	return nil
}

func (app *Application) initOAuth() {
	app.oauth = oauth.NewHandler(oauth.Config{
		ClientID:     app.cfg.ClientID,
		ClientSecret: app.cfg.ClientSecret,
		RedirectURI:  app.cfg.RedirectURI,
		Scopes:       app.cfg.Scopes,
		Endpoints: oauth.Endpoints{
			AuthorizeURL: app.cfg.AuthorizeURL,
			TokenURL:     app.cfg.TokenURL,
			RevokeURL:    app.cfg.RevokeURL,
		},
		Timeout:    app.cfg.RequestTimeout,
		MaxRetries: app.cfg.MaxRetries,
		RetryDelay: app.cfg.RetryDelay,
	}, app.logger)
}

func (app *Application) initServices() {
	app.manager = service.NewManager(service.ManagerConfig{
		DefaultCompanyID: app.cfg.DefaultCompanyID,
		Environment:      app.cfg.Environment,
		APIBaseURLs:      app.cfg.APIBaseURLs(),
		Timeout:          app.cfg.RequestTimeout,
		MaxRetries:       app.cfg.MaxRetries,
		RetryDelay:       app.cfg.RetryDelay,
	}, app.db, app.tokens, app.resolver, app.oauth, app.logger)

	app.registrar = service.NewRegistrar(app.db, app.logger)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.Manager = app.manager
	router.Registrar = app.registrar
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
