// Package server initializes and runs the auth service: it opens the
// database, applies migrations, wires the services, and starts the HTTP
// server with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dgtwins/ms-auth/internal/logging"
	"github.com/dgtwins/ms-auth/internal/server/config"
	httpserver "github.com/dgtwins/ms-auth/internal/server/http"
	"github.com/dgtwins/ms-auth/internal/server/notify"
	"github.com/dgtwins/ms-auth/internal/server/repositories/repomanager"
	"github.com/dgtwins/ms-auth/internal/server/services"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	authService     *services.AuthService
	recoveryService *services.RecoveryService
	usersService    *services.UsersService
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := repomanager.OpenDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var notifier notify.Notifier
	if c.SMTPEnabled {
		notifier = notify.NewSMTPNotifier(c)
	} else {
		notifier = notify.Disabled{}
	}

	return &App{
		config:          c,
		logger:          logger,
		db:              db,
		authService:     services.NewAuthService(db, rm, c, logger),
		recoveryService: services.NewRecoveryService(db, rm, notifier, c, logger),
		usersService:    services.NewUsersService(db, rm, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpserver.NewServer(app.config.EndpointAddrHTTP, app.logger,
		app.authService, app.recoveryService, app.usersService, app.db.PingContext)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
