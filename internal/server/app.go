// Package server initializes and runs the main application server.
// It wires the storage backends, the selector, the session manager,
// and the Data Service, handles graceful shutdown, and starts the
// HTTP endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/datavault/internal/filex"
	"github.com/dmitrijs2005/datavault/internal/logging"
	"github.com/dmitrijs2005/datavault/internal/server/backend"
	"github.com/dmitrijs2005/datavault/internal/server/backend/bolt"
	"github.com/dmitrijs2005/datavault/internal/server/backend/memory"
	"github.com/dmitrijs2005/datavault/internal/server/backend/relational"
	"github.com/dmitrijs2005/datavault/internal/server/config"
	"github.com/dmitrijs2005/datavault/internal/server/httpapi"
	"github.com/dmitrijs2005/datavault/internal/server/selector"
	"github.com/dmitrijs2005/datavault/internal/server/service"
	"github.com/dmitrijs2005/datavault/internal/server/session"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	selector  *selector.Selector
	service   *service.Service
	reference *memory.Backend
}

func NewApp(cfg *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	snapshotPath := cfg.SnapshotPath
	if snapshotPath != "" {
		p, err := filex.EnsureParentDir(snapshotPath)
		if err != nil {
			return nil, err
		}
		snapshotPath = p
	}

	reference := memory.New(snapshotPath,
		memory.WithLatency(cfg.LatencyMin, cfg.LatencyMax))

	var relationalFactory, kvFactory selector.Factory
	if cfg.DatabaseDSN != "" {
		relationalFactory = func(ctx context.Context) (backend.Backend, error) {
			return relational.Open(ctx, cfg.DatabaseDSN, cfg.SessionTTL)
		}
	}
	if cfg.BoltPath != "" {
		kvFactory = func(ctx context.Context) (backend.Backend, error) {
			path, err := filex.EnsureParentDir(cfg.BoltPath)
			if err != nil {
				return nil, err
			}
			return bolt.Open(path)
		}
	}

	sel := selector.New(relationalFactory, kvFactory, reference, logger)
	sessions := session.NewManager(sel.Active)

	var remote *service.Remote
	if cfg.RemoteEndpoint != "" {
		remote = service.NewRemote(cfg.RemoteEndpoint)
	}

	svc := service.New(sel, sessions, remote, logger)

	return &App{
		config:    cfg,
		logger:    logger,
		selector:  sel,
		service:   svc,
		reference: reference,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: httpapi.NewRouter(app.service, app.logger),
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, err.Error())
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	// selection happens once at startup; afterwards only an explicit
	// reprobe can change the active backend
	state := app.selector.Probe(ctx)
	app.logger.Info(ctx, "backend selection complete",
		"state", state.String(), "backend", app.selector.Active().Name())

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if active := app.selector.Active(); active != app.reference {
		_ = active.Close()
	}
	_ = app.reference.Close()
}
