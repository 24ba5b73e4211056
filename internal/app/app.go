// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the debugger session, event bus, program watcher and
// HTTP API into one running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/citic/botNeumann-sub000/internal/api"
	"github.com/citic/botNeumann-sub000/internal/config"
	"github.com/citic/botNeumann-sub000/internal/events"
	"github.com/citic/botNeumann-sub000/internal/mi"
	"github.com/citic/botNeumann-sub000/internal/session"
	"github.com/citic/botNeumann-sub000/internal/watcher"
)

// ReloadTag is the user data of the command sent when the program changes.
const ReloadTag = "reload"

// App is the main application container.
type App struct {
	mu sync.Mutex

	configPath     string
	version        string
	config         *config.Config
	autoStart      bool
	eventBus       events.EventBus
	session        *session.Session
	programWatcher *watcher.ProgramWatcher
	apiServer      *api.Server

	reloadPending atomic.Bool

	done     chan struct{}
	stopOnce sync.Once
	shutOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	Config     *config.Config // used as-is instead of loading ConfigPath
	Host       string
	Port       int
	Program    string // overrides inferior.program
	NoStart    bool   // leave the debugger stopped until asked over the API
	Version    string
}

// New loads and validates the configuration and builds the components.
func New(opts Options) (*App, error) {
	app := &App{
		configPath: opts.ConfigPath,
		version:    opts.Version,
		autoStart:  !opts.NoStart,
		done:       make(chan struct{}),
	}

	cfg := opts.Config
	if cfg == nil {
		loader := config.NewLoader()
		loaded, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.Program != "" {
		cfg.Inferior.Program = opts.Program
	}
	config.ApplyDefaults(cfg)

	expanded, err := config.NewTemplateExpander().ExpandConfig(cfg, config.NewTemplateContext(opts.ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("failed to expand config: %w", err)
	}
	if err := config.NewValidator().Validate(expanded); err != nil {
		return nil, err
	}
	app.config = expanded

	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: expanded.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(expanded.Events.History.MaxAge, config.DefaultHistoryMaxAge),
	})
	app.session = session.New(expanded.Debugger, expanded.Inferior, app.eventBus)
	app.apiServer = api.NewServer(api.ServerConfig{
		Host:         expanded.Server.Host,
		Port:         expanded.Server.Port,
		TLSCert:      expanded.Server.TLSCert,
		TLSKey:       expanded.Server.TLSKey,
		TLSTailscale: expanded.Server.TLSTailscale,
	}, api.Dependencies{
		Debugger: app.session,
		EventBus: app.eventBus,
	})

	return app, nil
}

// Config returns the expanded configuration.
func (app *App) Config() *config.Config {
	return app.config
}

// Session returns the debugger session.
func (app *App) Session() *session.Session {
	return app.session
}

// EventBus returns the event bus.
func (app *App) EventBus() events.EventBus {
	return app.eventBus
}

// Initialize sets up the program watcher and event subscriptions.
func (app *App) Initialize(ctx context.Context) error {
	inf := app.config.Inferior

	if inf.IsWatching() {
		debounce := config.ParseDuration(app.config.Watch.Debounce, config.DefaultDebounce)
		w, err := watcher.NewProgramWatcher(app.eventBus, debounce)
		if err != nil {
			return fmt.Errorf("failed to create program watcher: %w", err)
		}
		if err := w.Watch(inf.Program); err != nil {
			log.Printf("Warning: not watching %s: %v", inf.Program, err)
		}
		app.programWatcher = w
	}

	// The pump sends the reload once the session is idle; handlers run on
	// the publisher's goroutine and must not block on the debugger.
	if _, err := app.eventBus.Subscribe(events.EventInferiorChanged, func(_ context.Context, event events.Event) error {
		path, _ := event.Payload["path"].(string)
		log.Printf("[gdbmi] %s changed, reloading symbols", path)
		app.reloadPending.Store(true)
		return nil
	}); err != nil {
		return err
	}

	if _, err := app.eventBus.Subscribe(events.EventSessionExited, func(_ context.Context, event events.Event) error {
		log.Printf("[CRITICAL] debugger exited unexpectedly (exit code %v)", event.Payload["exit_code"])
		return nil
	}); err != nil {
		return err
	}

	return nil
}

// Run starts the app and blocks until a signal arrives, ctx is cancelled,
// Stop is called or the HTTP server fails.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	if app.autoStart {
		if err := app.session.Start(ctx); err != nil {
			log.Printf("Warning: debugger did not start: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting API server on %s", app.apiServer.Addr())
		if err := app.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.pump(gctx)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down...", sig)
		case <-gctx.Done():
		case <-app.done:
			log.Printf("Shutdown requested...")
		}
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		return app.apiServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if shutErr := app.Shutdown(context.Background()); err == nil {
		err = shutErr
	}
	return err
}

// pump keeps the response queue and event bus fed while nobody is sending:
// async records such as *stopped arrive without a command to wait on.
func (app *App) pump(ctx context.Context) error {
	interval := app.config.Debugger.PollIntervalDuration()
	idle := time.NewTicker(interval)
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if app.session.State() != session.StateReady {
			select {
			case <-ctx.Done():
				return nil
			case <-idle.C:
			}
			continue
		}

		if app.reloadPending.Swap(false) {
			app.reloadSymbols(ctx)
		}

		if _, err := app.session.Poll(interval); err != nil && !errors.Is(err, session.ErrExited) && !errors.Is(err, session.ErrNotRunning) {
			log.Printf("[gdbmi] poll: %v", err)
		}
	}
}

// reloadSymbols points the debugger at the rebuilt program.
func (app *App) reloadSymbols(ctx context.Context) {
	program := app.config.Inferior.Program
	if program == "" {
		return
	}
	resp, err := app.session.Send(ctx, "-file-exec-and-symbols "+mi.Quote(program), ReloadTag)
	switch {
	case errors.Is(err, session.ErrBusy):
		// Someone else got in first; try again on the next idle pass.
		app.reloadPending.Store(true)
	case err != nil:
		log.Printf("[gdbmi] reload %s: %v", program, err)
	case resp.IsError():
		log.Printf("[gdbmi] reload %s: %s", program, resp.ErrorMessage())
	default:
		log.Printf("[gdbmi] reloaded symbols from %s", program)
	}
}

// Shutdown stops the watcher and the debugger and closes the bus. It is safe
// to call more than once.
func (app *App) Shutdown(ctx context.Context) error {
	app.shutOnce.Do(func() {
		app.mu.Lock()
		defer app.mu.Unlock()

		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if app.programWatcher != nil {
			app.programWatcher.Close()
		}

		if app.session != nil {
			if err := app.session.Stop(shutdownCtx); err != nil {
				log.Printf("Error stopping debugger: %v", err)
			}
		}

		if app.eventBus != nil {
			app.eventBus.Close()
		}

		log.Println("Shutdown complete")
	})
	return nil
}

// Stop signals the app to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
