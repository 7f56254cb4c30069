package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"tsp-router/internal/config"
	"tsp-router/internal/database"
	"tsp-router/internal/logging"
	"tsp-router/internal/server"
)

// App struct holds the Wails application state
type App struct {
	ctx    context.Context
	server *server.Server
	url    string
	logger *log.Logger
}

// NewApp loads the config, then starts the HTTP server on a random
// localhost port before the window opens.
func NewApp(logger *log.Logger) *App {
	app := &App{logger: logger}

	cfg, err := config.Load(database.GetDefaultConfigPath())
	if err != nil {
		logger.Fatal("Failed to load config", "err", err)
	}
	logger.SetLevel(logging.ParseLevel(cfg.Log.Level))
	cfg.Server.Addr = "127.0.0.1:0"

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", "err", err)
	}

	addr, err := srv.Start()
	if err != nil {
		logger.Fatal("Failed to start server", "err", err)
	}

	app.server = srv
	app.url = fmt.Sprintf("http://%s", addr)
	logger.Info("Internal HTTP server running", "url", app.url)

	return app
}

// ServerURL returns the address of the embedded HTTP server.
func (a *App) ServerURL() string {
	return a.url
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	go func() {
		runtime.WindowExecJS(ctx, fmt.Sprintf(`window.location.href = "%s"`, a.url))
	}()
}

// shutdown is called when the app closes
func (a *App) shutdown(ctx context.Context) {
	if a.server == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error shutting down server", "err", err)
	}
}
