package main

import (
	"embed"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"tsp-router/internal/logging"
)

//go:embed frontend/*
var assets embed.FS

func main() {
	logger := logging.New(os.Stderr, logging.ParseLevel(os.Getenv("LOG_LEVEL")))
	app := NewApp(logger)

	err := wails.Run(&options.App{
		Title:     "TSP Router",
		Width:     1100,
		Height:    760,
		MinWidth:  720,
		MinHeight: 540,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   "TSP Router",
				Message: "Round trips from a depot, ordered by nearest neighbor or spanning tree",
			},
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
		},
		Linux: &linux.Options{
			ProgramName:      "TSP Router",
			WebviewGpuPolicy: linux.WebviewGpuPolicyAlways,
		},
	})

	if err != nil {
		logger.Fatal("Desktop shell failed", "err", err)
	}
}
