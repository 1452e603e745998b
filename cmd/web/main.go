// Command web starts the SRI Pulse HTTP server: the REST API, the
// websocket event stream, and the Prometheus metrics endpoint.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"sricli/internal/app"
)

func main() {
	// .env is optional; environment variables already set win.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file")
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
