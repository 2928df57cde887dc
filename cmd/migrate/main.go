// Package main applies the embedded database migrations and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/onnwee/singme/internal/config"
	"github.com/onnwee/singme/internal/db"
	"github.com/onnwee/singme/internal/middleware"
	"github.com/onnwee/singme/migrations"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "optional YAML config file; environment variables take precedence")
	timeout := flag.Duration("timeout", time.Minute, "maximum time to spend applying migrations")
	flag.Parse()

	if *help {
		fmt.Println("singme Database Migrator")
		fmt.Println()
		fmt.Println("Usage: migrate [options]")
		fmt.Println()
		fmt.Println("Applies every pending migration to DATABASE_URL.")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := db.Migrate(ctx, cfg.DatabaseURL, migrations.FS, logger)
	if err != nil {
		logger.Error("migration failed", "version", res.From, "error", err)
		cancel()
		os.Exit(1)
	}

	logger.Info("migrations complete", "version", res.To, "applied", res.Applied())
}
