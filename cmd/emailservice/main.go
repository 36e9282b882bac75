// Command emailservice runs the outbound email service and its HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Koded0214h/MicroServices/config"
	"github.com/Koded0214h/MicroServices/db"
	"github.com/Koded0214h/MicroServices/logger"
	"github.com/Koded0214h/MicroServices/mail"
	"github.com/Koded0214h/MicroServices/pkg/metrics"
	"github.com/Koded0214h/MicroServices/server/httpapi"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information and exit")
	configPath := flag.String("config", "config.toml", "Path to TOML configuration file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("emailservice version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg := config.NewDefaultConfig()
	if err := config.Load(*configPath, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration file '%s': %v\n", *configPath, err)
		os.Exit(1)
	}

	logFile, err := logger.Initialize(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning initializing logger: %v\n", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if err := cfg.ValidateEmail(); err != nil {
		logger.Fatal("invalid email service configuration", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	// Delivery log: Postgres when configured, in-memory otherwise.
	var deliveryLog mail.DeliveryLog
	if cfg.Database.Enabled {
		if err := db.RunMigrations(ctx, cfg.Database); err != nil {
			logger.Fatal("failed to run database migrations", "error", err)
		}
		database, err := db.NewDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer database.Close()
		deliveryLog = db.NewDeliveryLog(database)
	} else {
		logger.Info("no database configured, keeping delivery log in memory")
		deliveryLog = mail.NewMemoryLog(0)
	}

	renderer, err := mail.NewRenderer(cfg.Email.TemplateDir)
	if err != nil {
		logger.Fatal("failed to load templates", "error", err)
	}

	provider, err := mail.NewSMTPProvider(cfg.Email)
	if err != nil {
		logger.Fatal("failed to create SMTP provider", "error", err)
	}

	from := mail.Recipient{Name: cfg.Email.FromName, Address: cfg.Email.FromAddress}
	svc := mail.NewService(provider, renderer, deliveryLog, from, cfg.Email.FrontendURL)

	errChan := make(chan error, 1)
	if cfg.Metrics.Enabled {
		go metrics.StartServer(ctx, cfg.Metrics, errChan)
	}

	go httpapi.Start(ctx, svc, httpapi.ServerOptions{
		Addr:   cfg.API.GetAddr(),
		APIKey: cfg.API.APIKey,
	}, errChan)

	select {
	case err := <-errChan:
		logger.Fatal("email service failed", "error", err)
	case <-ctx.Done():
		logger.Info("email service stopped")
	}
}
