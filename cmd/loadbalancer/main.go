// Command loadbalancer runs the TCP load balancer: it accepts client
// connections on a single listen address and relays each one to a healthy
// backend chosen round-robin.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Koded0214h/MicroServices/config"
	"github.com/Koded0214h/MicroServices/logger"
	"github.com/Koded0214h/MicroServices/pkg/metrics"
	"github.com/Koded0214h/MicroServices/server/loadbalancer"
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
		fmt.Printf("loadbalancer version %s (commit: %s)\n", version, commit)
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

	if err := cfg.ValidateLoadBalancer(); err != nil {
		logger.Fatal("invalid load balancer configuration", "error", err)
	}

	healthInterval, _ := cfg.LoadBalancer.GetHealthInterval()
	probeTimeout, _ := cfg.LoadBalancer.GetProbeTimeout()
	connectTimeout, _ := cfg.LoadBalancer.GetConnectTimeout()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	errChan := make(chan error, 1)
	if cfg.Metrics.Enabled {
		go metrics.StartServer(ctx, cfg.Metrics, errChan)
	}

	srv, err := loadbalancer.New(ctx, loadbalancer.ServerOptions{
		Name:           "lb",
		Addr:           cfg.LoadBalancer.Listen,
		Backends:       cfg.LoadBalancer.Backends,
		ListenBacklog:  cfg.LoadBalancer.GetListenBacklog(),
		HealthInterval: healthInterval,
		ProbeTimeout:   probeTimeout,
		ConnectTimeout: connectTimeout,
	})
	if err != nil {
		logger.Fatal("failed to create load balancer", "error", err)
	}

	go func() {
		errChan <- srv.Start()
	}()

	if err := <-errChan; err != nil {
		logger.Fatal("load balancer failed", "error", err)
	}
}
