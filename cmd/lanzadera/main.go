// Package main is the entry point for the lanzadera launch server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sevir/lanzadera/internal/config"
	"github.com/sevir/lanzadera/internal/launcher"
	"github.com/sevir/lanzadera/internal/osproc"
	"github.com/sevir/lanzadera/internal/registry"
	"github.com/sevir/lanzadera/internal/server"
	"github.com/sevir/lanzadera/internal/trace"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to config file")
		host         = flag.String("host", "", "Server host (default: 127.0.0.1)")
		port         = flag.Int("port", 0, "Server port (default: 8766)")
		registryPath = flag.String("registry", "", "Path to launch registry file")
		debug        = flag.Bool("debug", false, "Trace launched process output")
		execLine     = flag.String("exec", "", "Run a command line synchronously and exit with its code")
		workDir      = flag.String("dir", "", "Working directory for -exec")
		showVersion  = flag.Bool("version", false, "Show version and exit")
		initConfig   = flag.Bool("init", false, "Initialize default config and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("lanzadera %s (%s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *registryPath != "" {
		cfg.Launcher.RegistryPath = *registryPath
	}
	if *debug {
		cfg.Launcher.Debug = true
	}

	if *initConfig {
		if err := cfg.Save(*configPath); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}
		fmt.Println("Configuration initialized")
		os.Exit(0)
	}

	if *execLine != "" {
		os.Exit(runOnce(cfg, *execLine, *workDir))
	}

	sink := trace.New(cfg.Launcher.Debug)
	reg, err := registry.New(cfg.Launcher.RegistryPath)
	if err != nil {
		log.Fatalf("Failed to create registry: %v", err)
	}

	l := launcher.New(launcher.Config{
		Spawner:      osproc.NewSpawner(time.Duration(cfg.Launcher.GracePeriodSecs) * time.Second),
		Registry:     reg,
		Trace:        sink,
		Debug:        cfg.Launcher.Debug,
		PollInterval: time.Duration(cfg.Launcher.PollIntervalMS) * time.Millisecond,
	})

	srv := server.New(server.Config{
		Addr:     cfg.Address(),
		Launcher: l,
		Registry: reg,
		Version:  version,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("server_event=shutdown signal=%s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("server_event=shutdown_error error=%q", err)
		}
		if err := reg.Close(); err != nil {
			log.Printf("registry_event=close_error error=%q", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// runOnce launches the given command line, streams its output and blocks
// until it terminates. SIGINT cancels the wait and terminates the process.
func runOnce(cfg *config.Config, commandLine, workDir string) int {
	l := launcher.New(launcher.Config{
		Spawner:      osproc.NewSpawner(time.Duration(cfg.Launcher.GracePeriodSecs) * time.Second),
		Trace:        trace.New(cfg.Launcher.Debug),
		Debug:        cfg.Launcher.Debug,
		PollInterval: time.Duration(cfg.Launcher.PollIntervalMS) * time.Millisecond,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, err := l.LaunchSyncLine(ctx, commandLine, launcher.Options{
		WorkDir: workDir,
		Out:     launcher.ListenerFunc(func(text string) { fmt.Fprint(os.Stdout, text) }),
		Err:     launcher.ListenerFunc(func(text string) { fmt.Fprint(os.Stderr, text) }),
	})
	if err != nil {
		log.Printf("launch_event=failed error=%q", err)
		return 1
	}
	return code
}
