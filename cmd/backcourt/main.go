package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/backcourt/backcourt/internal/config"
	"github.com/backcourt/backcourt/internal/crawler"
	"github.com/backcourt/backcourt/internal/logger"
	"github.com/backcourt/backcourt/pkg/adapters"
	"github.com/backcourt/backcourt/pkg/httpclient"
)

// app bundles what every command needs once configuration is resolved.
type app struct {
	cfg      config.Config
	log      logger.Logger
	registry *adapters.Registry
	scraper  *crawler.Scraper
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		printUsage()
		return
	}

	run, ok := commands[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[2:]); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

var commands = map[string]func(ctx context.Context, args []string) error{
	"serve":    runServe,
	"harvest":  runHarvest,
	"adapters": runAdapters,
}

func printUsage() {
	fmt.Println("backcourt - basketball news harvester")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backcourt <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve      Serve scraped articles over HTTP")
	fmt.Println("  harvest    Scrape once, print JSON and forward to publishers")
	fmt.Println("  adapters   List the configured site adapters")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  BACKCOURT_*  Override any config key, e.g. BACKCOURT_LOG_LEVEL=debug")
}

// newFlagSet declares the flags shared by all commands.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configFile := fs.String("config", "", "Path to a YAML config file")
	fs.String("adapters", "", "Path to a site adapter registry (YAML or JSON)")
	fs.String("publishers", "", "Path to a publishers registry (YAML or JSON)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", "json", "Log format (json or console)")
	fs.Int("workers", 4, "Adapters scraped concurrently")
	return fs, configFile
}

// bootstrap resolves config and builds the logger, registry and scraper.
func bootstrap(fs *pflag.FlagSet, configFile string) (*app, error) {
	cfg, err := config.Load(config.Options{
		ConfigFile: configFile,
		EnvFile:    ".env",
		Flags:      fs,
	})
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	registry, err := loadAdapters(cfg.Adapters.File)
	if err != nil {
		return nil, err
	}

	client := httpclient.New(httpclient.Options{
		Timeout:      cfg.HTTP.Timeout,
		UserAgent:    cfg.HTTP.UserAgent,
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
	})
	scraper := crawler.NewScraper(client, log,
		crawler.WithWorkers(cfg.Scraper.Workers),
		crawler.WithTimeout(cfg.HTTP.Timeout),
		crawler.WithMaxBodyBytes(cfg.Scraper.MaxBodyBytes),
	)

	log.InfoObj("backcourt configured", "startup", map[string]any{
		"adapters":      registry.Len(),
		"adapters_file": cfg.Adapters.File,
		"workers":       cfg.Scraper.Workers,
		"timeout":       cfg.HTTP.Timeout.String(),
	})

	return &app{cfg: cfg, log: log, registry: registry, scraper: scraper}, nil
}

func loadAdapters(path string) (*adapters.Registry, error) {
	if path == "" {
		return adapters.DefaultRegistry(), nil
	}
	registry, err := adapters.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load adapters: %w", err)
	}
	return registry, nil
}
