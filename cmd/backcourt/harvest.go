package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/backcourt/backcourt/internal/crawler"
	"github.com/backcourt/backcourt/internal/logger"
	"github.com/backcourt/backcourt/pkg/publishers"
)

func runHarvest(ctx context.Context, args []string) error {
	fs, configFile := newFlagSet("harvest")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := bootstrap(fs, *configFile)
	if err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	pubs, err := buildPublishers(ctx, a.cfg.Publishers.File, a.log)
	if err != nil {
		return err
	}

	harvester := crawler.NewHarvester(a.scraper, pubs, a.log)
	res, runErr := harvester.Run(ctx, a.registry.Enabled())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Articles); err != nil {
		return fmt.Errorf("write articles: %w", err)
	}

	a.log.InfoObj("harvest finished", "harvest_done", map[string]any{
		"run_id":    res.RunID,
		"articles":  len(res.Articles),
		"published": res.Published,
		"failed":    res.Failed,
	})
	return runErr
}

func buildPublishers(ctx context.Context, path string, log logger.Logger) ([]crawler.EventPublisher, error) {
	if path == "" {
		return nil, nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}

	built, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), reg.Enabled(), log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	out := make([]crawler.EventPublisher, 0, len(built))
	for _, p := range built {
		out = append(out, p)
	}
	return out, nil
}
