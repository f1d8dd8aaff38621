package crawler

import (
	"context"

	"github.com/backcourt/backcourt/internal/domain"
	"github.com/backcourt/backcourt/pkg/adapters"
	"github.com/backcourt/backcourt/pkg/publishers"
)

// ArticleScraper collects normalized articles from a list of site adapters.
type ArticleScraper interface {
	ScrapeAll(ctx context.Context, sites []adapters.SiteAdapter) []domain.Article
}

// EventPublisher publishes harvested articles downstream.
type EventPublisher interface {
	ID() string
	Publish(ctx context.Context, evt publishers.Event) error
}
