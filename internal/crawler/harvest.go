package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/backcourt/backcourt/internal/domain"
	"github.com/backcourt/backcourt/internal/logger"
	"github.com/backcourt/backcourt/pkg/adapters"
	"github.com/backcourt/backcourt/pkg/publishers"

	"github.com/google/uuid"
)

// ErrAllPublishersFailed is returned when publishers were configured and none
// accepted the run's event.
var ErrAllPublishersFailed = errors.New("all publishers failed")

// HarvestResult summarizes one harvest run.
type HarvestResult struct {
	RunID     string
	Articles  []domain.Article
	Published int
	Failed    int
}

// Harvester runs one scrape over the registry and forwards the result to the
// configured publishers.
type Harvester struct {
	scraper    ArticleScraper
	publishers []EventPublisher
	log        logger.Logger
	now        func() time.Time
}

// NewHarvester wires a scraper to zero or more publishers.
func NewHarvester(scraper ArticleScraper, pubs []EventPublisher, log logger.Logger) *Harvester {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Harvester{
		scraper:    scraper,
		publishers: pubs,
		log:        log,
		now:        time.Now,
	}
}

// Run scrapes the sites and publishes a single event. Scraping itself never
// fails; an error means every configured publisher rejected the event.
func (h *Harvester) Run(ctx context.Context, sites []adapters.SiteAdapter) (HarvestResult, error) {
	runID := uuid.NewString()
	articles := h.scraper.ScrapeAll(ctx, sites)

	res := HarvestResult{RunID: runID, Articles: articles}

	h.log.InfoObj("harvest scraped", "harvest_scraped", map[string]any{
		"run_id":   runID,
		"sources":  len(sites),
		"articles": len(articles),
	})

	if len(h.publishers) == 0 {
		return res, nil
	}

	evt := publishers.NewEvent(runID, len(sites), articles, h.now())
	for _, pub := range h.publishers {
		if err := pub.Publish(ctx, evt); err != nil {
			res.Failed++
			h.log.WarnObj("harvest publish failed", "harvest_publish_error", map[string]any{
				"run_id":       runID,
				"publisher_id": pub.ID(),
				"error":        err.Error(),
			})
			continue
		}
		res.Published++
	}

	if res.Published == 0 {
		return res, ErrAllPublishersFailed
	}
	return res, nil
}
