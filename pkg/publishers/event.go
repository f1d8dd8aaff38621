package publishers

import (
	"context"
	"time"

	"github.com/backcourt/backcourt/internal/domain"
)

// Event is the payload delivered to every publisher once per harvest run.
type Event struct {
	RunID        string           `json:"run_id"`
	HarvestedAt  time.Time        `json:"harvested_at"`
	SourceCount  int              `json:"source_count"`
	ArticleCount int              `json:"article_count"`
	Articles     []domain.Article `json:"articles"`
}

// NewEvent builds the event for a finished harvest run.
func NewEvent(runID string, sources int, articles []domain.Article, at time.Time) Event {
	if articles == nil {
		articles = []domain.Article{}
	}
	return Event{
		RunID:        runID,
		HarvestedAt:  at.UTC(),
		SourceCount:  sources,
		ArticleCount: len(articles),
		Articles:     articles,
	}
}

// Publisher delivers harvest events to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Logger is the structured logging surface publishers need.
type Logger interface {
	DebugObj(msg, event string, fields map[string]any)
	InfoObj(msg, event string, fields map[string]any)
	WarnObj(msg, event string, fields map[string]any)
	ErrorObj(msg, event string, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) DebugObj(string, string, map[string]any) {}
func (nopLogger) InfoObj(string, string, map[string]any)  {}
func (nopLogger) WarnObj(string, string, map[string]any)  {}
func (nopLogger) ErrorObj(string, string, map[string]any) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}
