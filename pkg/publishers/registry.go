package publishers

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)
	Types() []string
}

type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry seeded with the given builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// Register adds or replaces the builder for a type. Blank types and nil
// builders are ignored.
func (r *registry) Register(typ string, builder Builder) {
	typ = normalizeType(typ)
	if typ == "" || builder == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[typ] = builder
}

// Types lists the registered publisher types, sorted.
func (r *registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.builders))
}

// PublisherFor builds the publisher for one config entry.
func (r *registry) PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	typ := normalizeType(cfg.Type)
	if typ == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", cfg.ID)
	}

	r.mu.RLock()
	builder, ok := r.builders[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("publisher %q: type %q not registered (known: %s)",
			cfg.ID, cfg.Type, strings.Join(r.Types(), ", "))
	}
	return builder(ctx, cfg, log)
}

func normalizeType(typ string) string {
	return strings.ToLower(strings.TrimSpace(typ))
}

// DefaultRegistry knows the http and queue publisher types.
func DefaultRegistry() Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:  newHTTPPublisher,
		TypeQueue: newQueuePublisher,
	})
}

// BuildAll builds a publisher for every enabled config, in config order.
// The first failure aborts the build.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log = ensureLogger(log)

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		if !cfg.EnabledValue() {
			continue
		}
		pub, err := reg.PublisherFor(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		log.InfoObj("publisher ready", "publisher_ready", map[string]any{
			"publisher_id": pub.ID(),
			"type":         pub.Type(),
		})
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
