package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// httpPublisher posts events as JSON to a generic HTTP endpoint.
type httpPublisher struct {
	id      string
	typ     string
	url     string
	method  string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

// newHTTPPublisher creates an HTTP publisher from its config entry.
func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds * time.Second
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}

	return &httpPublisher{
		id:      cfg.ID,
		typ:     cfg.Type,
		url:     cfg.HTTP.URL,
		method:  method,
		headers: cfg.HTTP.Headers,
		client:  resty.New().SetTimeout(timeout),
		log:     ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return p.typ }

// Publish sends the event body; any non-2xx response is an error.
func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	req := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(evt)
	if len(p.headers) > 0 {
		req.SetHeaders(p.headers)
	}

	resp, err := req.Execute(p.method, p.url)
	if err != nil {
		p.log.ErrorObj("http publisher send failed", "publisher_http_error", map[string]any{
			"publisher_id": p.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("send event to %s: %w", p.url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("http publisher %q got status %d", p.id, resp.StatusCode())
	}

	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": p.id,
		"run_id":       evt.RunID,
		"status":       resp.StatusCode(),
	})
	return nil
}
