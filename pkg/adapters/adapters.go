// Package adapters holds the declarative per-site scraping configuration.
package adapters

import (
	"maps"
	"strings"
)

const (
	// ModeFlat aligns independently selected titles, links and images by index.
	ModeFlat = "flat"
	// ModeContainer selects one container per article and reads the fields
	// from its descendants.
	ModeContainer = "container"

	defaultLinkAttr = "href"
	defaultAccept   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// SiteAdapter describes how to pull article headlines out of one page.
type SiteAdapter struct {
	Name              string            `json:"name" yaml:"name"`
	Address           string            `json:"address" yaml:"address"`
	BaseURL           string            `json:"base_url" yaml:"base_url"`
	ContainerSelector string            `json:"container_selector,omitempty" yaml:"container_selector,omitempty"`
	TitleSelector     string            `json:"title_selector" yaml:"title_selector"`
	LinkSelector      string            `json:"link_selector" yaml:"link_selector"`
	LinkAttr          string            `json:"link_attr,omitempty" yaml:"link_attr,omitempty"`
	ImageSelector     string            `json:"image_selector,omitempty" yaml:"image_selector,omitempty"`
	Headers           map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Enabled           *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Mode reports whether the adapter runs in container or flat mode.
func (a SiteAdapter) Mode() string {
	if a.ContainerSelector != "" {
		return ModeContainer
	}
	return ModeFlat
}

// LinkAttribute returns the attribute that carries the article URL.
func (a SiteAdapter) LinkAttribute() string {
	if a.LinkAttr == "" {
		return defaultLinkAttr
	}
	return a.LinkAttr
}

// EnabledValue returns enabled flag defaulting to true.
func (a SiteAdapter) EnabledValue() bool {
	if a.Enabled == nil {
		return true
	}
	return *a.Enabled
}

// Headers returns the request headers for the adapter. The User-Agent comes
// from the shared client unless the adapter overrides it.
func Headers(a SiteAdapter) map[string]string {
	out := map[string]string{
		"Accept": defaultAccept,
	}
	maps.Copy(out, a.Headers)
	return out
}

// sanitize trims and normalizes the adapter fields.
func sanitize(a SiteAdapter) SiteAdapter {
	a.Name = strings.TrimSpace(a.Name)
	a.Address = strings.TrimSpace(a.Address)
	a.BaseURL = strings.TrimSpace(a.BaseURL)
	a.ContainerSelector = strings.TrimSpace(a.ContainerSelector)
	a.TitleSelector = strings.TrimSpace(a.TitleSelector)
	a.LinkSelector = strings.TrimSpace(a.LinkSelector)
	a.LinkAttr = strings.TrimSpace(a.LinkAttr)
	a.ImageSelector = strings.TrimSpace(a.ImageSelector)
	a.Headers = sanitizeHeaders(a.Headers)
	if a.Enabled == nil {
		def := true
		a.Enabled = &def
	}
	return a
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
