package adapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// configFile represents the structure of the adapters configuration file.
type configFile struct {
	Adapters []SiteAdapter `json:"adapters" yaml:"adapters"`
}

// Registry is an ordered, validated set of site adapters. It is read-only
// once built; order decides the order of scraped results.
type Registry struct {
	adapters []SiteAdapter
	idx      map[string]int
}

// NewRegistry sanitizes and validates the adapters. Names are unique,
// compared case-insensitively, and every selector must compile.
func NewRegistry(list ...SiteAdapter) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("registry contains no adapters")
	}

	reg := &Registry{
		adapters: make([]SiteAdapter, len(list)),
		idx:      make(map[string]int, len(list)),
	}

	for i := range list {
		a := sanitize(list[i])
		if err := validate(a); err != nil {
			return nil, fmt.Errorf("adapters[%d]: %w", i, err)
		}
		key := strings.ToLower(a.Name)
		if _, exists := reg.idx[key]; exists {
			return nil, fmt.Errorf("duplicate adapter name %q", a.Name)
		}
		reg.adapters[i] = a
		reg.idx[key] = i
	}

	return reg, nil
}

// LoadRegistry loads the adapter registry from a YAML/JSON file. ${VAR}
// references are expanded from the environment before decoding.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("adapters file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read adapters file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(raw)))

	file, err := parseAdapterFile(expanded, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(file.Adapters) == 0 {
		return nil, errors.New("adapters file contains no adapters entries")
	}

	return NewRegistry(file.Adapters...)
}

// parseAdapterFile decodes the adapters file content by extension, trying
// every known format when the extension is unknown.
func parseAdapterFile(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	known := false
	for _, d := range decoders {
		if ext == d.ext {
			known = true
		}
	}

	var lastErr error
	for _, d := range decoders {
		if known && ext != d.ext {
			continue
		}
		var file configFile
		if err := d.fn(data, &file); err != nil {
			lastErr = fmt.Errorf("decode %s adapters: %w", d.name, err)
			continue
		}
		return file, nil
	}

	if lastErr != nil {
		return configFile{}, lastErr
	}
	return configFile{}, errors.New("adapters file format not recognized (expected YAML or JSON)")
}

// validate checks that required fields are present and selectors compile.
func validate(a SiteAdapter) error {
	if a.Name == "" {
		return errors.New("name is required")
	}
	if err := validateAbsURL(a.Address); err != nil {
		return fmt.Errorf("address for adapter %q: %w", a.Name, err)
	}
	if a.BaseURL != "" {
		if err := validateAbsURL(a.BaseURL); err != nil {
			return fmt.Errorf("base_url for adapter %q: %w", a.Name, err)
		}
	}
	if a.TitleSelector == "" {
		return fmt.Errorf("title_selector is required for adapter %q", a.Name)
	}
	if a.LinkSelector == "" {
		return fmt.Errorf("link_selector is required for adapter %q", a.Name)
	}

	selectors := []struct {
		field string
		value string
	}{
		{"container_selector", a.ContainerSelector},
		{"title_selector", a.TitleSelector},
		{"link_selector", a.LinkSelector},
		{"image_selector", a.ImageSelector},
	}
	for _, s := range selectors {
		if s.value == "" {
			continue
		}
		if _, err := cascadia.Compile(s.value); err != nil {
			return fmt.Errorf("%s %q for adapter %q: %w", s.field, s.value, a.Name, err)
		}
	}
	return nil
}

func validateAbsURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// ByName returns the adapter by name, case-insensitively.
func (r *Registry) ByName(name string) (SiteAdapter, bool) {
	if r == nil {
		return SiteAdapter{}, false
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return SiteAdapter{}, false
	}

	i, ok := r.idx[name]
	if !ok {
		return SiteAdapter{}, false
	}
	return r.adapters[i], true
}

// All returns all adapters in registry order.
func (r *Registry) All() []SiteAdapter {
	if r == nil {
		return nil
	}

	out := make([]SiteAdapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Enabled returns adapters that are enabled, in registry order.
func (r *Registry) Enabled() []SiteAdapter {
	if r == nil {
		return nil
	}

	out := make([]SiteAdapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		if a.EnabledValue() {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of adapters.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.adapters)
}
