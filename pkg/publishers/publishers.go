// Package publishers forwards finished harvests to downstream sinks: a
// generic HTTP endpoint or a cloud queue (SQS, SNS, Pub/Sub).
package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeQueue = "queue"
	TypeHTTP  = "http"

	// Supported queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

var httpAllowedMethods = map[string]bool{"POST": true, "PUT": true, "PATCH": true}

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one sink entry of the publishers file.
type PublisherConfig struct {
	ID      string                `json:"id" yaml:"id"`
	Type    string                `json:"type" yaml:"type"`
	Enabled *bool                 `json:"enabled" yaml:"enabled"`
	Queue   *QueuePublisherConfig `json:"queue" yaml:"queue"`
	HTTP    *HTTPPublisherConfig  `json:"http" yaml:"http"`
}

// QueuePublisherConfig selects a cloud queue provider.
type QueuePublisherConfig struct {
	Provider string                 `json:"provider" yaml:"provider"`
	AWS      *AWSSQSPublisherConfig `json:"aws" yaml:"aws"`
	SNS      *AWSSNSPublisherConfig `json:"sns" yaml:"sns"`
	GCP      *GCPQueueConfig        `json:"gcp" yaml:"gcp"`
}

// AWSSQSPublisherConfig holds AWS SQS settings. Credentials are optional;
// without them the default AWS credential chain is used.
type AWSSQSPublisherConfig struct {
	QueueURL        string `json:"uri" yaml:"uri"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// AWSSNSPublisherConfig holds AWS SNS settings.
type AWSSNSPublisherConfig struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// GCPQueueConfig holds Pub/Sub topic settings.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// ConfigRegistry is the validated, ordered list of publisher entries. It is
// not modified after construction.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]int
}

// NewConfigRegistry sanitizes and validates publisher entries. IDs must be
// unique.
func NewConfigRegistry(cfgs ...PublisherConfig) (*ConfigRegistry, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, len(cfgs)),
		idx:        make(map[string]int, len(cfgs)),
	}
	for i := range cfgs {
		cfg := sanitizePublisherConfig(cfgs[i])
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.publishers[i] = cfg
		reg.idx[cfg.ID] = i
	}
	return reg, nil
}

// LoadRegistry reads publisher entries from a YAML or JSON file. ${VAR}
// references are expanded from the environment first, so secrets can stay
// out of the file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodePublishersFile([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewConfigRegistry(file.Publishers...)
}

// decodePublishersFile picks the decoder by extension. Files without a
// known extension are tried as YAML, then JSON.
func decodePublishersFile(data []byte, ext string) (configFile, error) {
	var file configFile
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return configFile{}, fmt.Errorf("decode yaml publishers: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return configFile{}, fmt.Errorf("decode json publishers: %w", err)
		}
	default:
		if yaml.Unmarshal(data, &file) != nil && json.Unmarshal(data, &file) != nil {
			return configFile{}, errors.New("publishers file format not recognized (expected YAML or JSON)")
		}
	}
	return file, nil
}

func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}
	if cfg.Queue != nil {
		q := sanitizeQueueConfig(*cfg.Queue)
		cfg.Queue = &q
	}
	if cfg.HTTP != nil {
		h := sanitizeHTTPConfig(*cfg.HTTP)
		cfg.HTTP = &h
	}
	return cfg
}

func sanitizeQueueConfig(q QueuePublisherConfig) QueuePublisherConfig {
	q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
	if q.AWS != nil {
		a := *q.AWS
		trimAll(&a.QueueURL, &a.Region, &a.AccessKeyID, &a.SecretAccessKey)
		q.AWS = &a
	}
	if q.SNS != nil {
		s := *q.SNS
		trimAll(&s.TopicARN, &s.Region, &s.AccessKeyID, &s.SecretAccessKey)
		q.SNS = &s
	}
	if q.GCP != nil {
		g := *q.GCP
		trimAll(&g.ProjectID, &g.Topic, &g.CredentialsFile)
		q.GCP = &g
	}
	return q
}

func sanitizeHTTPConfig(h HTTPPublisherConfig) HTTPPublisherConfig {
	h.URL = strings.TrimSpace(h.URL)
	h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
	if h.Method == "" {
		h.Method = httpDefaultMethod
	}
	if h.TimeoutSeconds <= 0 {
		h.TimeoutSeconds = httpDefaultTimeoutSeconds
	}
	h.Headers = sanitizeHeaders(h.Headers)
	return h
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// sanitizeHeaders trims keys and values and drops blank entries.
func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeHTTP:
		return validateHTTPConfig(cfg.ID, cfg.HTTP)
	case TypeQueue:
		return validateQueueConfig(cfg.ID, cfg.Queue)
	default:
		return fmt.Errorf("type %q not supported for publisher %q", cfg.Type, cfg.ID)
	}
}

func validateHTTPConfig(id string, cfg *HTTPPublisherConfig) error {
	if cfg == nil {
		return fmt.Errorf("http config required for publisher %q", id)
	}
	if cfg.URL == "" {
		return fmt.Errorf("http.url is required for publisher %q", id)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("http.url %q must be an absolute http(s) url for publisher %q", cfg.URL, id)
	}
	if !httpAllowedMethods[cfg.Method] {
		return fmt.Errorf("http.method %q not supported for publisher %q", cfg.Method, id)
	}
	return nil
}

func validateQueueConfig(id string, q *QueuePublisherConfig) error {
	if q == nil {
		return fmt.Errorf("queue config required for publisher %q", id)
	}

	switch q.Provider {
	case QueueProviderAWSSQS:
		if q.AWS == nil {
			return fmt.Errorf("sqs config required for publisher %q", id)
		}
		return validateAWSTarget(id, "sqs", map[string]string{
			"uri":    q.AWS.QueueURL,
			"region": q.AWS.Region,
		}, q.AWS.AccessKeyID, q.AWS.SecretAccessKey)
	case QueueProviderAWSSNS:
		if q.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", id)
		}
		return validateAWSTarget(id, "sns", map[string]string{
			"topic_arn": q.SNS.TopicARN,
			"region":    q.SNS.Region,
		}, q.SNS.AccessKeyID, q.SNS.SecretAccessKey)
	case QueueProviderGCP:
		if q.GCP == nil {
			return fmt.Errorf("gcp config required for publisher %q", id)
		}
		if q.GCP.ProjectID == "" {
			return fmt.Errorf("gcp.project_id is required for publisher %q", id)
		}
		if q.GCP.Topic == "" {
			return fmt.Errorf("gcp.topic is required for publisher %q", id)
		}
		return nil
	default:
		return fmt.Errorf("queue provider %q not supported for publisher %q", q.Provider, id)
	}
}

// validateAWSTarget checks the required fields of an SQS or SNS entry.
// Static credentials are all-or-nothing.
func validateAWSTarget(id, prefix string, required map[string]string, keyID, secret string) error {
	for _, field := range []string{"uri", "topic_arn", "region"} {
		value, ok := required[field]
		if ok && value == "" {
			return fmt.Errorf("%s.%s is required for publisher %q", prefix, field, id)
		}
	}
	if (keyID == "") != (secret == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", prefix, prefix, id)
	}
	return nil
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns every configured publisher in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns the enabled publishers in file order.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}
	out := make([]PublisherConfig, 0, len(r.publishers))
	for _, cfg := range r.publishers {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}
