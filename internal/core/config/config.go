// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kusari-oss/vigil/internal/approval"
	"gopkg.in/yaml.v3"
)

// Constants for default paths
const (
	DefaultConfigDir      = ".vigil"
	DefaultConfigFileName = "config.yaml"
)

// Environment variables that override file settings
const (
	EnvHome          = "VIGIL_HOME"
	EnvSigningSecret = "VIGIL_SIGNING_SECRET"
	EnvESAddresses   = "VIGIL_ES_ADDRESSES"
	EnvESAPIKey      = "VIGIL_ES_API_KEY"
	EnvNATSURL       = "VIGIL_NATS_URL"
	EnvLogLevel      = "VIGIL_LOG_LEVEL"
)

// Actor transports
const (
	TransportHTTP   = "http"
	TransportNATS   = "nats"
	TransportDryRun = "dryrun"
)

// Config holds the executor configuration
type Config struct {
	AgentID         string                 `yaml:"agent_id"`
	SigningSecret   string                 `yaml:"signing_secret"`
	LogLevel        string                 `yaml:"log_level"`
	Elasticsearch   ElasticsearchConfig    `yaml:"elasticsearch"`
	NATS            NATSConfig             `yaml:"nats"`
	Actors          map[string]ActorConfig `yaml:"actors"`
	Approval        ApprovalConfig         `yaml:"approval"`
	Webhook         WebhookConfig          `yaml:"webhook"`
	DispatchTimeout time.Duration          `yaml:"dispatch_timeout"`
	Parallelism     int                    `yaml:"parallelism"`
}

// ElasticsearchConfig locates the audit and approval indices.
// With no addresses the executor falls back to an in-memory store.
type ElasticsearchConfig struct {
	Addresses      []string `yaml:"addresses"`
	APIKey         string   `yaml:"api_key"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	ActionsIndex   string   `yaml:"actions_index"`
	ApprovalsIndex string   `yaml:"approvals_index"`
}

// NATSConfig is the shared connection used by nats actors
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// ActorConfig describes how to reach one workflow target
type ActorConfig struct {
	Transport string `yaml:"transport"`
	URL       string `yaml:"url,omitempty"`
	Subject   string `yaml:"subject,omitempty"`
}

// ApprovalConfig bounds approval waits
type ApprovalConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxPollErrors int           `yaml:"max_poll_errors"`
	// Policy is an optional CEL expression that escalates actions to require approval
	Policy string `yaml:"policy,omitempty"`
	// Announce posts the approval request to wf-notify before polling
	Announce bool `yaml:"announce"`
}

// WebhookConfig is the approval callback listener
type WebhookConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// NewDefaultConfig creates a default configuration
func NewDefaultConfig() *Config {
	return &Config{
		AgentID:  "vigil-executor",
		LogLevel: "info",
		Elasticsearch: ElasticsearchConfig{
			ActionsIndex:   "vigil-actions",
			ApprovalsIndex: "vigil-approval-responses",
		},
		NATS: NATSConfig{
			SubjectPrefix: "vigil.actors",
		},
		Actors: map[string]ActorConfig{},
		Approval: ApprovalConfig{
			PollInterval:  5 * time.Second,
			Timeout:       15 * time.Minute,
			MaxPollErrors: 5,
		},
		Webhook: WebhookConfig{
			Listen: ":8080",
			Path:   "/webhooks/approval",
		},
		DispatchTimeout: 30 * time.Second,
		Parallelism:     4,
	}
}

// ExpandPathWithTilde expands ~ to the vigil home directory
func ExpandPathWithTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := getHomeDir()
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// getHomeDir returns the home directory, respecting VIGIL_HOME
func getHomeDir() string {
	if vigilHome := os.Getenv(EnvHome); vigilHome != "" {
		return vigilHome
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// DefaultConfigFilePath returns the absolute path to the config file
func DefaultConfigFilePath() (string, error) {
	home := getHomeDir()
	if home == "" {
		return "", fmt.Errorf("could not determine home directory: set %s", EnvHome)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFileName), nil
}

// LoadConfig loads defaults, merges the config file over them and applies
// environment overrides. A missing file at the default location is not an error;
// a missing file passed explicitly is.
func LoadConfig(pathOverride string) (*Config, error) {
	path := ExpandPathWithTilde(pathOverride)
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultConfigFilePath(); err != nil {
			return nil, err
		}
	}

	config := NewDefaultConfig()
	if err := mergeConfigFile(config, path); err != nil {
		if !os.IsNotExist(err) || explicit {
			return nil, err
		}
	}

	applyEnv(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// mergeConfigFile decodes the file on top of config; keys absent from the file keep their values
func mergeConfigFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(config *Config) {
	if v := os.Getenv(EnvSigningSecret); v != "" {
		config.SigningSecret = v
	}
	if v := os.Getenv(EnvESAddresses); v != "" {
		var addresses []string
		for _, addr := range strings.Split(v, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				addresses = append(addresses, addr)
			}
		}
		config.Elasticsearch.Addresses = addresses
	}
	if v := os.Getenv(EnvESAPIKey); v != "" {
		config.Elasticsearch.APIKey = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		config.NATS.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.LogLevel = v
	}
}

// Validate checks settings that would otherwise fail at dispatch time
func (c *Config) Validate() error {
	if c.AgentID == "" {
		return fmt.Errorf("agent_id cannot be empty")
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	if c.Approval.PollInterval <= 0 {
		return fmt.Errorf("approval.poll_interval must be positive")
	}
	if c.Approval.Timeout < 0 {
		return fmt.Errorf("approval.timeout cannot be negative")
	}

	for target, actor := range c.Actors {
		switch actor.Transport {
		case TransportHTTP:
			if actor.URL == "" {
				return fmt.Errorf("actor %s: http transport requires a url", target)
			}
		case TransportNATS:
			if c.NATS.URL == "" {
				return fmt.Errorf("actor %s: nats transport requires nats.url", target)
			}
		case TransportDryRun:
		default:
			return fmt.Errorf("actor %s: unknown transport %q (valid: http, nats, dryrun)", target, actor.Transport)
		}
	}
	return nil
}

// PollOptions returns the approval wait bounds
func (c *Config) PollOptions() approval.PollOptions {
	return approval.PollOptions{
		Interval:  c.Approval.PollInterval,
		Timeout:   c.Approval.Timeout,
		MaxErrors: c.Approval.MaxPollErrors,
	}
}

// ActorFor returns the transport settings for a target. Targets without an
// explicit entry use nats when a connection is configured.
func (c *Config) ActorFor(target string) (ActorConfig, bool) {
	if actor, ok := c.Actors[target]; ok {
		return actor, true
	}
	if c.NATS.URL != "" {
		return ActorConfig{Transport: TransportNATS}, true
	}
	return ActorConfig{}, false
}

// SaveConfig writes the configuration to path, creating parent directories
func SaveConfig(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory '%s': %w", filepath.Dir(path), err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// The file may carry the signing secret
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("error writing config file '%s': %w", path, err)
	}
	return nil
}
