// Package config loads and validates the YAML configuration that drives a
// node's bind address, identifier space, maintenance timing, logging,
// telemetry, and bootstrap source.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jacklowrie/chordnet/internal/bootstrap"
	"github.com/jacklowrie/chordnet/internal/logger"
	zapfactory "github.com/jacklowrie/chordnet/internal/logger/zap"
)

// NodeConfig describes this process's own bind/advertise address and
// identifier space.
type NodeConfig struct {
	Bind          string `yaml:"bind"`
	Host          string `yaml:"host"`
	Port          uint16 `yaml:"port"`
	IDBits        uint   `yaml:"id_bits"`
	MaxConcurrent int    `yaml:"max_concurrent_handlers"`
}

// MaintenanceConfig controls the stabilize/fix-fingers/check-predecessor
// scheduler and the outbound request timeout.
type MaintenanceConfig struct {
	Interval       time.Duration `yaml:"interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// BootstrapConfig selects how a joining node discovers an existing peer.
type BootstrapConfig struct {
	Mode    string                   `yaml:"mode"` // "static" or "route53"
	Peers   []string                 `yaml:"peers"`
	Route53 bootstrap.Route53Config  `yaml:"route53"`
	Timeout time.Duration            `yaml:"timeout"`
}

// TracingConfig controls whether spans are exported, and where.
type TracingConfig struct {
	Enabled        bool   `yaml:"enabled"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"` // empty: log spans to stdout instead
	ServiceName    string `yaml:"service_name"`
}

// Config is the full node configuration, loaded from a single YAML file.
type Config struct {
	Node        NodeConfig        `yaml:"node"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Bootstrap   BootstrapConfig   `yaml:"bootstrap"`
	Logger      zapfactory.Config `yaml:"logger"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Maintenance.Interval == 0 {
		c.Maintenance.Interval = time.Second
	}
	if c.Maintenance.RequestTimeout == 0 {
		c.Maintenance.RequestTimeout = 5 * time.Second
	}
	if c.Node.IDBits == 0 {
		c.Node.IDBits = 16
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "chordnet-node"
	}
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Node.Bind == "" {
		return fmt.Errorf("config: node.bind must be set")
	}
	if c.Node.IDBits == 0 || c.Node.IDBits > 64 {
		return fmt.Errorf("config: node.id_bits must be in (0, 64], got %d", c.Node.IDBits)
	}
	switch c.Bootstrap.Mode {
	case "static":
		if len(c.Bootstrap.Peers) == 0 {
			return fmt.Errorf("config: bootstrap.mode static requires at least one entry in bootstrap.peers")
		}
	case "route53":
		if c.Bootstrap.Route53.HostedZoneID == "" || c.Bootstrap.Route53.RecordName == "" {
			return fmt.Errorf("config: bootstrap.mode route53 requires hosted_zone_id and record_name")
		}
	case "":
		return fmt.Errorf("config: bootstrap.mode must be set to \"static\" or \"route53\"")
	default:
		return fmt.Errorf("config: unsupported bootstrap.mode %q", c.Bootstrap.Mode)
	}
	return nil
}

// Log writes the resolved configuration to lgr at debug level, field by
// field, so a misconfigured deployment is diagnosable from its own logs.
func (c *Config) Log(lgr logger.Logger) {
	lgr.Debug("configuration loaded",
		logger.F("node.bind", c.Node.Bind),
		logger.F("node.host", c.Node.Host),
		logger.F("node.port", c.Node.Port),
		logger.F("node.id_bits", c.Node.IDBits),
		logger.F("maintenance.interval", c.Maintenance.Interval),
		logger.F("maintenance.request_timeout", c.Maintenance.RequestTimeout),
		logger.F("bootstrap.mode", c.Bootstrap.Mode),
		logger.F("tracing.enabled", c.Tracing.Enabled))
}
