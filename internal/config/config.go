package config

import (
	"path/filepath"
	"time"

	"github.com/mmlb/packethost-packet-networking/internal/brand"
	"github.com/mmlb/packethost-packet-networking/internal/metadata"
)

// CurrentSchemaVersion defines the current schema version of the configuration.
const CurrentSchemaVersion = "1.0"

// Metadata document shapes accepted by metadata.format.
const (
	FormatCanonical = "canonical"
	FormatPacket    = "packet"
)

// DefaultTimeout bounds a metadata fetch when metadata.timeout is unset.
const DefaultTimeout = 30 * time.Second

// Config is the top-level structure of the tool configuration.
type Config struct {
	// Schema version for backward compatibility. Empty means "1.0".
	SchemaVersion string `hcl:"schema_version,optional"`

	// Render targets; registry keys or aliases. Empty means the target is
	// picked from the distro named in the metadata.
	Targets []string `hcl:"targets,optional"`
	// Target used when the metadata names no distro or one no renderer
	// claims.
	FallbackTarget string `hcl:"fallback_target,optional"`
	// Root the artifacts are written under by apply and read from by diff.
	RootFS string `hcl:"rootfs,optional"`

	// Overrides for host-level facts the metadata may omit.
	Hostname       string   `hcl:"hostname,optional"`
	PrivateSubnets []string `hcl:"private_subnets,optional"`
	Resolvers      []string `hcl:"resolvers,optional"`

	Metadata  *MetadataConfig  `hcl:"metadata,block"`
	Logging   *LoggingConfig   `hcl:"logging,block"`
	State     *StateConfig     `hcl:"state,block"`
	Metrics   *MetricsConfig   `hcl:"metrics,block"`
	Discovery *DiscoveryConfig `hcl:"discovery,block"`
}

// MetadataConfig says where the metadata document comes from.
type MetadataConfig struct {
	URL  string `hcl:"url,optional"`
	File string `hcl:"file,optional"` // takes precedence over url

	// canonical or packet
	Format string `hcl:"format,optional"`
	// json, yaml or auto
	Encoding string `hcl:"encoding,optional"`
	Timeout  string `hcl:"timeout,optional"`
}

// TimeoutDuration returns the parsed timeout, or DefaultTimeout.
func (m *MetadataConfig) TimeoutDuration() time.Duration {
	if m == nil || m.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(m.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `hcl:"level,optional"`
	JSON  bool   `hcl:"json,optional"`
}

// StateConfig configures the apply ledger.
type StateConfig struct {
	Enabled bool   `hcl:"enabled,optional"`
	Path    string `hcl:"path,optional"`
}

// MetricsConfig configures the node_exporter textfile export.
// An empty Textfile disables it.
type MetricsConfig struct {
	Textfile string `hcl:"textfile,optional"`
}

// DiscoveryConfig configures host NIC discovery.
type DiscoveryConfig struct {
	Enabled bool `hcl:"enabled,optional"`
	// Named network namespace to inspect instead of the current one.
	Netns      string `hcl:"netns,optional"`
	ResolvConf string `hcl:"resolv_conf,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		SchemaVersion:  CurrentSchemaVersion,
		FallbackTarget: "debian",
		RootFS:         "/",
		PrivateSubnets: append([]string(nil), metadata.DefaultPrivateSubnets...),
		Metadata: &MetadataConfig{
			URL:      brand.MetadataURL,
			Format:   FormatPacket,
			Encoding: "auto",
			Timeout:  DefaultTimeout.String(),
		},
		Logging: &LoggingConfig{Level: "info"},
		State: &StateConfig{
			Enabled: true,
			Path:    filepath.Join(brand.GetStateDir(), "state.db"),
		},
		Metrics: &MetricsConfig{},
		Discovery: &DiscoveryConfig{
			ResolvConf: "/etc/resolv.conf",
		},
	}
}

// fillDefaults sets every unset field from Default. Booleans are explicit.
func (c *Config) fillDefaults() {
	d := Default()

	if c.SchemaVersion == "" {
		c.SchemaVersion = d.SchemaVersion
	}
	if c.FallbackTarget == "" {
		c.FallbackTarget = d.FallbackTarget
	}
	if c.RootFS == "" {
		c.RootFS = d.RootFS
	}
	if c.PrivateSubnets == nil {
		c.PrivateSubnets = d.PrivateSubnets
	}

	if c.Metadata == nil {
		c.Metadata = d.Metadata
	} else {
		if c.Metadata.URL == "" && c.Metadata.File == "" {
			c.Metadata.URL = d.Metadata.URL
		}
		if c.Metadata.Format == "" {
			c.Metadata.Format = d.Metadata.Format
		}
		if c.Metadata.Encoding == "" {
			c.Metadata.Encoding = d.Metadata.Encoding
		}
		if c.Metadata.Timeout == "" {
			c.Metadata.Timeout = d.Metadata.Timeout
		}
	}

	if c.Logging == nil {
		c.Logging = d.Logging
	} else if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}

	if c.State == nil {
		c.State = d.State
	} else if c.State.Path == "" {
		c.State.Path = d.State.Path
	}

	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}

	if c.Discovery == nil {
		c.Discovery = d.Discovery
	} else if c.Discovery.ResolvConf == "" {
		c.Discovery.ResolvConf = d.Discovery.ResolvConf
	}
}
