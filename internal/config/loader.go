package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/mmlb/packethost-packet-networking/internal/brand"
)

// Environment variables that override file settings.
var (
	EnvMetadataURL = brand.ConfigEnvPrefix + "_METADATA_URL"
	EnvRootFS      = brand.ConfigEnvPrefix + "_ROOTFS"
	EnvLogLevel    = brand.ConfigEnvPrefix + "_LOG_LEVEL"
)

// LoadFile reads, decodes and fills defaults for the config at path.
// A missing file yields Default. Environment overrides are applied last.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg := Default()
		ApplyEnv(cfg, os.Getenv)
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := LoadHCL(data, path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// LoadHCL decodes HCL bytes. filename only labels diagnostics.
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	// Probe the version before decoding against the schema.
	var versionProbe struct {
		SchemaVersion string `hcl:"schema_version,optional"`
	}
	_ = gohcl.DecodeBody(file.Body, nil, &versionProbe)

	version, err := ParseVersion(versionProbe.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid schema version: %w", err)
	}
	if !IsSupportedVersion(version) {
		return nil, fmt.Errorf("unsupported config schema version %s (supported: %v)",
			version, SupportedVersions)
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// ApplyEnv overrides settings from the environment through getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvMetadataURL)); v != "" {
		cfg.Metadata.URL = v
		cfg.Metadata.File = ""
	}
	if v := strings.TrimSpace(getenv(EnvRootFS)); v != "" {
		cfg.RootFS = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
}
