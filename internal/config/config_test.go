package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHCL(t *testing.T) {
	src := `
schema_version = "1.0"
targets        = ["redhat", "netplan"]
rootfs         = "/mnt/target"
hostname       = "web-1"
resolvers      = ["147.75.207.207"]

metadata {
  file   = "/run/metadata.json"
  format = "canonical"
}

logging {
  level = "debug"
  json  = true
}

state {
  enabled = false
}

discovery {
  enabled = true
  netns   = "provision"
}
`
	cfg, err := LoadHCL([]byte(src), "test.hcl")
	require.NoError(t, err)

	assert.Equal(t, []string{"redhat", "netplan"}, cfg.Targets)
	assert.Equal(t, "/mnt/target", cfg.RootFS)
	assert.Equal(t, "web-1", cfg.Hostname)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.PrivateSubnets, "default kept")

	assert.Equal(t, "/run/metadata.json", cfg.Metadata.File)
	assert.Empty(t, cfg.Metadata.URL, "file replaces the default url")
	assert.Equal(t, FormatCanonical, cfg.Metadata.Format)
	assert.Equal(t, "auto", cfg.Metadata.Encoding)
	assert.Equal(t, DefaultTimeout, cfg.Metadata.TimeoutDuration())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.False(t, cfg.State.Enabled)
	assert.NotEmpty(t, cfg.State.Path)
	assert.Equal(t, "provision", cfg.Discovery.Netns)
	assert.Equal(t, "/etc/resolv.conf", cfg.Discovery.ResolvConf)
	assert.NotNil(t, cfg.Metrics)

	assert.Empty(t, cfg.Validate())
}

func TestLoadHCLEmpty(t *testing.T) {
	cfg, err := LoadHCL(nil, "empty.hcl")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadHCLErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `targets = [`, "parse error"},
		{"unknown attribute", `colour = "blue"`, "decode error"},
		{"bad version", `schema_version = "one"`, "invalid schema version"},
		{"future version", `schema_version = "2.0"`, "unsupported config schema version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadHCL([]byte(tt.src), "bad.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadFile(filepath.Join(dir, "absent.hcl"))
		require.NoError(t, err)
		assert.Empty(t, cfg.Targets, "targets come from the metadata distro")
		assert.Equal(t, "debian", cfg.FallbackTarget)
	})

	t.Run("environment overrides", func(t *testing.T) {
		path := filepath.Join(dir, "env.hcl")
		require.NoError(t, os.WriteFile(path, []byte(`
metadata {
  file = "/tmp/md.json"
}
`), 0644))
		t.Setenv(EnvMetadataURL, "http://127.0.0.1:8080/metadata")
		t.Setenv(EnvRootFS, "/srv/root")
		t.Setenv(EnvLogLevel, "warn")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:8080/metadata", cfg.Metadata.URL)
		assert.Empty(t, cfg.Metadata.File)
		assert.Equal(t, "/srv/root", cfg.RootFS)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})
}

func TestValidate(t *testing.T) {
	assert.Empty(t, Default().Validate())

	cfg := Default()
	cfg.Targets = []string{"../debian"}
	cfg.FallbackTarget = ""
	cfg.RootFS = "relative/root"
	cfg.Hostname = "bad_host"
	cfg.PrivateSubnets = []string{"10.0.0.0/33"}
	cfg.Resolvers = []string{"dns.example"}
	cfg.Metadata.URL = "ftp://metadata"
	cfg.Metadata.Format = "xml"
	cfg.Metadata.Encoding = "toml"
	cfg.Metadata.Timeout = "-1s"
	cfg.Logging.Level = "loud"
	cfg.State.Path = ""
	cfg.Discovery.Netns = "../host"

	errs := cfg.Validate()
	require.True(t, errs.HasErrors())

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, f := range []string{
		"targets[0]", "fallback_target", "rootfs", "hostname", "private_subnets[0]", "resolvers[0]",
		"metadata.url", "metadata.format", "metadata.encoding", "metadata.timeout",
		"logging.level", "state.path", "discovery.netns",
	} {
		assert.True(t, fields[f], "expected a violation for %s", f)
	}
	assert.Contains(t, errs.Error(), "rootfs: must be an absolute path")
}

func TestTimeoutDuration(t *testing.T) {
	var m *MetadataConfig
	assert.Equal(t, DefaultTimeout, m.TimeoutDuration())
	assert.Equal(t, 5*time.Second, (&MetadataConfig{Timeout: "5s"}).TimeoutDuration())
	assert.Equal(t, DefaultTimeout, (&MetadataConfig{Timeout: "soon"}).TimeoutDuration())
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "packet-networking.hcl")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# This file was automatically generated")
	assert.Contains(t, string(data), "metadata {")

	cfg, err := LoadHCL(data, path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	assert.Error(t, WriteDefault(path), "existing file is kept")
}

func TestSchemaVersion(t *testing.T) {
	v, err := ParseVersion("")
	require.NoError(t, err)
	assert.Equal(t, "1.0", v.String())
	assert.True(t, IsSupportedVersion(v))

	a, _ := ParseVersion("1.2")
	b, _ := ParseVersion("2.0")
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}
