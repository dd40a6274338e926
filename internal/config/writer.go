package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/mmlb/packethost-packet-networking/internal/brand"
)

// Encode renders cfg as HCL. Unset optional values are omitted.
func Encode(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.SetAttributeValue("schema_version", cty.StringVal(cfg.SchemaVersion))
	if len(cfg.Targets) > 0 {
		body.SetAttributeValue("targets", stringList(cfg.Targets))
	}
	if cfg.FallbackTarget != "" {
		body.SetAttributeValue("fallback_target", cty.StringVal(cfg.FallbackTarget))
	}
	body.SetAttributeValue("rootfs", cty.StringVal(cfg.RootFS))
	if cfg.Hostname != "" {
		body.SetAttributeValue("hostname", cty.StringVal(cfg.Hostname))
	}
	if len(cfg.PrivateSubnets) > 0 {
		body.SetAttributeValue("private_subnets", stringList(cfg.PrivateSubnets))
	}
	if len(cfg.Resolvers) > 0 {
		body.SetAttributeValue("resolvers", stringList(cfg.Resolvers))
	}

	if m := cfg.Metadata; m != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("metadata", nil).Body()
		if m.URL != "" {
			b.SetAttributeValue("url", cty.StringVal(m.URL))
		}
		if m.File != "" {
			b.SetAttributeValue("file", cty.StringVal(m.File))
		}
		b.SetAttributeValue("format", cty.StringVal(m.Format))
		b.SetAttributeValue("encoding", cty.StringVal(m.Encoding))
		b.SetAttributeValue("timeout", cty.StringVal(m.Timeout))
	}

	if l := cfg.Logging; l != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("logging", nil).Body()
		b.SetAttributeValue("level", cty.StringVal(l.Level))
		b.SetAttributeValue("json", cty.BoolVal(l.JSON))
	}

	if s := cfg.State; s != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("state", nil).Body()
		b.SetAttributeValue("enabled", cty.BoolVal(s.Enabled))
		b.SetAttributeValue("path", cty.StringVal(s.Path))
	}

	if m := cfg.Metrics; m != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("metrics", nil).Body()
		b.SetAttributeValue("textfile", cty.StringVal(m.Textfile))
	}

	if d := cfg.Discovery; d != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("discovery", nil).Body()
		b.SetAttributeValue("enabled", cty.BoolVal(d.Enabled))
		if d.Netns != "" {
			b.SetAttributeValue("netns", cty.StringVal(d.Netns))
		}
		b.SetAttributeValue("resolv_conf", cty.StringVal(d.ResolvConf))
	}

	return append([]byte(brand.GeneratedHeader()), hclwrite.Format(f.Bytes())...)
}

func stringList(ss []string) cty.Value {
	if len(ss) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, 0, len(ss))
	for _, s := range ss {
		vals = append(vals, cty.StringVal(s))
	}
	return cty.ListVal(vals)
}

// WriteDefault writes the default configuration to path.
// It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if _, err := f.Write(Encode(Default())); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	return f.Close()
}
