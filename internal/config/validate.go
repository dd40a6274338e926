package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmlb/packethost-packet-networking/internal/logging"
	"github.com/mmlb/packethost-packet-networking/internal/metadata"
	"github.com/mmlb/packethost-packet-networking/internal/validation"
)

// ValidationError represents a single configuration problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks every setting and returns all problems found.
// It expects a config that went through LoadHCL or Default.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if v, err := ParseVersion(c.SchemaVersion); err != nil {
		add("schema_version", "%v", err)
	} else if !IsSupportedVersion(v) {
		add("schema_version", "unsupported version %s", v)
	}

	for i, t := range c.Targets {
		if err := validation.ValidateIdentifier(strings.ToLower(t)); err != nil {
			add(fmt.Sprintf("targets[%d]", i), "%v", err)
		}
	}

	if c.FallbackTarget == "" {
		add("fallback_target", "a fallback target is required")
	} else if err := validation.ValidateIdentifier(strings.ToLower(c.FallbackTarget)); err != nil {
		add("fallback_target", "%v", err)
	}

	if !filepath.IsAbs(c.RootFS) {
		add("rootfs", "must be an absolute path, got %q", c.RootFS)
	}

	if c.Hostname != "" {
		if err := validation.ValidateHostname(c.Hostname); err != nil {
			add("hostname", "%v", err)
		}
	}
	for i, s := range c.PrivateSubnets {
		if err := validation.ValidateCIDR(s); err != nil {
			add(fmt.Sprintf("private_subnets[%d]", i), "%v", err)
		}
	}
	for i, r := range c.Resolvers {
		if err := validation.ValidateIP(r); err != nil {
			add(fmt.Sprintf("resolvers[%d]", i), "%v", err)
		}
	}

	if m := c.Metadata; m != nil {
		if m.File == "" && m.URL == "" {
			add("metadata", "one of url or file is required")
		}
		if m.File == "" && m.URL != "" &&
			!strings.HasPrefix(m.URL, "http://") && !strings.HasPrefix(m.URL, "https://") {
			add("metadata.url", "must be an http or https URL, got %q", m.URL)
		}
		if err := validation.ValidateAllowlist(m.Format, []string{FormatCanonical, FormatPacket}); err != nil {
			add("metadata.format", "%v", err)
		}
		if _, err := metadata.ParseFormat(m.Encoding); err != nil {
			add("metadata.encoding", "%v", err)
		}
		if d, err := time.ParseDuration(m.Timeout); err != nil || d <= 0 {
			add("metadata.timeout", "must be a positive duration, got %q", m.Timeout)
		}
	}

	if l := c.Logging; l != nil {
		if _, err := logging.ParseLevel(l.Level); err != nil {
			add("logging.level", "%v", err)
		}
	}

	if s := c.State; s != nil && s.Enabled && s.Path == "" {
		add("state.path", "required when state is enabled")
	}

	if d := c.Discovery; d != nil && d.Netns != "" {
		if strings.ContainsRune(d.Netns, '/') || validation.ContainsDangerousChars(d.Netns) {
			add("discovery.netns", "invalid namespace name %q", d.Netns)
		}
	}

	return errs
}
