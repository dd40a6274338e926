package validation

import (
	"fmt"
	"net/netip"
	"path"
	"regexp"
	"strings"
)

var (
	// Valid interface name: alphanumeric, dash, underscore, dot (for VLANs), max 15 chars (IFNAMSIZ-1)
	interfaceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,15}$`)

	// Valid identifier: alphanumeric, dash, underscore, dot, colon
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

	// RFC 1123 label
	hostnameLabelRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

	// Characters that must never reach a generated shell fragment or config line
	dangerousChars = []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}
)

// MaxInterfaceNameLen is the longest name the kernel accepts.
const MaxInterfaceNameLen = 15

// ValidateInterfaceName validates a network interface name
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name cannot be empty")
	}

	if len(name) > MaxInterfaceNameLen {
		return fmt.Errorf("interface name too long (max %d characters): %s", MaxInterfaceNameLen, name)
	}

	if !interfaceNameRegex.MatchString(name) {
		return fmt.Errorf("invalid interface name: %s (must be alphanumeric with -_.)", name)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("invalid interface name: %s", name)
	}

	return nil
}

// ValidateIdentifier validates a metadata record identifier.
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if len(id) > 255 {
		return fmt.Errorf("identifier too long (max 255 characters)")
	}

	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("invalid identifier: %s (must be alphanumeric with -_.:)", id)
	}

	return nil
}

// ValidateHostname validates an RFC 1123 hostname (optionally fully qualified).
func ValidateHostname(name string) error {
	if name == "" {
		return fmt.Errorf("hostname cannot be empty")
	}
	if len(name) > 253 {
		return fmt.Errorf("hostname too long (max 253 characters)")
	}
	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		if !hostnameLabelRegex.MatchString(label) {
			return fmt.Errorf("invalid hostname label %q in %s", label, name)
		}
	}
	return nil
}

// ValidateIP validates a bare IP address. Zones are rejected.
func ValidateIP(s string) error {
	if s == "" {
		return fmt.Errorf("IP address cannot be empty")
	}

	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return fmt.Errorf("invalid IP address: %s", s)
	}

	return nil
}

// ValidateCIDR validates a prefix in CIDR notation. Host bits may be set.
func ValidateCIDR(s string) error {
	if _, err := netip.ParsePrefix(s); err != nil {
		return fmt.Errorf("invalid CIDR: %w", err)
	}
	return nil
}

// ValidateRelativePath validates a slash-separated path that must stay
// below the root it is joined to.
func ValidateRelativePath(p string) error {
	if p == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if strings.Contains(p, "\x00") {
		return fmt.Errorf("null byte in path")
	}

	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("path must be relative: %s", p)
	}

	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(p, "/../") {
		return fmt.Errorf("path traversal not allowed: %s", p)
	}

	return nil
}

// ValidateAllowlist checks if a value is in an allowed list
func ValidateAllowlist(value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("value %q not in allowlist (%s)", value, strings.Join(allowed, ", "))
}

// ContainsDangerousChars reports whether s carries shell metacharacters.
func ContainsDangerousChars(s string) bool {
	for _, char := range dangerousChars {
		if strings.Contains(s, char) {
			return true
		}
	}
	return false
}
