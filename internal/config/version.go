package config

import (
	"fmt"
	"strconv"
	"strings"
)

// SupportedVersions lists the schema versions LoadHCL accepts.
var SupportedVersions = []string{"1.0"}

// SchemaVersion represents a semantic version for config schemas
type SchemaVersion struct {
	Major int
	Minor int
}

// ParseVersion parses a version string like "1.0". Empty means 1.0.
func ParseVersion(s string) (SchemaVersion, error) {
	if s == "" {
		return SchemaVersion{Major: 1, Minor: 0}, nil
	}

	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return SchemaVersion{}, fmt.Errorf("invalid version format: %s (expected X.Y)", s)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("invalid major version: %s", parts[0])
	}

	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("invalid minor version: %s", parts[1])
	}

	return SchemaVersion{Major: major, Minor: minor}, nil
}

// String returns the version as "X.Y"
func (v SchemaVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1 if v < other, 0 if equal, 1 if v > other
func (v SchemaVersion) Compare(other SchemaVersion) int {
	switch {
	case v.Major != other.Major:
		if v.Major < other.Major {
			return -1
		}
		return 1
	case v.Minor < other.Minor:
		return -1
	case v.Minor > other.Minor:
		return 1
	}
	return 0
}

// IsSupportedVersion reports whether v is listed in SupportedVersions.
func IsSupportedVersion(v SchemaVersion) bool {
	for _, s := range SupportedVersions {
		sv, err := ParseVersion(s)
		if err == nil && sv.Compare(v) == 0 {
			return true
		}
	}
	return false
}
