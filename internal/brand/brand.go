// Package brand provides centralized product identity constants.
//
// The identity is loaded from brand.json at compile time via go:embed so
// packaging scripts can read the same file.
package brand

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
)

//go:embed brand.json
var brandJSON []byte

// Brand holds all branding information
type Brand struct {
	Name             string `json:"name"`
	LowerName        string `json:"lowerName"`
	Vendor           string `json:"vendor"`
	Website          string `json:"website"`
	Repository       string `json:"repository"`
	Description      string `json:"description"`
	ConfigEnvPrefix  string `json:"configEnvPrefix"`
	DefaultConfigDir string `json:"defaultConfigDir"`
	DefaultStateDir  string `json:"defaultStateDir"`
	BinaryName       string `json:"binaryName"`
	ConfigFileName   string `json:"configFileName"`
	MetadataURL      string `json:"metadataURL"`
	License          string `json:"license"`
}

var b Brand

func init() {
	if err := json.Unmarshal(brandJSON, &b); err != nil {
		panic("failed to parse brand.json: " + err.Error())
	}

	Name = b.Name
	LowerName = b.LowerName
	Vendor = b.Vendor
	Website = b.Website
	Repository = b.Repository
	Description = b.Description
	ConfigEnvPrefix = b.ConfigEnvPrefix
	DefaultConfigDir = b.DefaultConfigDir
	DefaultStateDir = b.DefaultStateDir
	BinaryName = b.BinaryName
	ConfigFileName = b.ConfigFileName
	MetadataURL = b.MetadataURL
	License = b.License
}

// Exported variables for convenience
var (
	Name             string
	LowerName        string
	Vendor           string
	Website          string
	Repository       string
	Description      string
	ConfigEnvPrefix  string
	DefaultConfigDir string
	DefaultStateDir  string
	BinaryName       string
	ConfigFileName   string
	MetadataURL      string
	License          string

	// Version is set at build time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
)

// Get returns the full Brand struct
func Get() Brand {
	return b
}

// UserAgent returns a User-Agent string for HTTP requests
func UserAgent() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	return Name + "/" + v
}

// GeneratedHeader is the comment block placed at the top of generated files
// that accept '#' comments.
func GeneratedHeader() string {
	return "# This file was automatically generated by " + Name + ".\n" +
		"# Manual changes may be overwritten on the next provisioning run.\n"
}

// GetConfigDir returns the config directory, checking env vars first.
// Priority: PACKET_NETWORKING_CONFIG_DIR > DefaultConfigDir
func GetConfigDir() string {
	if dir := os.Getenv(ConfigEnvPrefix + "_CONFIG_DIR"); dir != "" {
		return dir
	}
	return DefaultConfigDir
}

// GetStateDir returns the state directory, checking env vars first.
// Priority: PACKET_NETWORKING_STATE_DIR > DefaultStateDir
func GetStateDir() string {
	if dir := os.Getenv(ConfigEnvPrefix + "_STATE_DIR"); dir != "" {
		return dir
	}
	return DefaultStateDir
}

// DefaultConfigPath returns the full path of the default config file.
func DefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), ConfigFileName)
}
