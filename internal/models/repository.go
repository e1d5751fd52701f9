package models

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// ConfigFileName is the configuration file looked up in the repository root.
const ConfigFileName = "mothman.yaml"

// RepositoryConfig contains configuration for repository generation
type RepositoryConfig struct {
	// Root is the repository root; Release and the Packages files live here.
	Root string `yaml:"-"`

	// DebPath is the directory holding package files, relative to Root.
	DebPath string `yaml:"deb_path"`
	// PackageType is the extension scanned for (deb or udeb).
	PackageType string `yaml:"type"`
	// Arch restricts the index to one architecture (plus "all") when set.
	Arch string `yaml:"arch"`
	// Multiversion keeps every discovered version instead of only the latest.
	Multiversion bool `yaml:"multiversion"`
	// Compress lists the index encodings to write, e.g. cat, gz, bz2, xz, zst.
	Compress []string `yaml:"compress"`
	// StampDate sets the Release Date field on every build.
	StampDate bool `yaml:"stamp_date"`

	// Depictions
	Host     string                     `yaml:"host"`
	Template string                     `yaml:"template"`
	Extras   map[string]DepictionExtras `yaml:"packages,omitempty"`
}

// DepictionExtras is per-package depiction data that does not appear in
// the control file.
type DepictionExtras struct {
	Price       string   `yaml:"price"`
	HeaderImage string   `yaml:"header_image"`
	Screenshots []string `yaml:"screenshots"`
}

// DefaultConfig returns the settings used when neither flags nor a config
// file say otherwise.
func DefaultConfig() RepositoryConfig {
	return RepositoryConfig{
		Root:        ".",
		DebPath:     "debs",
		PackageType: "deb",
		Compress:    []string{"cat", "gz"},
	}
}

// LoadConfigFile reads a YAML configuration file over the defaults.
func LoadConfigFile(path string) (*RepositoryConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Type: ErrIO, Path: path, Err: fmt.Errorf("failed to read config: %w", err)}
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(content, &config); err != nil {
		return nil, &Error{Type: ErrConfig, Path: path, Err: fmt.Errorf("failed to parse config: %w", err)}
	}
	return &config, nil
}

// WriteConfigFile persists config as YAML.
func WriteConfigFile(path string, config *RepositoryConfig) error {
	content, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0644)
}
