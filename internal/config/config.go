package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for dp.
type Config struct {
	BaseDir      string             `toml:"base_dir"`
	LogDir       string             `toml:"log_dir"`
	Function     FunctionConfig     `toml:"function"`
	Package      PackageConfig      `toml:"package"`
	Dependencies DependenciesConfig `toml:"dependencies"`
	Storage      StorageConfig      `toml:"storage"`
	AWS          AWSConfig          `toml:"aws"`
	Database     DatabaseConfig     `toml:"database"`
}

// FunctionConfig identifies the remote function being updated.
type FunctionConfig struct {
	Name    string `toml:"name"`
	Region  string `toml:"region"`
	Runtime string `toml:"runtime,omitempty"` // informational, e.g. "python3.12"
	Handler string `toml:"handler,omitempty"` // informational, e.g. "lambda_function.lambda_handler"
}

// PackageConfig describes the local build workspace.
type PackageConfig struct {
	StagingDir   string   `toml:"staging_dir"`
	ArtifactPath string   `toml:"artifact_path"`
	Sources      []string `toml:"sources"`
	// DirectUploadLimit is the size threshold in bytes for the inline
	// update path; <= 0 means the 50,000,000 byte default.
	DirectUploadLimit int64 `toml:"direct_upload_limit,omitempty"`
}

// DependenciesConfig lists the third-party packages bundled into the archive.
type DependenciesConfig struct {
	Packages  []string        `toml:"packages"`
	Installer InstallerConfig `toml:"installer"`
}

// InstallerConfig selects the dependency installation backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type InstallerConfig struct {
	Type string `toml:"type"` // "pip" (default) or "docker"

	// Pip-specific fields (only used when Type == "pip")
	Pip string `toml:"pip,omitempty"` // pip binary, default "pip3"

	// Docker-specific fields (only used when Type == "docker").
	// The image and platform must match the remote function's runtime and
	// architecture, or the published function fails at invocation time.
	Image    string `toml:"image,omitempty"`
	Platform string `toml:"platform,omitempty"` // e.g. "linux/amd64"
}

// StorageConfig configures the transient bucket used for oversized archives.
type StorageConfig struct {
	BucketPrefix string `toml:"bucket_prefix"`
}

// AWSConfig holds optional static credentials. When empty, the default
// credential chain (environment, shared config, instance role) is used.
type AWSConfig struct {
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
}

// DatabaseConfig represents configuration for the deploy history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config with workspace paths derived from baseDir
// and everything else left for the operator to fill in.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Package: PackageConfig{
			StagingDir:   filepath.Join(baseDir, "staging"),
			ArtifactPath: filepath.Join(baseDir, "function.zip"),
		},
		Dependencies: DependenciesConfig{
			Installer: InstallerConfig{Type: "pip"},
		},
		Storage: StorageConfig{
			BucketPrefix: "dp-staging",
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Validate checks the fields every command needs. A missing log_dir is
// derived from base_dir rather than rejected, so a hand-written minimal
// config still logs somewhere sensible.
func (c *Config) Validate() error {
	if c.Package.StagingDir == "" {
		return fmt.Errorf("package.staging_dir is not set")
	}
	if c.Package.ArtifactPath == "" {
		return fmt.Errorf("package.artifact_path is not set")
	}
	if c.LogDir == "" {
		if c.BaseDir == "" {
			return fmt.Errorf("log_dir is not set (set log_dir or base_dir)")
		}
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	return nil
}

// ValidateFunction checks the remote function reference. Only commands that
// talk to the remote service need this.
func (c *Config) ValidateFunction() error {
	if c.Function.Name == "" {
		return fmt.Errorf("function.name is not set")
	}
	if c.Function.Region == "" {
		return fmt.Errorf("function.region is not set")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
