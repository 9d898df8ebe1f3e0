package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader loads configuration from a repository's .bobbin directory.
type Loader interface {
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader rooted at rootDir (the
// repository root; config lives at <rootDir>/.bobbin/config.toml).
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load reads configuration with priority (highest to lowest):
//  1. Environment variables (BOBBIN_*)
//  2. .bobbin/config.toml
//  3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".bobbin")
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("BOBBIN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnv(v,
		"index.use_gitignore",
		"embedding.model", "embedding.batch_size",
		"search.default_limit", "search.semantic_weight",
		"git.coupling_enabled", "git.coupling_depth", "git.coupling_threshold",
		"access.default_allow",
	)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func bindEnv(v *viper.Viper, keys ...string) {
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("index.include", d.Index.Include)
	v.SetDefault("index.exclude", d.Index.Exclude)
	v.SetDefault("index.use_gitignore", d.Index.UseGitignore)

	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)

	v.SetDefault("search.default_limit", d.Search.DefaultLimit)
	v.SetDefault("search.semantic_weight", d.Search.SemanticWeight)

	v.SetDefault("git.coupling_enabled", d.Git.CouplingEnabled)
	v.SetDefault("git.coupling_depth", d.Git.CouplingDepth)
	v.SetDefault("git.coupling_threshold", d.Git.CouplingThreshold)

	v.SetDefault("access.default_allow", d.Access.DefaultAllow)
}

// LoadFromDir is a convenience wrapper for NewLoader(rootDir).Load().
func LoadFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}

// DataDir returns <repoRoot>/.bobbin.
func DataDir(repoRoot string) string { return filepath.Join(repoRoot, ".bobbin") }

// DBPath returns the metadata store path.
func DBPath(repoRoot string) string { return filepath.Join(DataDir(repoRoot), "index.db") }

// VectorsDir returns the vector+FTS store directory.
func VectorsDir(repoRoot string) string { return filepath.Join(DataDir(repoRoot), "vectors") }
