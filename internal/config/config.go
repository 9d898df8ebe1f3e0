// Package config loads Bobbin's .bobbin/config.toml, mirroring the
// defaults-then-file-then-env priority order project-cortex's config
// loader uses, retargeted from YAML to the TOML format spec.md §6 names.
package config

// Config is the complete Bobbin configuration.
type Config struct {
	Index     IndexConfig     `mapstructure:"index"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Search    SearchConfig    `mapstructure:"search"`
	Git       GitConfig       `mapstructure:"git"`
	Access    AccessConfig    `mapstructure:"access"`
}

// IndexConfig controls which files are discovered for indexing.
type IndexConfig struct {
	Include      []string `mapstructure:"include"`
	Exclude      []string `mapstructure:"exclude"`
	UseGitignore bool     `mapstructure:"use_gitignore"`
}

// EmbeddingConfig controls the embedding provider.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	BatchSize  int    `mapstructure:"batch_size"`
	BinaryPath string `mapstructure:"binary_path"`
	Port       int    `mapstructure:"port"`
}

// SearchConfig controls default search behavior.
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	// SemanticWeight is reserved for a future linear-combination mode;
	// RRF is authoritative today (spec.md §9 Open Question).
	SemanticWeight float64 `mapstructure:"semantic_weight"`
}

// GitConfig controls temporal coupling analysis.
type GitConfig struct {
	CouplingEnabled   bool    `mapstructure:"coupling_enabled"`
	CouplingDepth     int     `mapstructure:"coupling_depth"`
	CouplingThreshold float64 `mapstructure:"coupling_threshold"`
}

// AccessConfig is parsed for forward-compatibility with the
// out-of-scope role-based access filter collaborator (spec.md §1/§6);
// this repo does not enforce it.
type AccessConfig struct {
	DefaultAllow bool         `mapstructure:"default_allow"`
	Roles        []RoleConfig `mapstructure:"roles"`
}

// RoleConfig is one named role's allow/deny glob lists.
type RoleConfig struct {
	Name  string   `mapstructure:"name"`
	Allow []string `mapstructure:"allow"`
	Deny  []string `mapstructure:"deny"`
}

// Default returns a configuration with spec.md's documented defaults.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Include: []string{
				"**/*.go", "**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx",
				"**/*.py", "**/*.rs", "**/*.c", "**/*.cpp", "**/*.h",
				"**/*.hpp", "**/*.php", "**/*.rb", "**/*.java", "**/*.md",
			},
			Exclude: []string{
				"node_modules/**", "vendor/**", ".git/**", "dist/**",
				"build/**", "target/**", "__pycache__/**",
			},
			UseGitignore: true,
		},
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Model:      "all-MiniLM-L6-v2",
			BatchSize:  32,
			BinaryPath: "bobbin-embed",
			Port:       8712,
		},
		Search: SearchConfig{
			DefaultLimit:   10,
			SemanticWeight: 0.7,
		},
		Git: GitConfig{
			CouplingEnabled:   true,
			CouplingDepth:     1000,
			CouplingThreshold: 0.2,
		},
		Access: AccessConfig{
			DefaultAllow: true,
		},
	}
}
