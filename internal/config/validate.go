package config

import "fmt"

// Validate checks structural invariants of a loaded config. It is a
// configuration-kind error per spec.md §7 (fatal, not retried).
func Validate(cfg *Config) error {
	if cfg.Embedding.Model == "" {
		return fmt.Errorf("embedding.model must not be empty")
	}
	if cfg.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Search.SemanticWeight < 0 || cfg.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semantic_weight must be within [0,1], got %f", cfg.Search.SemanticWeight)
	}
	if cfg.Git.CouplingDepth < 0 {
		return fmt.Errorf("git.coupling_depth must not be negative, got %d", cfg.Git.CouplingDepth)
	}
	if cfg.Git.CouplingThreshold < 0 || cfg.Git.CouplingThreshold > 1 {
		return fmt.Errorf("git.coupling_threshold must be within [0,1], got %f", cfg.Git.CouplingThreshold)
	}
	for _, role := range cfg.Access.Roles {
		if role.Name == "" {
			return fmt.Errorf("access.roles entry missing name")
		}
	}
	return nil
}
