package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-containers/framework/container"
)

// Options converts the container section into container options.
// Unknown policy or lifetime names are reported as errors so a typo in .env
// fails at boot rather than silently falling back.
func (c ContainerConfig) Options(logger *zap.Logger) ([]container.Option, error) {
	policy, err := container.ParseScopePolicy(c.ScopePolicy)
	if err != nil {
		return nil, fmt.Errorf("CONTAINER_SCOPE_POLICY: %w", err)
	}

	opts := []container.Option{
		container.WithLogger(logger),
		container.WithScopePolicy(policy),
	}

	if c.DefaultLifetime != "" {
		lifetime, err := container.ParseLifetime(c.DefaultLifetime)
		if err != nil {
			return nil, fmt.Errorf("CONTAINER_DEFAULT_LIFETIME: %w", err)
		}
		opts = append(opts, container.WithDefaultLifetime(lifetime))
	}

	return opts, nil
}
