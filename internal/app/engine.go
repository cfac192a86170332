package app

import (
	"fmt"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/engine"
)

// NewEngine builds an engine from a built-in version name or a YAML file path.
// An empty name selects the default version.
func NewEngine(name string) (*engine.Engine, error) {
	cfg, err := config.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("load scoring config %q: %w", name, err)
	}
	return engine.New(cfg)
}
