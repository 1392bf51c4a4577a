// Package app composes web modules into one root handler.
package app

import (
	"fmt"
	"net/http"
	"strings"

	module "github.com/louisbranch/babylon-auth/internal/services/web/module"
)

// Compose builds a root mux serving every module's patterns. Two modules
// claiming the same pattern is a composition error.
func Compose(modules ...module.Module) (*http.ServeMux, error) {
	root := http.NewServeMux()
	seen := make(map[string]string)
	for _, feature := range modules {
		if feature == nil {
			return nil, fmt.Errorf("module is nil")
		}
		mount, err := resolveMount(feature)
		if err != nil {
			return nil, err
		}
		for _, pattern := range mount.Patterns {
			if previous, ok := seen[pattern]; ok {
				return nil, fmt.Errorf("module %q duplicates pattern %q owned by module %q", feature.ID(), pattern, previous)
			}
			seen[pattern] = feature.ID()
			root.Handle(pattern, mount.Handler)
		}
	}
	return root, nil
}

func resolveMount(feature module.Module) (module.Mount, error) {
	mount, err := feature.Mount()
	if err != nil {
		return module.Mount{}, fmt.Errorf("mount module %q: %w", feature.ID(), err)
	}
	if mount.Handler == nil {
		return module.Mount{}, fmt.Errorf("mount module %q: handler is required", feature.ID())
	}
	if len(mount.Patterns) == 0 {
		return module.Mount{}, fmt.Errorf("mount module %q: at least one pattern is required", feature.ID())
	}
	for _, pattern := range mount.Patterns {
		if err := validatePattern(pattern); err != nil {
			return module.Mount{}, fmt.Errorf("mount module %q has invalid pattern %q: %w", feature.ID(), pattern, err)
		}
	}
	return mount, nil
}

func validatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	if strings.TrimSpace(pattern) != pattern {
		return fmt.Errorf("pattern must not include surrounding whitespace")
	}
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("pattern must be a path starting with /")
	}
	return nil
}
