package commands

import (
	"fmt"
	"path/filepath"
	"slices"
)

// expandInputs expands file paths and glob patterns into a sorted,
// deduplicated list. Patterns without matches are kept as literal paths so
// the read reports a useful error. No arguments means stdin ("-").
func expandInputs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return []string{"-"}, nil
	}

	var result []string
	for _, pattern := range patterns {
		if pattern == "-" {
			result = append(result, pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			result = append(result, pattern)
			continue
		}
		result = append(result, matches...)
	}

	slices.Sort(result)
	return slices.Compact(result), nil
}
