package bigblocks

import (
	"fmt"
	"strings"
)

// DefaultOrder is the strategy order used when none is configured.
var DefaultOrder = []string{"exchange", "node", "signed"}

// Select returns the named strategies from available, in the order given.
func Select(available []Strategy, names []string) ([]Strategy, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}
	byName := make(map[string]Strategy, len(available))
	for _, s := range available {
		byName[s.Name()] = s
	}

	selected := make([]Strategy, 0, len(names))
	for _, n := range names {
		s, ok := byName[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q", n)
		}
		selected = append(selected, s)
	}
	return selected, nil
}
