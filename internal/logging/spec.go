package logging

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DefaultLevel keeps command output free of log lines unless asked for.
const DefaultLevel = LevelWarn

// Spec is a base level plus per-component overrides.
//
// Format: "<base-level>[,<component>=<level>]...", e.g. "info,store=debug".
type Spec struct {
	BaseLevel  Level
	Components map[string]Level
}

// ParseSpec parses a log spec. An empty string yields DefaultLevel with no
// overrides.
func ParseSpec(s string) (Spec, error) {
	spec := Spec{BaseLevel: DefaultLevel, Components: make(map[string]Level)}

	s = strings.TrimSpace(s)
	if s == "" {
		return spec, nil
	}

	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		component, levelStr, isOverride := strings.Cut(part, "=")
		if !isOverride {
			if i != 0 {
				return spec, fmt.Errorf("base level %q must be first in spec", part)
			}
			level, err := ParseLevel(part)
			if err != nil {
				return spec, err
			}
			spec.BaseLevel = level
			continue
		}

		component = strings.TrimSpace(component)
		if component == "" {
			return spec, fmt.Errorf("empty component name in %q", part)
		}
		level, err := ParseLevel(levelStr)
		if err != nil {
			return spec, fmt.Errorf("invalid level for component %q: %w", component, err)
		}
		spec.Components[component] = level
	}
	return spec, nil
}

// LevelFor returns the effective level of component.
func (s *Spec) LevelFor(component string) Level {
	if level, ok := s.Components[component]; ok {
		return level
	}
	return s.BaseLevel
}

// String returns the spec in parseable form with components sorted.
func (s *Spec) String() string {
	parts := []string{s.BaseLevel.String()}
	for _, c := range slices.Sorted(maps.Keys(s.Components)) {
		parts = append(parts, c+"="+s.Components[c].String())
	}
	return strings.Join(parts, ",")
}
