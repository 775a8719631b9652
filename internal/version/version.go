// Package version implements the four-level project version counter
// (constellation, star system, quality gate, patch) and its reset cascade.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownComponent is returned for a component name outside the closed set.
var ErrUnknownComponent = errors.New("unknown version component")

// ErrInvalidVersion is returned when a dotted version string cannot be parsed.
var ErrInvalidVersion = errors.New("invalid version")

// Component names one level of the version tuple.
type Component string

// Version components, most significant first.
const (
	Constellation Component = "constellation"
	StarSystem    Component = "star_system"
	QualityGate   Component = "quality_gate"
	Patch         Component = "patch"
)

// Components lists all components in order of significance.
func Components() []Component {
	return []Component{Constellation, StarSystem, QualityGate, Patch}
}

// ParseComponent converts a name to a Component.
func ParseComponent(s string) (Component, error) {
	c := Component(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownComponent, s)
	}
	return c, nil
}

// Valid reports whether c is one of the four components.
func (c Component) Valid() bool {
	switch c {
	case Constellation, StarSystem, QualityGate, Patch:
		return true
	default:
		return false
	}
}

// Version is the hierarchical project version.
type Version struct {
	Constellation int `json:"constellation"`
	StarSystem    int `json:"star_system"`
	QualityGate   int `json:"quality_gate"`
	Patch         int `json:"patch"`
}

// Initial is the version a new project starts at.
var Initial = Version{Constellation: 1}

// String renders the dotted form, e.g. "2.4.0.1".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Constellation, v.StarSystem, v.QualityGate, v.Patch)
}

// Parse reads a dotted four-part version. Components must be non-negative integers.
func Parse(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 4 {
		return Version{}, fmt.Errorf("%w: %q (want C.S.Q.P)", ErrInvalidVersion, s)
	}
	var nums [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q (component %d)", ErrInvalidVersion, s, i+1)
		}
		nums[i] = n
	}
	return Version{
		Constellation: nums[0],
		StarSystem:    nums[1],
		QualityGate:   nums[2],
		Patch:         nums[3],
	}, nil
}

// Bump returns v with component c incremented. When resetLower is true every
// less significant component is zeroed.
func (v Version) Bump(c Component, resetLower bool) (Version, error) {
	switch c {
	case Constellation:
		v.Constellation++
		if resetLower {
			v.StarSystem, v.QualityGate, v.Patch = 0, 0, 0
		}
	case StarSystem:
		v.StarSystem++
		if resetLower {
			v.QualityGate, v.Patch = 0, 0
		}
	case QualityGate:
		v.QualityGate++
		if resetLower {
			v.Patch = 0
		}
	case Patch:
		v.Patch++
	default:
		return v, fmt.Errorf("%w: %q", ErrUnknownComponent, string(c))
	}
	return v, nil
}
