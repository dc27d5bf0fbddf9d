// Package version implements the bridge's (major, minor, patch) version
// type and compatibility rules (spec §3, §8 Testable Property 3), built on
// top of Masterminds/semver the way the teacher does for its own release
// tooling.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is a (major, minor, patch) triple of u8-range components with a
// lexicographic total order.
type Version struct {
	sv *semver.Version
}

// New constructs a Version from its components.
func New(major, minor, patch uint8) Version {
	sv, err := semver.NewVersion(fmt.Sprintf("%d.%d.%d", major, minor, patch))
	if err != nil {
		// major/minor/patch are always valid decimal digits, so
		// semver.NewVersion cannot fail here.
		panic(err)
	}
	return Version{sv: sv}
}

// Parse parses a "major.minor.patch" string into a Version.
func Parse(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("parsing version %q: %w", s, err)
	}
	if sv.Major() > 255 || sv.Minor() > 255 || sv.Patch() > 255 {
		return Version{}, fmt.Errorf("version %q exceeds u8 range", s)
	}
	return Version{sv: sv}, nil
}

// Major, Minor, and Patch return the version's components.
func (v Version) Major() uint8 { return uint8(v.sv.Major()) }
func (v Version) Minor() uint8 { return uint8(v.sv.Minor()) }
func (v Version) Patch() uint8 { return uint8(v.sv.Patch()) }

// Compare returns -1, 0, or 1 per the lexicographic total order.
func (v Version) Compare(other Version) int {
	return v.sv.Compare(other.sv)
}

// String renders "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// CompatibleWith reports whether v is compatible with other: same major
// version and v >= other.
func (v Version) CompatibleWith(other Version) bool {
	return v.Major() == other.Major() && v.Compare(other) >= 0
}

// IsBreakingChangeFrom reports whether v introduces a breaking change
// relative to other: v.major > other.major.
func (v Version) IsBreakingChangeFrom(other Version) bool {
	return v.Major() > other.Major()
}
