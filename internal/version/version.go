// Package version implements the four-part package version used across
// the store catalog and the delivery protocol (major.minor.build.revision).
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a four-part numeric version with total ordering.
type Version struct {
	Major    uint16
	Minor    uint16
	Build    uint16
	Revision uint16
}

// Parse reads a dotted version string with one to four numeric parts;
// missing parts are zero. Returns false if any part is not a number.
func Parse(s string) (Version, bool) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || len(parts) > 4 {
		return Version{}, false
	}
	var nums [4]uint16
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Version{}, false
		}
		nums[i] = uint16(n)
	}
	return Version{nums[0], nums[1], nums[2], nums[3]}, true
}

// FromUint64 unpacks the 64-bit encoding used by the display catalog for
// minimum versions: 16 bits per component, major in the high word.
func FromUint64(u uint64) Version {
	return Version{
		Major:    uint16(u >> 48),
		Minor:    uint16(u >> 32),
		Build:    uint16(u >> 16),
		Revision: uint16(u),
	}
}

// Uint64 packs the version back into the catalog's 64-bit encoding.
func (v Version) Uint64() uint64 {
	return uint64(v.Major)<<48 | uint64(v.Minor)<<32 | uint64(v.Build)<<16 | uint64(v.Revision)
}

// Compare returns -1, 0 or 1 ordering v against o component by component.
func (v Version) Compare(o Version) int {
	a := [4]uint16{v.Major, v.Minor, v.Build, v.Revision}
	b := [4]uint16{o.Major, o.Minor, o.Build, o.Revision}
	for i := 0; i < 4; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether v orders strictly before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// AtLeast reports whether v satisfies o as a minimum.
func (v Version) AtLeast(o Version) bool { return v.Compare(o) >= 0 }

// IsZero reports whether all components are zero.
func (v Version) IsZero() bool { return v == Version{} }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}
