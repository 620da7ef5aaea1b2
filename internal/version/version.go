// Package version parses the version fields of OpenAPI and Swagger documents.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

type Version struct {
	Major int
	Minor int
	Patch int
}

func New(major, minor, patch int) *Version {
	return &Version{
		Major: major,
		Minor: minor,
		Patch: patch,
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) Equal(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor && v.Patch == other.Patch
}

func (v Version) GreaterThan(other Version) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch > other.Patch
}

func (v Version) LessThan(other Version) bool {
	return !v.Equal(other) && !v.GreaterThan(other)
}

// ParseVersion parses major.minor or major.minor.patch. A pre-release or build suffix on the
// last component, as in 3.1.0-rc1, is ignored, which also rules out signed components. A missing patch is zero, so swagger: "2.0" parses
// as 2.0.0.
func ParseVersion(version string) (*Version, error) {
	version = strings.TrimSpace(version)
	if i := strings.IndexAny(version, "-+"); i >= 0 {
		version = version[:i]
	}

	parts := strings.Split(version, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid version %s", version)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s version %s: %w", component(i), part, err)
		}
		nums[i] = n
	}

	return New(nums[0], nums[1], nums[2]), nil
}

func component(i int) string {
	switch i {
	case 0:
		return "major"
	case 1:
		return "minor"
	default:
		return "patch"
	}
}

func IsVersionGreaterOrEqual(a, b string) (bool, error) {
	versionA, err := ParseVersion(a)
	if err != nil {
		return false, fmt.Errorf("invalid version %s: %w", a, err)
	}

	versionB, err := ParseVersion(b)
	if err != nil {
		return false, fmt.Errorf("invalid version %s: %w", b, err)
	}
	return !versionA.LessThan(*versionB), nil
}
