package rig

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedVersion is returned when an avatar's metadata names neither
// humanoid standard.
var ErrUnsupportedVersion = errors.New("unsupported rig version")

// Version tags which humanoid standard a loaded avatar follows. It is read
// once at load time and never changes for the avatar's lifetime.
type Version int

const (
	Unknown Version = iota
	// Legacy rigs (VRM 0.x) use a mirrored bone-space convention.
	Legacy
	// Current rigs (VRM 1.0).
	Current
)

func (v Version) String() string {
	switch v {
	case Legacy:
		return "legacy"
	case Current:
		return "current"
	default:
		return "unknown"
	}
}

// Supported reports whether the retargeter can drive this version.
func (v Version) Supported() bool {
	return v == Legacy || v == Current
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVersion maps a metadata version string to a Version. Both the
// symbolic names and the spec version numbers are accepted.
func ParseVersion(s string) (Version, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "legacy" || s == "vrm0" || s == "0" || strings.HasPrefix(s, "0."):
		return Legacy, nil
	case s == "current" || s == "vrm1" || s == "1" || strings.HasPrefix(s, "1."):
		return Current, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnsupportedVersion, s)
}
