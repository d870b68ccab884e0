// Package pathsafe provides the two pure boundary-crossing predicates the
// engine relies on: validating a snapshot identifier, and validating that a
// manifest-relative path cannot escape a root directory. Neither function
// touches the filesystem.
package pathsafe

import (
	"strings"

	"snapvault/internal/vaulterrors"
)

const maxSnapshotIDLen = 128

// ValidateSnapshotID accepts iff s is non-empty, at most 128 characters,
// drawn only from [A-Za-z0-9_-], does not start with '.', and contains no
// '/', '\', or NUL.
func ValidateSnapshotID(s string) error {
	if s == "" || len(s) > maxSnapshotIDLen {
		return vaulterrors.New(vaulterrors.KindInvalidSnapshotID, s, nil)
	}
	if s[0] == '.' {
		return vaulterrors.New(vaulterrors.KindInvalidSnapshotID, s, nil)
	}
	for _, r := range s {
		if !isIDRune(r) {
			return vaulterrors.New(vaulterrors.KindInvalidSnapshotID, s, nil)
		}
	}
	return nil
}

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	default:
		return false
	}
}

// IsSafeRelativePath accepts iff p is non-empty, not absolute, contains no
// NUL, and no '/'-separated component equals ".." or ".". Components are
// always '/'-separated in manifests regardless of host platform; callers
// convert to the host separator only when materializing a path on disk.
func IsSafeRelativePath(p string) error {
	if p == "" {
		return vaulterrors.New(vaulterrors.KindPathTraversal, p, nil)
	}
	if strings.ContainsRune(p, 0) {
		return vaulterrors.New(vaulterrors.KindPathTraversal, p, nil)
	}
	if strings.HasPrefix(p, "/") {
		return vaulterrors.New(vaulterrors.KindPathTraversal, p, nil)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." || part == "." {
			return vaulterrors.New(vaulterrors.KindPathTraversal, p, nil)
		}
	}
	return nil
}
