// Package vaulterrors defines the error taxonomy shared by every SnapVault
// component. Callers branch on Kind (or on the sentinel errors below) via
// errors.Is/errors.As; error message text is never a classification surface.
package vaulterrors

import (
	"errors"
	"fmt"
)

// Kind is an abstract error category, independent of its Go type.
type Kind int

const (
	KindUnknown Kind = iota
	KindRepoAlreadyExists
	KindRepoNotFound
	KindNotARepository
	KindUnsupportedVersion
	KindCorruptRepository
	KindSourceNotFound
	KindSourceNotDirectory
	KindSnapshotNotFound
	KindInvalidSnapshotID
	KindDuplicateSnapshotID
	KindPathTraversal
	KindDestinationNotEmpty
	KindChunkMissing
	KindChunkCorrupt
	KindCorruptIndex
	KindCorruptManifest
	KindIOError
	KindArgConflict
	KindArgMissing
)

// String renders a Kind as the taxonomy name used in spec and logs.
func (k Kind) String() string {
	switch k {
	case KindRepoAlreadyExists:
		return "REPO_ALREADY_EXISTS"
	case KindRepoNotFound:
		return "REPO_NOT_FOUND"
	case KindNotARepository:
		return "NOT_A_REPOSITORY"
	case KindUnsupportedVersion:
		return "UNSUPPORTED_VERSION"
	case KindCorruptRepository:
		return "CORRUPT_REPOSITORY"
	case KindSourceNotFound:
		return "SOURCE_NOT_FOUND"
	case KindSourceNotDirectory:
		return "SOURCE_NOT_DIRECTORY"
	case KindSnapshotNotFound:
		return "SNAPSHOT_NOT_FOUND"
	case KindInvalidSnapshotID:
		return "INVALID_SNAPSHOT_ID"
	case KindDuplicateSnapshotID:
		return "DUPLICATE_SNAPSHOT_ID"
	case KindPathTraversal:
		return "PATH_TRAVERSAL"
	case KindDestinationNotEmpty:
		return "DESTINATION_NOT_EMPTY"
	case KindChunkMissing:
		return "CHUNK_MISSING"
	case KindChunkCorrupt:
		return "CHUNK_CORRUPT"
	case KindCorruptIndex:
		return "CORRUPT_INDEX"
	case KindCorruptManifest:
		return "CORRUPT_MANIFEST"
	case KindIOError:
		return "IO_ERROR"
	case KindArgConflict:
		return "ARG_CONFLICT"
	case KindArgMissing:
		return "ARG_MISSING"
	default:
		return "UNKNOWN"
	}
}

// Sentinel errors, one per taxonomy member. Components return *Error (see
// New), whose Unwrap exposes the sentinel for its Kind, so callers can match
// with errors.Is(err, ErrChunkCorrupt) and similar.
var (
	ErrRepoAlreadyExists   = errors.New("repository already exists")
	ErrRepoNotFound        = errors.New("repository not found")
	ErrNotARepository      = errors.New("not a repository")
	ErrUnsupportedVersion  = errors.New("unsupported repository version")
	ErrCorruptRepository   = errors.New("corrupt repository configuration")
	ErrSourceNotFound      = errors.New("source not found")
	ErrSourceNotDirectory  = errors.New("source is not a directory")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
	ErrInvalidSnapshotID   = errors.New("invalid snapshot id")
	ErrDuplicateSnapshotID = errors.New("duplicate snapshot id")
	ErrPathTraversal       = errors.New("path escapes its root")
	ErrDestinationNotEmpty = errors.New("destination is not empty")
	ErrChunkMissing        = errors.New("chunk missing")
	ErrChunkCorrupt        = errors.New("chunk corrupt")
	ErrCorruptIndex        = errors.New("corrupt reference index")
	ErrCorruptManifest     = errors.New("corrupt manifest")
	ErrIOError             = errors.New("io error")
	ErrArgConflict         = errors.New("conflicting arguments")
	ErrArgMissing          = errors.New("missing required argument")
)

var kindSentinels = map[Kind]error{
	KindRepoAlreadyExists:   ErrRepoAlreadyExists,
	KindRepoNotFound:        ErrRepoNotFound,
	KindNotARepository:      ErrNotARepository,
	KindUnsupportedVersion:  ErrUnsupportedVersion,
	KindCorruptRepository:   ErrCorruptRepository,
	KindSourceNotFound:      ErrSourceNotFound,
	KindSourceNotDirectory:  ErrSourceNotDirectory,
	KindSnapshotNotFound:    ErrSnapshotNotFound,
	KindInvalidSnapshotID:   ErrInvalidSnapshotID,
	KindDuplicateSnapshotID: ErrDuplicateSnapshotID,
	KindPathTraversal:       ErrPathTraversal,
	KindDestinationNotEmpty: ErrDestinationNotEmpty,
	KindChunkMissing:        ErrChunkMissing,
	KindChunkCorrupt:        ErrChunkCorrupt,
	KindCorruptIndex:        ErrCorruptIndex,
	KindCorruptManifest:     ErrCorruptManifest,
	KindIOError:             ErrIOError,
	KindArgConflict:         ErrArgConflict,
	KindArgMissing:          ErrArgMissing,
}

// Error wraps a Kind with contextual fields and an optional underlying
// cause. It supports errors.Is against the Kind's sentinel and errors.As
// against *Error itself.
type Error struct {
	Kind Kind
	// Subject is the offending identifier: a snapshot id, a chunk hash, a
	// path, or a repository root, depending on Kind.
	Subject string
	Err     error
}

func (e *Error) Error() string {
	if e.Subject == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Kind, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s %q", e.Kind, e.Subject)
}

// Unwrap exposes both the wrapped cause and the Kind's sentinel so that
// errors.Is(err, vaulterrors.ErrChunkCorrupt) and errors.Is(err, someIOErr)
// both work when applicable.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// New builds an *Error for the given kind and offending subject, optionally
// wrapping an underlying cause.
func New(kind Kind, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, otherwise
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
