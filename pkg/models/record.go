package models

import (
	"fmt"
	"time"

	"github.com/greatvovan/ios-backup-browser/internal/metadata"
)

// Kind classifies a backup entry. Values match the flags column of the
// manifest's Files table.
type Kind int

const (
	KindFile      Kind = 1
	KindDirectory Kind = 2
	KindSymlink   Kind = 4
	KindHardlink  Kind = 10
)

// UnknownFlagError reports a manifest row whose flags column maps to no
// known entry kind. Such a row is structurally invalid and must not be
// silently exported as the wrong kind.
type UnknownFlagError struct {
	Flags int
}

func (e *UnknownFlagError) Error() string {
	return fmt.Sprintf("unrecognized flags value %d in manifest row", e.Flags)
}

// KindFromFlags maps the manifest flags column to an entry kind.
func KindFromFlags(flags int) (Kind, error) {
	switch k := Kind(flags); k {
	case KindFile, KindDirectory, KindSymlink, KindHardlink:
		return k, nil
	}
	return 0, &UnknownFlagError{Flags: flags}
}

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindHardlink:
		return "hardlink"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Record is one logical backup entry, resolved from a raw manifest row.
// Records are immutable values produced per query; they carry no persistence
// of their own.
type Record struct {
	// FileID is the SHA-1 of "<raw domain>-<relative path>"; it doubles as
	// the content-addressing key.
	FileID string
	// Domain is the portion of the raw domain before the first hyphen.
	Domain string
	// Namespace is the remainder after the first hyphen, or empty when the
	// raw domain carries none.
	Namespace string
	// RelativePath is the entry's path on the device, within its domain.
	RelativePath string
	Kind         Kind
	// RawMetadata is the undecoded metadata blob from the manifest row.
	RawMetadata []byte
	// Metadata is the decoded attribute tree. It is nil unless decoding was
	// requested for the query; a blob that failed to decode yields an empty
	// (never nil) tree.
	Metadata *metadata.Attributes
}

// Size returns the entry's recorded size, if metadata was decoded and holds
// one.
func (r Record) Size() (int64, bool) {
	if r.Metadata == nil {
		return 0, false
	}
	return r.Metadata.Size()
}

// LastModified returns the entry's recorded modification time.
func (r Record) LastModified() (time.Time, bool) {
	if r.Metadata == nil {
		return time.Time{}, false
	}
	return r.Metadata.LastModified()
}

// Created returns the entry's creation time. The manifest records none, so
// this reports the modification time; see metadata.Attributes.Created.
func (r Record) Created() (time.Time, bool) {
	if r.Metadata == nil {
		return time.Time{}, false
	}
	return r.Metadata.Created()
}

// SymlinkTarget returns the link target for symlink entries.
func (r Record) SymlinkTarget() (string, bool) {
	if r.Metadata == nil {
		return "", false
	}
	return r.Metadata.SymlinkTarget()
}
