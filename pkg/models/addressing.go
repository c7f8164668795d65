package models

import (
	"crypto/sha1"
	"encoding/hex"
)

// ContentPath returns the location of a file's content inside the backup,
// relative to the backup root. Content files live in a two-level fan-out
// keyed by the first two hex characters of the file ID, which keeps any one
// directory listing shallow.
func ContentPath(fileID string) string {
	prefix := fileID
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return prefix + "/" + fileID
}

// DeriveFileID computes the manifest file ID for a raw domain and device
// path. The manifest producer stores the SHA-1 of "<domain>-<relativePath>"
// in the fileID column, so the result matches it byte for byte and can
// locate content even when the manifest database is damaged or missing.
func DeriveFileID(domain, relativePath string) string {
	sum := sha1.Sum([]byte(domain + "-" + relativePath))
	return hex.EncodeToString(sum[:])
}

// ContentPath returns the record's location in the backup's content tree,
// relative to the backup root.
func (r Record) ContentPath() string {
	return ContentPath(r.FileID)
}
