package backup

import (
	"fmt"
	"log"
	"strings"

	"github.com/greatvovan/ios-backup-browser/internal/index"
	"github.com/greatvovan/ios-backup-browser/internal/metadata"
	"github.com/greatvovan/ios-backup-browser/pkg/models"
)

// Resolve turns a raw manifest row into a Record: the raw domain splits at
// its first hyphen into domain and namespace, the flags column maps to an
// entry kind, and the metadata blob is optionally decoded.
//
// An unrecognized flags value makes the row structurally invalid and is a
// hard error. A metadata blob that fails to decode is not: the record keeps
// an empty attribute tree and the failure surfaces only as a log line, so
// one corrupt blob cannot abort a multi-thousand-row export.
func Resolve(row index.Row, decodeMetadata bool) (models.Record, error) {
	kind, err := models.KindFromFlags(row.Flags)
	if err != nil {
		return models.Record{}, fmt.Errorf("resolving row %s (%s): %w", row.FileID, row.RelativePath, err)
	}

	domain, namespace, _ := strings.Cut(row.Domain, "-")

	rec := models.Record{
		FileID:       row.FileID,
		Domain:       domain,
		Namespace:    namespace,
		RelativePath: row.RelativePath,
		Kind:         kind,
		RawMetadata:  row.Metadata,
	}

	if decodeMetadata && len(row.Metadata) > 0 {
		attrs, err := metadata.Decode(row.Metadata)
		if err != nil {
			log.Printf("Warning: %v for %s, treating as empty", err, row.RelativePath)
		}
		rec.Metadata = attrs
	}
	return rec, nil
}

// Records lazily resolves a manifest cursor into Record values, preserving
// the cursor's order. Like the cursor it wraps, it is single-pass.
type Records struct {
	cursor         *index.Cursor
	decodeMetadata bool
	rec            models.Record
	err            error
}

// Next advances to the following record. It returns false at the end of the
// sequence or on the first error; check Err afterwards.
func (r *Records) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.cursor.Next() {
		r.err = r.cursor.Err()
		return false
	}
	rec, err := Resolve(r.cursor.Row(), r.decodeMetadata)
	if err != nil {
		r.err = err
		return false
	}
	r.rec = rec
	return true
}

// Record returns the current record. Valid only after a true Next.
func (r *Records) Record() models.Record {
	return r.rec
}

// Err reports the first error encountered while resolving.
func (r *Records) Err() error {
	return r.err
}

// Close releases the underlying cursor.
func (r *Records) Close() error {
	return r.cursor.Close()
}
