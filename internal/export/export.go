package export

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/greatvovan/ios-backup-browser/pkg/models"
)

// Options control an export run.
type Options struct {
	// IgnoreMissing skips file entries whose content is absent from the
	// backup instead of failing the whole export.
	IgnoreMissing bool
	// RestoreTimestamps re-applies recorded modification times to exported
	// entries. Directory times are applied in a second pass, after all
	// children exist, because creating a child clobbers its parent's time.
	RestoreTimestamps bool
	// RestoreSymlinks materializes symlink entries; without it they are
	// skipped.
	RestoreSymlinks bool
	// TotalCount, when positive, sizes the progress bar.
	TotalCount int64
	// Progress enables a terminal progress bar. Requires TotalCount.
	Progress bool
}

// MissingSourceError reports a manifest entry whose content file is absent
// from the backup. It is the only per-entry condition that can abort an
// export, and only when Options.IgnoreMissing is off.
type MissingSourceError struct {
	FileID string
	Path   string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("source file not found: %s", e.Path)
}

// RecordSource is a single-pass sequence of records, typically backed by a
// manifest cursor.
type RecordSource interface {
	Next() bool
	Record() models.Record
	Err() error
}

// Exporter materializes backup records onto a Sink, recreating the logical
// domain/namespace/path tree out of the backup's content-addressed storage.
type Exporter struct {
	basePath string
	sink     Sink
	opts     Options
}

// New creates an exporter reading content from the backup rooted at
// basePath and writing through sink.
func New(basePath string, sink Sink, opts Options) *Exporter {
	return &Exporter{basePath: basePath, sink: sink, opts: opts}
}

type deferredDir struct {
	rel   string
	mtime time.Time
}

// Run exports every record in the sequence. Records are processed in input
// order in a single pass; directory timestamps are restored in a second pass
// once the tree is complete.
//
// Per-entry failures that do not compromise the exported data (timestamp
// application, unresolvable symlink targets) are logged and skipped. A
// missing content file aborts unless IgnoreMissing is set; sink write
// failures always abort.
func (e *Exporter) Run(records RecordSource) error {
	var bar *pb.ProgressBar
	if e.opts.Progress && e.opts.TotalCount > 0 {
		bar = pb.New64(e.opts.TotalCount)
		bar.SetTemplate(`Exporting {{counters . }} {{bar . }} {{percent . }}`)
		bar.Start()
		defer bar.Finish()
	}

	var dirs []deferredDir

	for records.Next() {
		rec := records.Record()
		if bar != nil {
			bar.Increment()
		}
		rel := filepath.Join(rec.Domain, rec.Namespace, rec.RelativePath)

		switch rec.Kind {
		case models.KindDirectory:
			if err := e.sink.MkdirAll(rel); err != nil {
				return fmt.Errorf("creating directory %s: %w", rel, err)
			}
			if e.opts.RestoreTimestamps {
				if mtime, ok := rec.LastModified(); ok {
					dirs = append(dirs, deferredDir{rel: rel, mtime: mtime})
				}
			}

		case models.KindFile:
			src := filepath.Join(e.basePath, filepath.FromSlash(rec.ContentPath()))
			if _, err := os.Stat(src); err != nil {
				if os.IsNotExist(err) {
					if e.opts.IgnoreMissing {
						log.Printf("Skipping %s: content %s missing from backup", rec.RelativePath, rec.ContentPath())
						continue
					}
					return &MissingSourceError{FileID: rec.FileID, Path: src}
				}
				return fmt.Errorf("reading %s: %w", src, err)
			}
			if err := e.sink.CopyFile(rel, src); err != nil {
				return err
			}
			e.restoreTime(rec, rel, false)

		case models.KindSymlink:
			if !e.opts.RestoreSymlinks {
				continue
			}
			target, ok := rec.SymlinkTarget()
			if !ok {
				log.Printf("Skipping symlink %s: target not resolvable", rel)
				continue
			}
			if err := e.sink.Symlink(rel, target); err != nil {
				log.Printf("Failed to create symlink %s: %v", rel, err)
				continue
			}
			e.restoreTime(rec, rel, true)

		case models.KindHardlink:
			// The manifest carries no link target for hardlink entries, so
			// there is nothing trustworthy to materialize.
		}
	}
	if err := records.Err(); err != nil {
		return err
	}

	// Second pass: directory times, deferred so child creation cannot
	// clobber them. Creation order is fine since only each directory's own
	// entry matters.
	for _, d := range dirs {
		if err := e.sink.Chtimes(d.rel, d.mtime, false); err != nil {
			log.Printf("Failed to restore modified date for directory %s: %v", d.rel, err)
		}
	}
	return nil
}

// restoreTime applies the record's modification time to a just-placed entry.
// Failures never abort the export.
func (e *Exporter) restoreTime(rec models.Record, rel string, symlink bool) {
	if !e.opts.RestoreTimestamps {
		return
	}
	mtime, ok := rec.LastModified()
	if !ok {
		return
	}
	if err := e.sink.Chtimes(rel, mtime, symlink); err != nil {
		log.Printf("Failed to restore modified date for %s: %v", rel, err)
	}
}
