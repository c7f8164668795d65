package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/greatvovan/ios-backup-browser/internal/export"
	"github.com/greatvovan/ios-backup-browser/internal/index"
	"github.com/greatvovan/ios-backup-browser/internal/metadata"
	"github.com/greatvovan/ios-backup-browser/pkg/models"
)

// manifestDB is the index database file at the backup root.
const manifestDB = "Manifest.db"

// Backup provides access to a device backup directory: the manifest index,
// the top-level descriptor plists and the content-addressed file tree.
//
// The manifest connection opens lazily on first use and stays open until
// Close. Domain and namespace aggregates are memoized for the lifetime of
// that connection; the backup itself is read-only input, so they cannot go
// stale within a session. A Backup is not safe for concurrent use; open one
// per goroutine instead.
type Backup struct {
	BasePath string

	db         *index.DB
	domains    []string
	namespaces map[string][]string
	info       *metadata.Info
	status     *metadata.Status
	manifest   *metadata.Manifest
}

// Open returns a Backup rooted at the given directory. No I/O happens until
// the first accessor needs it.
func Open(basePath string) *Backup {
	return &Backup{BasePath: basePath}
}

// DB returns the manifest index connection, opening it on first call.
func (b *Backup) DB() (*index.DB, error) {
	if b.db == nil {
		db, err := index.Open(filepath.Join(b.BasePath, manifestDB))
		if err != nil {
			return nil, err
		}
		b.db = db
	}
	return b.db, nil
}

// Close releases the manifest connection, if one was opened.
func (b *Backup) Close() error {
	if b.db == nil {
		return nil
	}
	db := b.db
	b.db = nil
	b.domains = nil
	b.namespaces = nil
	return db.Close()
}

// Domains lists the distinct top-level domains in the backup.
func (b *Backup) Domains(ctx context.Context) ([]string, error) {
	if b.domains != nil {
		return b.domains, nil
	}
	db, err := b.DB()
	if err != nil {
		return nil, err
	}
	domains, err := db.Domains(ctx)
	if err != nil {
		return nil, err
	}
	b.domains = domains
	return domains, nil
}

// Namespaces lists the distinct namespaces under the given domain.
func (b *Backup) Namespaces(ctx context.Context, domain string) ([]string, error) {
	if cached, ok := b.namespaces[domain]; ok {
		return cached, nil
	}
	db, err := b.DB()
	if err != nil {
		return nil, err
	}
	namespaces, err := db.Namespaces(ctx, domain)
	if err != nil {
		return nil, err
	}
	if b.namespaces == nil {
		b.namespaces = make(map[string][]string)
	}
	b.namespaces[domain] = namespaces
	return namespaces, nil
}

// Content queries the manifest and returns a lazy sequence of resolved
// records. decodeMetadata enables per-record attribute decoding; batchSize
// tunes the underlying cursor (<= 0 for the default). The caller owns the
// returned sequence and must Close it.
func (b *Backup) Content(ctx context.Context, f index.Filter, decodeMetadata bool, batchSize int) (*Records, error) {
	db, err := b.DB()
	if err != nil {
		return nil, err
	}
	cursor, err := db.Content(ctx, f, batchSize)
	if err != nil {
		return nil, err
	}
	return &Records{cursor: cursor, decodeMetadata: decodeMetadata}, nil
}

// ContentCount counts the manifest rows the filter matches.
func (b *Backup) ContentCount(ctx context.Context, f index.Filter) (int64, error) {
	db, err := b.DB()
	if err != nil {
		return 0, err
	}
	return db.Count(ctx, f)
}

// Export runs the filtered content through the exporter and returns the
// number of entries processed. The record stream decodes metadata only when
// an option needs it: timestamps and symlink targets both live in the
// attribute tree. opts.TotalCount is filled in from the filter's count.
func (b *Backup) Export(ctx context.Context, f index.Filter, sink export.Sink, opts export.Options, batchSize int) (int64, error) {
	count, err := b.ContentCount(ctx, f)
	if err != nil {
		return 0, err
	}
	opts.TotalCount = count

	decode := opts.RestoreTimestamps || opts.RestoreSymlinks
	records, err := b.Content(ctx, f, decode, batchSize)
	if err != nil {
		return 0, err
	}
	defer records.Close()

	if err := export.New(b.BasePath, sink, opts).Run(records); err != nil {
		return 0, err
	}
	return count, nil
}

// Info returns the decoded Info.plist, reading it on first call.
func (b *Backup) Info() (*metadata.Info, error) {
	if b.info == nil {
		info, err := metadata.ReadInfo(b.BasePath)
		if err != nil {
			return nil, err
		}
		b.info = info
	}
	return b.info, nil
}

// Status returns the decoded Status.plist, reading it on first call.
func (b *Backup) Status() (*metadata.Status, error) {
	if b.status == nil {
		status, err := metadata.ReadStatus(b.BasePath)
		if err != nil {
			return nil, err
		}
		b.status = status
	}
	return b.status, nil
}

// Manifest returns the decoded Manifest.plist, reading it on first call.
func (b *Backup) Manifest() (*metadata.Manifest, error) {
	if b.manifest == nil {
		manifest, err := metadata.ReadManifest(b.BasePath)
		if err != nil {
			return nil, err
		}
		b.manifest = manifest
	}
	return b.manifest, nil
}

// Summary assembles the backup overview from the descriptor plists.
func (b *Backup) Summary() ([]metadata.Property, error) {
	info, err := b.Info()
	if err != nil {
		return nil, err
	}
	status, err := b.Status()
	if err != nil {
		return nil, err
	}
	manifest, err := b.Manifest()
	if err != nil {
		return nil, err
	}
	return metadata.Summary(info, status, manifest), nil
}

// FileByID returns the path of a content file given its file ID. The lookup
// bypasses the manifest entirely, so it works against corrupted or partial
// backups.
func (b *Backup) FileByID(fileID string) (string, error) {
	path := filepath.Join(b.BasePath, filepath.FromSlash(models.ContentPath(fileID)))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file not found in backup: %s", fileID)
	}
	return path, nil
}

// FileByPath returns the path of a content file given its raw domain and
// device path, deriving the file ID the same way the manifest producer does.
// Like FileByID, it never touches the manifest.
func (b *Backup) FileByPath(domain, relativePath string) (string, error) {
	return b.FileByID(models.DeriveFileID(domain, relativePath))
}
