package export

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the destination for a remote export.
type MinioConfig struct {
	Endpoint  string
	Bucket    string
	Folder    string
	AccessKey string
	SecretKey string
	Insecure  bool
}

// MinioSink uploads exported files to an S3-compatible bucket under
// folder/domain/namespace/relativePath. Object storage has no directories or
// symlinks, so those entries are no-ops, and modification times cannot be
// restored.
type MinioSink struct {
	client *minio.Client
	bucket string
	folder string

	warnedTimes    bool
	warnedSymlinks bool
}

// NewMinioSink connects to the configured endpoint.
func NewMinioSink(cfg MinioConfig) (*MinioSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing MinIO client: %w", err)
	}
	folder := strings.Trim(cfg.Folder, "/")
	if folder != "" {
		folder += "/"
	}
	return &MinioSink{client: client, bucket: cfg.Bucket, folder: folder}, nil
}

func (s *MinioSink) object(rel string) string {
	return s.folder + path.Clean(filepath.ToSlash(rel))
}

func (s *MinioSink) MkdirAll(rel string) error {
	// Directories exist only as object key prefixes.
	return nil
}

func (s *MinioSink) CopyFile(rel, src string) error {
	object := s.object(rel)
	if _, err := s.client.FPutObject(context.Background(), s.bucket, object, src, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("uploading %s: %w", object, err)
	}
	return nil
}

func (s *MinioSink) Symlink(rel, target string) error {
	if !s.warnedSymlinks {
		log.Printf("Symlinks have no object representation; skipping")
		s.warnedSymlinks = true
	}
	return nil
}

func (s *MinioSink) Chtimes(rel string, mtime time.Time, symlink bool) error {
	if !s.warnedTimes {
		log.Printf("Modification times are not preserved on object storage")
		s.warnedTimes = true
	}
	return nil
}

func (s *MinioSink) Close() error {
	return nil
}
