package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"mediaproxy/config"
)

// ErrNotFound marks an absent object or directory. Drivers translate their
// backend's own not-found condition to this sentinel so callers can tell it
// apart from transport failures.
var ErrNotFound = errors.New("store: not found")

// IsNotFound reports whether err names an absent object rather than a
// transport or backend failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ByteRange is an inclusive byte window into an object.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (br ByteRange) Length() int64 {
	return br.End - br.Start + 1
}

// FileInfo is the stat result for a stored object.
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// Entry is one item of a directory listing.
type Entry struct {
	Name  string
	Size  int64
	IsDir bool
}

// Store is the capability set the service needs from the remote file store.
// Paths are hierarchical and slash-separated ("/organizations/acme/img.png").
// All operations may fail with ErrNotFound or a transport error.
type Store interface {
	Exists(ctx context.Context, path string) (bool, error)
	Stat(ctx context.Context, path string) (FileInfo, error)

	// OpenRead opens the object for reading. When br is non-nil the stream
	// produces exactly the bytes in [br.Start, br.End]; the window is pushed
	// down to the backend's own ranged read, never buffered here.
	OpenRead(ctx context.Context, path string, br *ByteRange) (io.ReadCloser, error)

	// OpenWrite opens a sink that replaces the object at path, creating
	// parent directories where the backend has them. The write is not
	// complete until Close returns nil.
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)

	List(ctx context.Context, path string) ([]Entry, error)
	Move(ctx context.Context, from, to string) error
	Delete(ctx context.Context, path string) error
}

// Open builds the store driver selected by the settings.
func Open(ctx context.Context, cfg *config.Settings) (Store, error) {
	switch cfg.Store {
	case "sftp":
		return NewSFTP(SFTPConfig{
			Host:       cfg.SFTPHost,
			Port:       cfg.SFTPPort,
			User:       cfg.SFTPUser,
			Password:   cfg.SFTPPassword,
			PrivateKey: cfg.SFTPPrivateKey,
			Root:       cfg.SFTPRoot,
			MaxConns:   cfg.SFTPMaxConns,
		})
	case "s3":
		return NewS3(S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}), nil
	case "gcs":
		return NewGCS(ctx, GCSConfig{
			Bucket:          cfg.GCSBucket,
			CredentialsJSON: cfg.GCSCredentialsJSON,
		})
	case "local":
		return NewLocal(cfg.LocalRoot)
	}
	return nil, fmt.Errorf("unknown store backend: %s", cfg.Store)
}
