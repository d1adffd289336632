package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig carries the settings for the Google Cloud Storage driver.
// CredentialsJSON is a base64-encoded service account key.
type GCSConfig struct {
	Bucket          string
	CredentialsJSON string
}

// GCS is a Store backed by a GCS bucket.
type GCS struct {
	cl     *storage.Client
	bucket *storage.BucketHandle
}

func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(cfg.CredentialsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode GCS credentials: %w", err)
	}
	cl, err := storage.NewClient(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCS{cl: cl, bucket: cl.Bucket(cfg.Bucket)}, nil
}

func gcsKey(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func gcsErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func (g *GCS) Exists(ctx context.Context, p string) (bool, error) {
	_, err := g.Stat(ctx, p)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *GCS) Stat(ctx context.Context, p string) (FileInfo, error) {
	attrs, err := g.bucket.Object(gcsKey(p)).Attrs(ctx)
	if err != nil {
		return FileInfo{}, gcsErr(err)
	}
	return FileInfo{Size: attrs.Size, ModTime: attrs.Updated}, nil
}

func (g *GCS) OpenRead(ctx context.Context, p string, br *ByteRange) (io.ReadCloser, error) {
	obj := g.bucket.Object(gcsKey(p))
	var (
		r   *storage.Reader
		err error
	)
	if br != nil {
		r, err = obj.NewRangeReader(ctx, br.Start, br.Length())
	} else {
		r, err = obj.NewReader(ctx)
	}
	if err != nil {
		return nil, gcsErr(err)
	}
	return r, nil
}

func (g *GCS) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	return g.bucket.Object(gcsKey(p)).NewWriter(ctx), nil
}

func (g *GCS) List(ctx context.Context, p string) ([]Entry, error) {
	prefix := gcsKey(p)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var entries []Entry
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, gcsErr(err)
		}
		if attrs.Prefix != "" {
			name := strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, prefix), "/")
			entries = append(entries, Entry{Name: name, IsDir: true})
			continue
		}
		name := strings.TrimPrefix(attrs.Name, prefix)
		if name == "" {
			continue
		}
		entries = append(entries, Entry{Name: name, Size: attrs.Size})
	}
	return entries, nil
}

// namesUnder returns every object name below prefix, prefix itself included
// when it names an object.
func (g *GCS) namesUnder(ctx context.Context, prefix string) ([]string, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, gcsErr(err)
		}
		if attrs.Name == prefix || strings.HasPrefix(attrs.Name, prefix+"/") {
			names = append(names, attrs.Name)
		}
	}
	return names, nil
}

// Move renames an object or, when from names a prefix, every object below it.
func (g *GCS) Move(ctx context.Context, from, to string) error {
	src, dst := gcsKey(from), gcsKey(to)
	names, err := g.namesUnder(ctx, src)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	for _, name := range names {
		target := g.bucket.Object(dst + strings.TrimPrefix(name, src))
		if _, err := target.CopierFrom(g.bucket.Object(name)).Run(ctx); err != nil {
			return gcsErr(err)
		}
		if err := g.bucket.Object(name).Delete(ctx); err != nil {
			return gcsErr(err)
		}
	}
	return nil
}

// Delete removes an object or, when p names a prefix, every object below it.
func (g *GCS) Delete(ctx context.Context, p string) error {
	key := gcsKey(p)
	names, err := g.namesUnder(ctx, key)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return gcsErr(g.bucket.Object(key).Delete(ctx))
	}
	for _, name := range names {
		if err := g.bucket.Object(name).Delete(ctx); err != nil {
			return gcsErr(err)
		}
	}
	return nil
}
