package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local is a Store over a directory on the local filesystem. It backs
// development setups where the proxy serves its own disk, and it is the
// store the tests run against.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("local store root not set")
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create local store root: %w", err)
	}
	return &Local{root: root}, nil
}

// fullPath resolves a store path under the root, refusing traversal above it.
func (l *Local) fullPath(p string) (string, error) {
	clean := filepath.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	full := filepath.Join(l.root, filepath.FromSlash(clean))
	if !strings.HasPrefix(full, filepath.Clean(l.root)) {
		return "", fmt.Errorf("path escapes store root: %s", p)
	}
	return full, nil
}

func localErr(err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func (l *Local) Exists(ctx context.Context, p string) (bool, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *Local) Stat(ctx context.Context, p string) (FileInfo, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return FileInfo{}, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return FileInfo{}, localErr(err)
	}
	return FileInfo{Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (l *Local) OpenRead(ctx context.Context, p string, br *ByteRange) (io.ReadCloser, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, localErr(err)
	}
	if br == nil {
		return f, nil
	}
	if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &limitedFile{Reader: io.LimitReader(f, br.Length()), f: f}, nil
}

type limitedFile struct {
	io.Reader
	f *os.File
}

func (r *limitedFile) Close() error { return r.f.Close() }

func (l *Local) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return os.Create(full)
}

func (l *Local) List(ctx context.Context, p string) ([]Entry, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(full)
	if err != nil {
		return nil, localErr(err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		e := Entry{Name: de.Name(), IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *Local) Move(ctx context.Context, from, to string) error {
	src, err := l.fullPath(from)
	if err != nil {
		return err
	}
	dst, err := l.fullPath(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	return localErr(os.Rename(src, dst))
}

func (l *Local) Delete(ctx context.Context, p string) error {
	full, err := l.fullPath(p)
	if err != nil {
		return err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return localErr(err)
	}
	if fi.IsDir() {
		return localErr(os.RemoveAll(full))
	}
	return localErr(os.Remove(full))
}
