// Package logo resolves and replaces per-scope logo files on the remote
// store. A scope is either an organization folder or the singleton admin
// scope; its logo lives at <scope>/logo<ext> for exactly one extension.
package logo

import (
	"context"
	"fmt"
	"io"

	"mediaproxy/logger"
	"mediaproxy/store"
)

// Extensions is the fixed probe order. Resolution returns the first hit, so
// a .png always wins over a .jpg for the same scope.
var Extensions = []string{".png", ".jpg", ".jpeg", ".svg", ".jfif", ".webp", ".gif"}

// AdminScope is the scope path for the service-wide fallback logo.
const AdminScope = "/admin"

// OrgScope returns the scope path for an organization.
func OrgScope(org string) string {
	return "/organizations/" + org
}

// ValidExt reports whether ext is one of the supported logo extensions.
func ValidExt(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Asset is a resolved logo: its bytes and the extension it was found under.
type Asset struct {
	Data []byte
	Ext  string
}

// Resolver finds logo objects on the store.
type Resolver struct {
	Store store.Store
}

// Resolve probes the scope's logo path under each extension in order and
// returns the first existing one. Absence is (nil, nil), not an error;
// transport failures propagate.
func (r *Resolver) Resolve(ctx context.Context, scope string) (*Asset, error) {
	for _, ext := range Extensions {
		p := scope + "/logo" + ext
		ok, err := r.Store.Exists(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", p, err)
		}
		if !ok {
			continue
		}
		rc, err := r.Store.OpenRead(ctx, p, nil)
		if err != nil {
			if store.IsNotFound(err) {
				// Deleted between probe and read; keep probing.
				continue
			}
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		return &Asset{Data: data, Ext: ext}, nil
	}
	return nil, nil
}

// Replace installs a new logo for the scope. Every known extension variant
// is deleted first so at most one logo file exists per scope afterwards.
// Returns the path the new logo was written to.
func (r *Resolver) Replace(ctx context.Context, scope, ext string, src io.Reader) (string, error) {
	if !ValidExt(ext) {
		return "", fmt.Errorf("unsupported logo extension %q", ext)
	}

	for _, e := range Extensions {
		p := scope + "/logo" + e
		if err := r.Store.Delete(ctx, p); err != nil && !store.IsNotFound(err) {
			return "", fmt.Errorf("delete stale logo %s: %w", p, err)
		}
	}

	p := scope + "/logo" + ext
	wc, err := r.Store.OpenWrite(ctx, p)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", p, err)
	}
	if _, err := io.Copy(wc, src); err != nil {
		wc.Close()
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("finish %s: %w", p, err)
	}
	logger.Infof("replaced logo for scope %s with %s", scope, p)
	return p, nil
}
