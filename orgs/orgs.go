// Package orgs persists per-organization records in a local Pebble store.
// Records carry the metadata the proxy needs to route uploads and resolve
// logos; the media itself lives on the remote store.
package orgs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"mediaproxy/logger"
)

// Organization is one tenant of the proxy.
type Organization struct {
	Name      string            `json:"name"`
	Folder    string            `json:"folder"` // store folder, "/organizations/<name>"
	Settings  map[string]string `json:"settings,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

var db *pebble.DB

// Open opens the Pebble DB for organization records at the specified path.
func Open(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		logger.Errorf("Failed to open organization store: %v", err)
		return err
	}
	return nil
}

// Close closes the DB.
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// Put stores or replaces the record under its name.
func Put(org Organization) error {
	if db == nil {
		return fmt.Errorf("organization store not initialized")
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now()
	}
	data, err := json.Marshal(org)
	if err != nil {
		return fmt.Errorf("failed to marshal organization: %w", err)
	}
	return db.Set([]byte(org.Name), data, pebble.Sync)
}

// Get returns the record for the given name, or nil when it does not exist.
func Get(name string) (*Organization, error) {
	if db == nil {
		return nil, fmt.Errorf("organization store not initialized")
	}
	value, closer, err := db.Get([]byte(name))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()
	var org Organization
	if err := json.Unmarshal(value, &org); err != nil {
		return nil, fmt.Errorf("failed to unmarshal organization %s: %w", name, err)
	}
	return &org, nil
}

// Delete removes the record for the given name.
func Delete(name string) error {
	if db == nil {
		return fmt.Errorf("organization store not initialized")
	}
	return db.Delete([]byte(name), pebble.Sync)
}

// List returns all records in key order.
func List() ([]Organization, error) {
	if db == nil {
		return nil, fmt.Errorf("organization store not initialized")
	}
	iter, err := db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var all []Organization
	for iter.First(); iter.Valid(); iter.Next() {
		var org Organization
		if err := json.Unmarshal(iter.Value(), &org); err != nil {
			logger.Warnf("skipping corrupt organization record %s: %v", iter.Key(), err)
			continue
		}
		all = append(all, org)
	}
	return all, iter.Error()
}
