package orgs

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) {
	t.Helper()
	if err := Open(filepath.Join(t.TempDir(), "orgs.db")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func TestPutGetDelete(t *testing.T) {
	openTestDB(t)

	org := Organization{
		Name:     "acme",
		Folder:   "/organizations/acme",
		Settings: map[string]string{"plan": "pro"},
	}
	if err := Put(org); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := Get("acme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Name != "acme" || got.Folder != "/organizations/acme" {
		t.Fatalf("Get = %+v", got)
	}
	if got.Settings["plan"] != "pro" {
		t.Errorf("Settings lost: %+v", got.Settings)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set on Put")
	}

	if err := Delete("acme"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = Get("acme")
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("record survived delete: %+v", got)
	}
}

func TestGetMissingIsNil(t *testing.T) {
	openTestDB(t)
	got, err := Get("nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing record, got %+v", got)
	}
}

func TestList(t *testing.T) {
	openTestDB(t)
	for _, name := range []string{"globex", "acme", "initech"} {
		if err := Put(Organization{Name: name, Folder: "/organizations/" + name}); err != nil {
			t.Fatalf("Put(%s): %v", name, err)
		}
	}
	all, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d records, want 3", len(all))
	}
	// Pebble iterates in key order.
	if all[0].Name != "acme" || all[1].Name != "globex" || all[2].Name != "initech" {
		t.Errorf("List order: %v", []string{all[0].Name, all[1].Name, all[2].Name})
	}
}
