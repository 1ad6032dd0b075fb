// Package testutil provides shared test helpers for setting up stores.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/notes/internal/store"
)

// TestStore creates a temporary SQLite-backed gateway that is automatically cleaned up.
func TestStore(t *testing.T) *store.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := store.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

// StrPtr returns a pointer to s, for building patches.
func StrPtr(s string) *string { return &s }

// TagsPtr returns a pointer to tags, for building patches.
func TagsPtr(tags ...string) *[]string {
	if tags == nil {
		tags = []string{}
	}
	return &tags
}
