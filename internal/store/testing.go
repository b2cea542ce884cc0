package store

import "testing"

// NewTestDB creates an in-memory database for tests, migrated and ready to use.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := openAt(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}
