package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testStartedAt is a fixed start time for test runs.
var testStartedAt = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// createTestRun creates a test run with minimal required fields.
func createTestRun(id, profile string) Run {
	return Run{
		ID:         id,
		Profile:    profile,
		ConfigHash: "hash-" + id,
		Config:     `{"run":{"name":"test"}}`,
		StartedAt:  testStartedAt,
	}
}
