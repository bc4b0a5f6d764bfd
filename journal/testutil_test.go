package journal

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dataDir := t.TempDir()
	store, _, err := Open(dataDir)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close test store: %v", err)
		}
	})

	return store
}

func mustRecord(t *testing.T, store *Store, op Operation) {
	t.Helper()

	if err := store.Record(op); err != nil {
		t.Fatalf("record operation %+v: %v", op, err)
	}
}
