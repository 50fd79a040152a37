package all

import (
	"database/sql"
	"testing"

	"dataingest/internal/storage"
)

func TestKindsRegistered(t *testing.T) {
	t.Parallel()

	got := map[string]bool{}
	for _, k := range storage.Kinds() {
		got[k] = true
	}
	for _, want := range []string{"mssql", "postgres", "sqlite"} {
		if !got[want] {
			t.Fatalf("backend %q not registered; have %v", want, storage.Kinds())
		}
	}

	found := false
	for _, d := range sql.Drivers() {
		if d == "sqlserver" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sqlserver driver not registered: %v", sql.Drivers())
	}
}
