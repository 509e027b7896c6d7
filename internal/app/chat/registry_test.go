package chat

import (
	"testing"
)

func TestRegistryAddRemove(t *testing.T) {
	registry := NewRegistry()

	conn, _ := newTestConn(t, "c1")
	registry.Add(conn)

	if registry.Len() != 1 {
		t.Fatalf("Len = %d, want 1", registry.Len())
	}

	registry.Remove(conn)
	if registry.Len() != 0 {
		t.Errorf("Len = %d, want 0 after remove", registry.Len())
	}

	// A failed read and an explicit close may both remove the same entry.
	registry.Remove(conn)
	if registry.Len() != 0 {
		t.Errorf("Len = %d, want 0 after duplicate remove", registry.Len())
	}
}

func TestRegistryBindUserLastConnectedWins(t *testing.T) {
	registry := NewRegistry()

	first, _ := newTestConn(t, "c1")
	registry.Add(first)
	if displaced := registry.BindUser(first, 5); displaced != nil {
		t.Fatalf("first bind displaced %s, want nil", displaced.ID())
	}

	second, _ := newTestConn(t, "c2")
	registry.Add(second)
	displaced := registry.BindUser(second, 5)

	if displaced != first {
		t.Fatal("second bind did not return the first connection as displaced")
	}
	if registry.FindByUser(5) != second {
		t.Error("FindByUser(5) is not the newest connection")
	}
}

func TestRegistryRebindSameConnection(t *testing.T) {
	registry := NewRegistry()

	conn, _ := newTestConn(t, "c1")
	registry.Add(conn)
	registry.BindUser(conn, 5)

	// A repeated auth frame on the same connection displaces nothing.
	if displaced := registry.BindUser(conn, 5); displaced != nil {
		t.Errorf("rebinding the same connection displaced %s, want nil", displaced.ID())
	}
}

func TestRegistryRemoveKeepsReplacementBinding(t *testing.T) {
	registry := NewRegistry()

	old, _ := newTestConn(t, "c1")
	registry.Add(old)
	registry.BindUser(old, 5)

	replacement, _ := newTestConn(t, "c2")
	registry.Add(replacement)
	registry.BindUser(replacement, 5)

	// Removing the displaced connection must not evict the replacement's
	// user mapping.
	registry.Remove(old)

	if registry.FindByUser(5) != replacement {
		t.Error("removing the displaced connection evicted the replacement binding")
	}
	if registry.Len() != 1 {
		t.Errorf("Len = %d, want 1", registry.Len())
	}
}

func TestRegistryFindByUserOffline(t *testing.T) {
	registry := NewRegistry()

	if got := registry.FindByUser(404); got != nil {
		t.Errorf("FindByUser(404) = %v, want nil", got)
	}
}

func TestRegistrySnapshot(t *testing.T) {
	registry := NewRegistry()

	a, _ := newTestConn(t, "c1")
	b, _ := newTestConn(t, "c2")
	registry.Add(a)
	registry.Add(b)

	snapshot := registry.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("Snapshot returned %d connections, want 2", len(snapshot))
	}

	seen := map[string]bool{}
	for _, conn := range snapshot {
		seen[conn.ID()] = true
	}
	if !seen["c1"] || !seen["c2"] {
		t.Errorf("Snapshot missing connections: %v", seen)
	}
}
