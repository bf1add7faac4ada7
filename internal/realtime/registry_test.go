package realtime

import "testing"

func TestRegistry_BindAndLookup(t *testing.T) {
	r := NewRegistry()

	r.Bind("conn-1", 42)

	connID, ok := r.LookupConnection(42)
	if !ok {
		t.Fatal("expected user 42 to be bound")
	}
	if connID != "conn-1" {
		t.Errorf("expected conn-1, got %s", connID)
	}

	userID, ok := r.UserFor("conn-1")
	if !ok || userID != 42 {
		t.Errorf("expected conn-1 bound to 42, got %d (ok=%v)", userID, ok)
	}
}

func TestRegistry_LookupUnknownUser(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.LookupConnection(99); ok {
		t.Fatal("expected no connection for unknown user")
	}
	if r.Online(99) {
		t.Fatal("unknown user must not be online")
	}
}

func TestRegistry_Unbind(t *testing.T) {
	r := NewRegistry()
	r.Bind("conn-1", 42)

	r.Unbind("conn-1")

	if _, ok := r.LookupConnection(42); ok {
		t.Fatal("expected user 42 to be offline after unbind")
	}
	if _, ok := r.UserFor("conn-1"); ok {
		t.Fatal("expected conn-1 to be unbound")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistry_UnbindIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Bind("conn-1", 42)

	r.Unbind("conn-1")
	r.Unbind("conn-1")
	r.Unbind("never-bound")

	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistry_RebindSameUser_MostRecentWins(t *testing.T) {
	r := NewRegistry()
	r.Bind("conn-old", 42)
	r.Bind("conn-new", 42)

	connID, ok := r.LookupConnection(42)
	if !ok {
		t.Fatal("expected user 42 to be bound")
	}
	if connID != "conn-new" {
		t.Errorf("expected most recent connection conn-new, got %s", connID)
	}

	// The stale connection is still tracked until it disconnects.
	if _, ok := r.UserFor("conn-old"); !ok {
		t.Error("expected stale connection to remain bound for inbound frames")
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 tracked connections, got %d", r.Len())
	}
}

func TestRegistry_UnbindStaleKeepsNewerBinding(t *testing.T) {
	r := NewRegistry()
	r.Bind("conn-old", 42)
	r.Bind("conn-new", 42)

	r.Unbind("conn-old")

	connID, ok := r.LookupConnection(42)
	if !ok {
		t.Fatal("expected user 42 to remain online")
	}
	if connID != "conn-new" {
		t.Errorf("expected conn-new, got %s", connID)
	}
}

func TestRegistry_RebindConnectionToDifferentUser(t *testing.T) {
	r := NewRegistry()
	r.Bind("conn-1", 42)
	r.Bind("conn-1", 43)

	if r.Online(42) {
		t.Error("expected user 42 to be offline after its connection rebound")
	}
	connID, ok := r.LookupConnection(43)
	if !ok || connID != "conn-1" {
		t.Errorf("expected conn-1 bound to 43, got %s (ok=%v)", connID, ok)
	}
}

func TestRegistry_OnlineAndLen(t *testing.T) {
	r := NewRegistry()

	if r.Len() != 0 {
		t.Fatalf("expected 0, got %d", r.Len())
	}

	r.Bind("conn-1", 1)
	r.Bind("conn-2", 2)

	if !r.Online(1) || !r.Online(2) {
		t.Error("expected both users online")
	}
	if r.Len() != 2 {
		t.Errorf("expected 2, got %d", r.Len())
	}
}
