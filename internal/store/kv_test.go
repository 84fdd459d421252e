package store

import (
	"context"
	"testing"
)

func TestMemoryKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	if err := kv.Put(ctx, "profile/default", `{"name":"Ana"}`); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, ok, err := kv.Get(ctx, "profile/default")
	if err != nil || !ok {
		t.Fatalf("Get = (%q, %v, %v), want hit", got, ok, err)
	}
	if got != `{"name":"Ana"}` {
		t.Fatalf("Get = %q, want stored value", got)
	}

	if err := kv.Delete(ctx, "profile/default"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "profile/default"); ok {
		t.Fatalf("Get after Delete still returns a value")
	}
}

func TestMemoryKVListByPrefix(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	_ = kv.Put(ctx, "session/a", "1")
	_ = kv.Put(ctx, "session/b", "2")
	_ = kv.Put(ctx, "profile/default", "3")

	out, err := kv.List(ctx, "session/")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(out))
	}
	if out["session/a"] != "1" || out["session/b"] != "2" {
		t.Fatalf("List = %v, want session entries", out)
	}
}

func TestOpenDefaultsToMemory(t *testing.T) {
	kv, err := Open(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer kv.Close()
	if _, ok := kv.(*MemoryKV); !ok {
		t.Fatalf("Open(\"\", \"\") = %T, want *MemoryKV", kv)
	}
}
