package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDv7(t *testing.T) {
	gen := UUIDv7()
	id := gen()
	u, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if u.Version() != 7 {
		t.Errorf("version: got %d, want 7", u.Version())
	}
	if gen() == id {
		t.Error("two calls returned the same id")
	}
	if !Valid(New()) {
		t.Error("Default does not produce UUIDs")
	}
}

func TestNanoID(t *testing.T) {
	gen := NanoID(12)
	seen := make(map[string]bool)
	for range 1000 {
		id := gen()
		if len(id) != 12 {
			t.Fatalf("length: got %d, want 12", len(id))
		}
		if strings.Trim(id, "0123456789abcdefghijklmnopqrstuvwxyz") != "" {
			t.Fatalf("alphabet: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestSequence(t *testing.T) {
	gen := Prefixed("afe-", Sequence())
	if got := gen(); got != "afe-1" {
		t.Errorf("first: got %q, want afe-1", got)
	}
	if got := gen(); got != "afe-2" {
		t.Errorf("second: got %q, want afe-2", got)
	}
	if got := Sequence()(); got != "1" {
		t.Errorf("fresh sequence: got %q, want 1", got)
	}

	gen = Sequence()
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for range 8 {
		wg.Go(func() {
			for range 100 {
				id := gen()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate %q", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Errorf("got %d ids, want 800", len(seen))
	}
}

func TestValid(t *testing.T) {
	if Valid("not-a-uuid") {
		t.Error("Valid accepted garbage")
	}
}
