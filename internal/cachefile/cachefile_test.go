package cachefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetMissingFile(t *testing.T) {
	m := Open(filepath.Join(t.TempDir(), "cache.json"))

	var v string
	ok, err := m.Get("key", &v)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected miss on missing file")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	m := Open(path)

	type entry struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	if err := m.Put("alpha", entry{ID: "a1", Count: 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// A fresh Map must see the persisted entry.
	var got entry
	ok, err := Open(path).Get("alpha", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.ID != "a1" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestPutOverwrites(t *testing.T) {
	m := Open(filepath.Join(t.TempDir(), "cache.json"))

	if err := m.Put("k", "first"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := m.Put("k", "second"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var v string
	if ok, _ := m.Get("k", &v); !ok || v != "second" {
		t.Errorf("got %q ok=%v, want %q", v, ok, "second")
	}
}

func TestKeysSorted(t *testing.T) {
	m := Open(filepath.Join(t.TempDir(), "cache.json"))
	for _, k := range []string{"zeta", "alpha", "mid"} {
		if err := m.Put(k, 1); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}

	keys, err := m.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], k)
		}
	}
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	var v string
	if _, err := Open(path).Get("k", &v); err == nil || !strings.Contains(err.Error(), "parsing cache") {
		t.Errorf("got %v, want parse error", err)
	}
}

func TestNoTempFileLeftovers(t *testing.T) {
	dir := t.TempDir()
	m := Open(filepath.Join(dir, "cache.json"))
	if err := m.Put("k", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".cache-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
