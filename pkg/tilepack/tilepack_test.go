package tilepack

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndReadPack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.tpk")

	tiles := map[string][]byte{
		"0/0/0": bytes.Repeat([]byte{0x10, 0x20, 0x30}, 64),
		"1/0/0": {0xde, 0xad, 0xbe, 0xef},
		"1/1/0": {},
	}

	w, err := Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for name, data := range tiles {
		if err := w.Add(name, data); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	if a.Count() != len(tiles) {
		t.Fatalf("count %d, want %d", a.Count(), len(tiles))
	}
	if got := a.List(); got[0] != "0/0/0" || got[1] != "1/0/0" || got[2] != "1/1/0" {
		t.Errorf("list %v not sorted", got)
	}

	for name, want := range tiles {
		if !a.Contains(name) {
			t.Fatalf("missing tile %s", name)
		}
		got, err := a.Read(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s: payload mismatch", name)
		}
	}

	if _, err := a.Read("9/9/9"); err == nil {
		t.Error("expected error reading missing tile")
	}
	if a.Contains("9/9/9") {
		t.Error("Contains reported a missing tile")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.tpk")
	if err := os.WriteFile(path, []byte("not a tile pack at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error opening garbage file")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/tiles.tpk"); err == nil {
		t.Error("expected error opening missing file")
	}
}
