package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nwbridge/rfc-server-go/native/nativetest"
	"github.com/nwbridge/rfc-server-go/rfc"
)

func TestWatchReloadsOnRewrite(t *testing.T) {
	eng := nativetest.New()
	eng.FileContents["Z_OLD"] = rfc.FunctionDescription{Name: "Z_OLD"}

	dir := t.TempDir()
	path := filepath.Join(dir, "repo.bin")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewCache(eng).Watch(path, "R1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if got := eng.Calls(nativetest.OpLoadRepository); got != 1 {
		t.Fatalf("initial loads = %d, want 1", got)
	}

	// Simulate the out-of-band regeneration of the repository file.
	eng.FileContents["Z_NEW"] = rfc.FunctionDescription{Name: "Z_NEW"}
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for w.Reloads() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never reloaded after rewrite")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := w.LastErr(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, err := NewCache(eng).FunctionDesc("R1", "Z_NEW"); err != nil {
		t.Fatalf("reloaded repository missing new function: %v", err)
	}
}

func TestWatchFailsWhenInitialLoadFails(t *testing.T) {
	eng := nativetest.New()
	path := filepath.Join(t.TempDir(), "repo.bin") // never created
	if _, err := NewCache(eng).Watch(path, "R1"); err == nil {
		t.Fatal("expected Watch to fail on missing file")
	}
}

func TestWatchCloseStops(t *testing.T) {
	eng := nativetest.New()
	dir := t.TempDir()
	path := filepath.Join(dir, "repo.bin")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := NewCache(eng).Watch(path, "R1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// A rewrite after Close must not reload.
	loads := eng.Calls(nativetest.OpLoadRepository)
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if got := eng.Calls(nativetest.OpLoadRepository); got != loads {
		t.Fatalf("reload after Close: loads went %d -> %d", loads, got)
	}
}
