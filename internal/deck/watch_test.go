package deck

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.csv")
	if err := os.WriteFile(path, []byte("uno,one\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, LayoutAuto)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan ImportResult, 1)
	go func() {
		_ = w.Run(ctx, func(res ImportResult) {
			select {
			case got <- res:
			default:
			}
		})
	}()

	// Give the watcher loop a moment to start selecting.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("uno,one\ndos,two\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-got:
		if len(res.Items) != 2 {
			t.Errorf("reloaded %d items, want 2", len(res.Items))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
