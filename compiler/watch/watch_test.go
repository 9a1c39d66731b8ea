package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.Mkdir(templates, 0o755))
	schema := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schema, []byte("entities: []\n"), 0o644))

	runs := make(chan struct{}, 16)
	var calls atomic.Int32
	w := New(func(context.Context) error {
		calls.Add(1)
		select {
		case runs <- struct{}{}:
		default:
		}
		return errors.New("keeps watching")
	}, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, schema, templates, "") }()

	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)

	waitRun := func(msg string) {
		t.Helper()
		select {
		case <-runs:
		case <-time.After(5 * time.Second):
			t.Fatal(msg)
		}
	}

	require.NoError(t, os.WriteFile(schema, []byte("entities: [{name: A}]\n"), 0o644))
	waitRun("no run after schema change")

	require.NoError(t, os.WriteFile(filepath.Join(templates, "CreateCommandTemplate.txt"), []byte("x"), 0o644))
	waitRun("no run after template change")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestWatchMissingPath(t *testing.T) {
	w := New(func(context.Context) error { return nil })
	err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRelevant(t *testing.T) {
	dirs := map[string]struct{}{"/in/templates": {}}
	files := map[string]struct{}{"/in/schema.yaml": {}}
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"watched file", fsnotify.Event{Name: "/in/schema.yaml", Op: fsnotify.Write}, true},
		{"sibling of watched file", fsnotify.Event{Name: "/in/other.yaml", Op: fsnotify.Write}, false},
		{"inside watched dir", fsnotify.Event{Name: "/in/templates/A.txt", Op: fsnotify.Create}, true},
		{"removed", fsnotify.Event{Name: "/in/templates/A.txt", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "/in/schema.yaml", Op: fsnotify.Chmod}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.ev, dirs, files))
		})
	}
}
