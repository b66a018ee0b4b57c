package file

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("http.addr", ":8080"))

	reloaded := make(chan struct{}, 4)
	w := NewWatcher(store, func() { reloaded <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(store.Path(), []byte("[http]\naddr = \":9090\"\n"), 0600))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	assert.Equal(t, ":9090", store.GetString("http.addr"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_InvalidFileKeepsPreviousValues(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("http.addr", ":8080"))

	reloaded := make(chan struct{}, 4)
	w := NewWatcher(store, func() { reloaded <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(store.Path(), []byte("not [ toml"), 0600))

	select {
	case <-reloaded:
		t.Fatal("invalid file should not trigger a reload callback")
	case <-time.After(600 * time.Millisecond):
	}
	assert.Equal(t, ":8080", store.GetString("http.addr"))
}

func TestWatcher_MissingDirectory(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, os.RemoveAll(store.Path()))
	store.filePath = "/nonexistent-chatstate-dir/config.toml"

	err := NewWatcher(store, nil).Run(context.Background())
	assert.Error(t, err)
}
