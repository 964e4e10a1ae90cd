package asset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalizeLocalPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	l := NewLocalizer(dir, "", nil, t.TempDir(), time.Second)
	path, err := l.Localize(context.Background(), "a.png")
	require.NoError(t, err)
	require.Equal(t, file, path)
}

func TestLocalizeMediaURL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "backgrounds"), 0o755))
	file := filepath.Join(dir, "backgrounds", "b.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	l := NewLocalizer(dir, "https://host/media", nil, t.TempDir(), time.Second)
	path, err := l.Localize(context.Background(), "https://host/media/backgrounds/b.png")
	require.NoError(t, err)
	require.Equal(t, file, path)
}

func TestLocalizeFallbackRoot(t *testing.T) {
	fallback := t.TempDir()
	file := filepath.Join(fallback, "stock.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	l := NewLocalizer(t.TempDir(), "", []string{fallback}, t.TempDir(), time.Second)
	path, err := l.Localize(context.Background(), "stock.png")
	require.NoError(t, err)
	require.Equal(t, file, path)
}

func TestLocalizeRemoteDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote-bytes")) //nolint:errcheck
	}))
	defer srv.Close()

	l := NewLocalizer(t.TempDir(), "", nil, t.TempDir(), time.Second)
	path, err := l.Localize(context.Background(), srv.URL+"/img.png")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "remote-bytes", string(data))
	require.Equal(t, 1, l.FetchCount())
}

func TestLocalizeRemoteConcurrentDedup(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte("data")) //nolint:errcheck
	}))
	defer srv.Close()

	l := NewLocalizer(t.TempDir(), "", nil, t.TempDir(), time.Second)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Localize(context.Background(), srv.URL+"/shared.png")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
	require.Equal(t, 1, l.FetchCount())
}

func TestLocalizeUnresolvable(t *testing.T) {
	l := NewLocalizer(t.TempDir(), "", nil, t.TempDir(), time.Second)
	_, err := l.Localize(context.Background(), "ftp://example.com/x.png")
	require.Error(t, err)
}

func TestLocalizeEmptyRef(t *testing.T) {
	l := NewLocalizer(t.TempDir(), "", nil, t.TempDir(), time.Second)
	_, err := l.Localize(context.Background(), "")
	require.Error(t, err)
}
