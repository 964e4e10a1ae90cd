package web

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// media serves files under MediaRoot with full HTTP range support, per
// spec.md §6 ("GET /media/<path> -> range-aware file read") and the
// boundary behavior in §8 (single-byte ranges, 416 on out-of-range
// requests). net/http.ServeContent implements Range/If-Range/206/416
// itself; this handler's job is resolving and guarding the path.
func (a *App) media() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}

		tail, ok := pathTail(r, "/media/")
		if !ok {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		full := filepath.Join(a.MediaRoot, filepath.FromSlash(tail))
		if !strings.HasPrefix(full, a.MediaRoot+string(filepath.Separator)) {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		f, err := os.Open(full)
		if err != nil {
			if os.IsNotExist(err) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, "could not open file", http.StatusInternalServerError)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Accept-Ranges", "bytes")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}
