// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package web exposes the compositor's HTTP surface: timeline render
// requests, artifact listing, and range-aware media serving, per
// spec.md §6.
package web

import (
	"net/http"
	"strings"

	"compositor/pkg/artifact"
	"compositor/pkg/asset"
	"compositor/pkg/auth"
	"compositor/pkg/eventlog"
	"compositor/pkg/ffmpeg"
	"compositor/pkg/render"
	"compositor/pkg/sysinfo"
)

// App wires together every component the HTTP surface dispatches to.
type App struct {
	Auth       *auth.Authenticator
	Localizer  *asset.Localizer
	Engine     *ffmpeg.Engine
	Dispatcher *render.Dispatcher
	Store      *artifact.Store
	Logger     *eventlog.Logger
	LogDB      *eventlog.DB
	Monitor    *sysinfo.Monitor

	MediaRoot string
	MediaURL  string
}

// Routes builds the complete handler tree, wrapping every endpoint in
// App.Auth.User, matching the teacher's per-handler method-guard idiom in
// routes.go.
func (a *App) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/render/preview", a.Auth.User(a.renderPreview()))
	mux.Handle("/render", a.Auth.User(a.renderFinal()))
	mux.Handle("/render/image/preview", a.Auth.User(a.renderImagePreview()))
	mux.Handle("/render/image", a.Auth.User(a.renderImage()))
	mux.Handle("/locked/list", a.Auth.User(a.lockedList()))
	mux.Handle("/locked/delete", a.Auth.User(a.lockedDelete()))
	mediaHandler := a.Auth.User(a.media())
	mux.Handle("/media/", mediaHandler)
	mux.Handle("/api/system/status", a.Auth.User(a.systemStatus()))
	mux.Handle("/api/logs", a.Auth.User(a.logs()))
	mux.Handle("/api/logs/stream", a.Auth.User(a.logsStream()))

	// ServeMux redirects paths containing ".." to their cleaned form, so
	// /media/ requests bypass it and reach the media handler's own
	// traversal check.
	return withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/media/") {
			mediaHandler.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	}))
}

// withCORS allows cross-origin callers to read render responses, matching
// the spec's deployment assumption that the compositor sits behind a
// separate front-end origin. Content-Length/Content-Range/Accept-Ranges
// must be explicitly exposed per spec.md §4.11, or browser JS on another
// origin can't read them even though the range response itself is correct.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pathTail strips prefix from r.URL.Path and rejects traversal attempts.
func pathTail(r *http.Request, prefix string) (string, bool) {
	tail := strings.TrimPrefix(r.URL.Path, prefix)
	if tail == "" || strings.Contains(tail, "..") {
		return "", false
	}
	return tail, true
}
