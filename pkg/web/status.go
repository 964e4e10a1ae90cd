package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"compositor/pkg/eventlog"
)

// systemStatus reports host resource usage and render-slot occupancy,
// supplemented beyond spec.md §6 per SPEC_FULL.md's ambient-stack
// expansion, grounded on the teacher's web.Status/system.Status.
func (a *App) systemStatus() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, a.Monitor.Status())
	})
}

// logs answers a filtered, paginated log query, grounded on the teacher's
// pkg/log/query.go Query shape.
func (a *App) logs() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "invalid request method", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()

		query := eventlog.Query{
			Sources:   splitCSV(q.Get("sources")),
			RenderIDs: splitCSV(q.Get("renderIds")),
		}
		if before := q.Get("before"); before != "" {
			n, err := strconv.ParseUint(before, 10, 64)
			if err != nil {
				http.Error(w, "invalid before", http.StatusBadRequest)
				return
			}
			query.Before = eventlog.UnixMillisecond(n)
		}
		if limit := q.Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			query.Limit = n
		}
		for _, lvl := range splitCSV(q.Get("levels")) {
			query.Levels = append(query.Levels, levelFromString(lvl))
		}

		logs, err := a.LogDB.Query(query)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	})
}

var logUpgrader = websocket.Upgrader{}

// logsStream opens a websocket tailing new log events live, adapted from
// the teacher's web.Logs handler: re-validates the Authorization header
// before every message so a revoked credential stops the feed mid-stream.
func (a *App) logsStream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := logUpgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer conn.Close()

		feed, cancel := a.Logger.Subscribe()
		defer cancel()

		authHeader := r.Header.Get("Authorization")
		for log := range feed {
			resp := a.Auth.ValidateAuth(authHeader)
			if !resp.IsValid {
				return
			}
			if err := conn.WriteJSON(log); err != nil {
				return
			}
		}
	})
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func levelFromString(s string) eventlog.Level {
	switch strings.ToLower(s) {
	case "error":
		return eventlog.LevelError
	case "warning", "warn":
		return eventlog.LevelWarning
	case "info":
		return eventlog.LevelInfo
	default:
		return eventlog.LevelDebug
	}
}
