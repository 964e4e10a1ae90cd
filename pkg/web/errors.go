package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"compositor/pkg/artifact"
	"compositor/pkg/asset"
	"compositor/pkg/graph"
	"compositor/pkg/render"
	"compositor/pkg/timeline"
)

// apiError is the JSON shape written on every non-2xx response.
type apiError struct {
	Error string `json:"error"`
}

// writeError maps the taxonomy of spec.md §7 onto HTTP status codes and
// writes a JSON body, mirroring the teacher's http.Error convention but
// with a structured body since every caller here is a JSON API client.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validationErr *timeline.ValidationError
	var assetErr *asset.Error
	var buildErr *graph.BuildError
	var engineErr *render.EngineError
	var engineTimeout *render.EngineTimeout
	var storageErr *artifact.StorageError
	var notFoundErr *artifact.NotFoundError
	var permErr *artifact.PermissionError

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &assetErr):
		status = http.StatusInternalServerError
	case errors.As(err, &buildErr):
		status = http.StatusInternalServerError
	case errors.As(err, &engineErr):
		status = http.StatusInternalServerError
	case errors.As(err, &engineTimeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &storageErr):
		status = http.StatusInternalServerError
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &permErr):
		status = http.StatusForbidden
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Error: err.Error()}) //nolint:errcheck
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
