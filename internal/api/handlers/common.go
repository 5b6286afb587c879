package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/api/dto"
	"github.com/hugh/flow/internal/api/validation"
	"github.com/hugh/flow/internal/auth"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/orgs"
	"github.com/hugh/flow/internal/projects"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/internal/tasks"
	"github.com/hugh/flow/internal/users"
)

const maxBodyBytes = 1 << 20

type validatable interface {
	Validate() map[string]string
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into req and runs its validation. It writes the
// 400 response itself and reports false when the request is unusable.
func decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	if v, ok := req.(validatable); ok {
		if errs := v.Validate(); len(errs) > 0 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
			return false
		}
	}
	return true
}

// pathID parses the named chi URL parameter as an id.
func pathID(w http.ResponseWriter, r *http.Request, name, label string) (int64, bool) {
	id, err := validation.ParseID(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + label + " ID"})
		return 0, false
	}
	return id, true
}

func hasURLParam(r *http.Request, name string) bool {
	return chi.URLParam(r, name) != ""
}

// orgParam reads the organization id from the path, falling back to the
// organization_id query parameter.
func orgParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if hasURLParam(r, "orgID") {
		return pathID(w, r, "orgID", "organization")
	}
	id, err := validation.ParseID(r.URL.Query().Get("organization_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid organization ID"})
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

// writeError maps domain errors to HTTP statuses. Anything unrecognised is
// logged and reported as a 500 with the fallback message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, access.ErrAccessDenied):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Access denied"})
	case errors.Is(err, access.ErrProtectedUser):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Not found"})
	case errors.Is(err, settings.ErrLimitExceeded):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, orgs.ErrUserExists),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, users.ErrUserExists):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Already exists"})
	case errors.Is(err, orgs.ErrInvalidInput),
		errors.Is(err, orgs.ErrInvalidOrgAdmin),
		errors.Is(err, projects.ErrInvalidInput),
		errors.Is(err, tasks.ErrInvalidInput),
		errors.Is(err, events.ErrInvalidWebhook),
		errors.Is(err, settings.ErrInvalidLimit),
		errors.Is(err, users.ErrInvalidInput),
		errors.Is(err, users.ErrWrongPassword):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	default:
		logger.Error(fallback, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: fallback})
	}
}
