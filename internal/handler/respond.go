package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/auth"
	"YadminAPI/internal/logger"
	"YadminAPI/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err.Error()})
	}
}

// writeError переводит доменные ошибки в HTTP-статусы.
// Всё, что не распознано — 500 без деталей в теле.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *adminerrs.NotFoundError
	var verr *adminerrs.ValidationError
	var ierr *adminerrs.InlineValidationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.As(err, &ierr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"inline_errors": ierr.Groups})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": nf.Error()})
	case errors.Is(err, adminerrs.ErrPageOutOfRange):
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": err.Error()})
	case errors.Is(err, adminerrs.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "permission denied"})
	case errors.Is(err, adminerrs.ErrIncorrectLookupParams),
		errors.Is(err, adminerrs.ErrDisallowedLookup),
		errors.Is(err, adminerrs.ErrFieldDoesNotExist),
		errors.Is(err, adminerrs.ErrNotARelation):
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
	default:
		logger.Error("internal_error", map[string]any{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "internal server error"})
	}
}

// modelFromRequest достаёт модель из wildcard-сегмента пути.
func modelFromRequest(w http.ResponseWriter, r *http.Request) (*model.Model, bool) {
	name := r.PathValue("model")
	m, ok := model.Registry[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "unknown model: " + name})
		return nil, false
	}
	return m, true
}

// requirePerm сверяет право из клеймов с действием над моделью.
func requirePerm(w http.ResponseWriter, r *http.Request, m *model.Model, action string) (*auth.Identity, bool) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		ident = auth.Anonymous()
	}
	if !ident.HasPerm(m.Name, action) {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "permission denied"})
		return nil, false
	}
	return ident, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "failed to read body: " + err.Error()})
		return false
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "empty request body"})
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}
