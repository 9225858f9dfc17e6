package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/auth"
	"YadminAPI/internal/changelist"
	"YadminAPI/internal/db"
	"YadminAPI/internal/history"
	"YadminAPI/internal/model"
	"YadminAPI/internal/records"
)

// ActionFunc выполняет массовое действие над набором pk внутри транзакции.
type ActionFunc func(ctx context.Context, q db.Querier, m *model.Model, ids []any, ident *auth.Identity) (map[string]any, error)

var (
	actionsMu sync.RWMutex
	actions   = map[string]ActionFunc{
		"delete_selected": deleteSelected,
	}
)

// RegisterAction добавляет действие; имя затем указывается в admin.actions.
func RegisterAction(name string, fn ActionFunc) {
	actionsMu.Lock()
	defer actionsMu.Unlock()
	actions[name] = fn
}

type actionPayload struct {
	Action       string   `json:"action"`
	SelectedIDs  []string `json:"selected_ids"`
	SelectAcross bool     `json:"select_across"`
	// Фильтры текущего ченжлиста, по ним разворачивается select_across.
	Query string `json:"query"`
}

// ActionHandler — POST /api/{model}/perform_action/.
func ActionHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := modelFromRequest(w, r)
	if !ok {
		return
	}
	ident, ok := requirePerm(w, r, m, "change")
	if !ok {
		return
	}
	var payload actionPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	if payload.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "action is required"})
		return
	}
	if !containsAction(m.Admin.Actions, payload.Action) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "unknown action: " + payload.Action})
		return
	}
	actionsMu.RLock()
	fn, ok := actions[payload.Action]
	actionsMu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "action is not registered: " + payload.Action})
		return
	}
	if len(payload.SelectedIDs) == 0 && !payload.SelectAcross {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "no records selected"})
		return
	}

	ctx := r.Context()
	var ids []any
	if payload.SelectAcross {
		// select_across: весь отфильтрованный набор, не только текущая страница
		values, err := url.ParseQuery(payload.Query)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid query: " + err.Error()})
			return
		}
		ids, err = changelist.SelectedIDs(ctx, db.Pool, m, values)
		if err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		for _, raw := range payload.SelectedIDs {
			id, err := records.ParseID(m, raw)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ids = append(ids, id)
		}
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer tx.Rollback(ctx)

	result, err := fn(ctx, tx, m, ids, ident)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func deleteSelected(ctx context.Context, q db.Querier, m *model.Model, ids []any, ident *auth.Identity) (map[string]any, error) {
	if !ident.HasPerm(m.Name, "delete") {
		return nil, adminerrs.ErrPermissionDenied
	}
	deleted := 0
	for _, id := range ids {
		rec, err := records.Get(ctx, q, m, id)
		if err != nil {
			return nil, err
		}
		if err := records.Delete(ctx, q, m, id); err != nil {
			return nil, err
		}
		if err := history.Log(ctx, q, ident.UserID, m.Name, fmt.Sprintf("%v", id), m.Repr(rec), history.Deletion, "deleted via delete_selected"); err != nil {
			return nil, err
		}
		deleted++
	}
	return map[string]any{"detail": fmt.Sprintf("%d record(s) deleted", deleted)}, nil
}

func containsAction(list []string, name string) bool {
	for _, a := range list {
		if a == name {
			return true
		}
	}
	return false
}
