package handler

import (
	"fmt"
	"net/http"

	"YadminAPI/internal/db"
	"YadminAPI/internal/history"
	"YadminAPI/internal/records"
)

// DeleteHandler — POST|DELETE /api/{model}/{id}/delete/.
func DeleteHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := modelFromRequest(w, r)
	if !ok {
		return
	}
	ident, ok := requirePerm(w, r, m, "delete")
	if !ok {
		return
	}
	id, err := records.ParseID(m, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer tx.Rollback(ctx)

	// Repr нужен до удаления, в журнал пишется последний снимок.
	rec, err := records.Get(ctx, tx, m, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := records.Delete(ctx, tx, m, id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := history.Log(ctx, tx, ident.UserID, m.Name, fmt.Sprintf("%v", id), m.Repr(rec), history.Deletion, "deleted"); err != nil {
		writeError(w, r, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"detail": fmt.Sprintf("%s %v deleted", m.Name, id),
	})
}
