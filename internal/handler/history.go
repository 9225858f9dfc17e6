package handler

import (
	"net/http"
	"strconv"

	"YadminAPI/internal/db"
	"YadminAPI/internal/history"
)

const historyPageSize = 100

// HistoryHandler — GET /api/{model}/{id}/history/: страница журнала по объекту.
func HistoryHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := modelFromRequest(w, r)
	if !ok {
		return
	}
	if _, ok := requirePerm(w, r, m, "view"); !ok {
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}

	entries, total, err := history.ForObject(r.Context(), db.Pool, m.Name, r.PathValue("id"),
		historyPageSize, (page-1)*historyPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": entries,
		"count":   total,
		"page":    page,
	})
}
