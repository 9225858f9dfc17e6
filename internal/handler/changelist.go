package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"YadminAPI/internal/changelist"
	"YadminAPI/internal/db"
	"YadminAPI/internal/records"
)

// ChangelistHandler — GET /api/{model}/changelist/: полный конвейер
// (фильтры, поиск, сортировка, пагинация, ячейки).
func ChangelistHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := modelFromRequest(w, r)
	if !ok {
		return
	}
	if _, ok := requirePerm(w, r, m, "view"); !ok {
		return
	}

	cl, err := changelist.Build(r.Context(), db.Pool, m, r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cl)
}

// ListHandler — GET /api/{model}/list/: плоские записи без фильтров
// и представлений, постранично. Подходит для выгрузок и связанных виджетов.
func ListHandler(w http.ResponseWriter, r *http.Request) {
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
	perPage := m.Admin.ListPerPage
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			perPage = n
		}
	}

	recs, total, err := records.List(r.Context(), db.Pool, m, perPage, (page-1)*perPage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// каждая запись несёт ссылку на свою change-форму
	for _, rec := range recs {
		rec["detail_url"] = fmt.Sprintf("/api/%s/%v/change/", m.Name, rec[m.PKName()])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":   recs,
		"count":     total,
		"page":      page,
		"page_size": perPage,
	})
}
