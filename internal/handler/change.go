package handler

import (
	"fmt"
	"net/http"

	"YadminAPI/internal/db"
	"YadminAPI/internal/history"
	"YadminAPI/internal/inline"
	"YadminAPI/internal/records"
	"YadminAPI/internal/schema"
)

// changePayload — тело PUT/PATCH /change/: поля записи и три пакета
// inline-операций, применяемых той же транзакцией.
type changePayload struct {
	Data          map[string]any                       `json:"data"`
	CreateInlines map[string][]map[string]any          `json:"create_inlines"`
	UpdateInlines map[string]map[string]map[string]any `json:"update_inlines"`
	DeleteInlines map[string][]any                     `json:"delete_inlines"`
}

// ChangeHandler — GET /api/{model}/{id}/change/ отдаёт форму с current_value,
// PUT перезаписывает запись целиком, PATCH — частично.
func ChangeHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := modelFromRequest(w, r)
	if !ok {
		return
	}
	id, err := records.ParseID(m, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	if r.Method == http.MethodGet {
		if _, ok := requirePerm(w, r, m, "view"); !ok {
			return
		}
		rec, err := records.Get(ctx, db.Pool, m, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"fields": schema.Project(m, m.Admin, rec),
			"repr":   m.Repr(rec),
		})
		return
	}

	ident, ok := requirePerm(w, r, m, "change")
	if !ok {
		return
	}
	var payload changePayload
	if !decodeBody(w, r, &payload) {
		return
	}
	partial := r.Method == http.MethodPatch

	validator := schema.BuildValidator(m, m.Admin)
	clean, verr := validator.Validate(payload.Data, partial)
	if verr != nil && !verr.Empty() {
		writeError(w, r, verr)
		return
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer tx.Rollback(ctx)

	rec, err := records.Update(ctx, tx, m, id, clean)
	if err != nil {
		writeError(w, r, err)
		return
	}

	groups := map[string]inline.GroupPayload{}
	for name, rows := range payload.CreateInlines {
		g := groups[name]
		g.Create = rows
		groups[name] = g
	}
	for name, rows := range payload.UpdateInlines {
		g := groups[name]
		g.Update = rows
		groups[name] = g
	}
	for name, ids := range payload.DeleteInlines {
		g := groups[name]
		g.Delete = ids
		groups[name] = g
	}

	inlineResults := map[string]inline.GroupResult{}
	if len(groups) > 0 {
		inlineResults, err = inline.Apply(ctx, tx, m, id, groups)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := history.Log(ctx, tx, ident.UserID, m.Name, fmt.Sprintf("%v", id), m.Repr(rec), history.Change, "changed"); err != nil {
		writeError(w, r, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":    rec,
		"inlines": inlineResults,
	})
}
