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

// addPayload — тело POST /add/: поля записи плюс пакеты inline-операций.
type addPayload struct {
	Data          map[string]any              `json:"data"`
	CreateInlines map[string][]map[string]any `json:"create_inlines"`
}

// AddHandler — GET отдаёт дескрипторы формы, POST создаёт запись
// (и её inline-детей) в одной транзакции.
func AddHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := modelFromRequest(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet {
		if _, ok := requirePerm(w, r, m, "view"); !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"fields": schema.Project(m, m.Admin, nil),
		})
		return
	}

	ident, ok := requirePerm(w, r, m, "add")
	if !ok {
		return
	}
	var payload addPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	validator := schema.BuildValidator(m, m.Admin)
	clean, verr := validator.Validate(payload.Data, false)
	if verr != nil && !verr.Empty() {
		writeError(w, r, verr)
		return
	}

	ctx := r.Context()
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer tx.Rollback(ctx)

	rec, err := records.Insert(ctx, tx, m, clean)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := rec[m.PKName()]

	inlineResults := map[string]inline.GroupResult{}
	if len(payload.CreateInlines) > 0 {
		groups := map[string]inline.GroupPayload{}
		for name, rows := range payload.CreateInlines {
			groups[name] = inline.GroupPayload{Create: rows}
		}
		inlineResults, err = inline.Apply(ctx, tx, m, id, groups)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := history.Log(ctx, tx, ident.UserID, m.Name, fmt.Sprintf("%v", id), m.Repr(rec), history.Addition, "added"); err != nil {
		writeError(w, r, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"data":           rec,
		"create_inlines": inlineResults,
	})
}
