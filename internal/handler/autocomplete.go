package handler

import (
	"net/http"
	"strconv"

	"github.com/Masterminds/squirrel"

	"YadminAPI/internal/changelist"
	"YadminAPI/internal/db"
	"YadminAPI/internal/model"
	"YadminAPI/internal/records"
)

const autocompletePageSize = 20

// AutocompleteHandler — GET /api/{model}/autocomplete/?term=&model_name=&field_name=.
// {model} — модель, по которой ищем; model_name/field_name — ссылающееся
// поле, от него берутся ограничения limit_choices_to. Поиск идёт по
// search_fields целевой модели; их отсутствие — отказ, а не пустой результат.
func AutocompleteHandler(w http.ResponseWriter, r *http.Request) {
	target, ok := modelFromRequest(w, r)
	if !ok {
		return
	}
	if _, ok := requirePerm(w, r, target, "view"); !ok {
		return
	}

	q := r.URL.Query()
	refModelName := q.Get("model_name")
	refFieldName := q.Get("field_name")
	if refModelName == "" || refFieldName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "model_name and field_name are required"})
		return
	}
	refModel, ok := model.Registry[refModelName]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "unknown model_name: " + refModelName})
		return
	}
	refField := refModel.GetField(refFieldName)
	if refField == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "unknown field_name: " + refFieldName})
		return
	}
	if (refField.Kind != model.KindFK && refField.Kind != model.KindM2M) || refField.Model != target.Name {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "field does not reference this model"})
		return
	}
	if len(target.Admin.SearchFields) == 0 {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "model is not searchable"})
		return
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}

	qs := changelist.NewQueryState(target)
	if term := q.Get("term"); term != "" {
		if err := changelist.ApplySearch(qs, target.Admin.SearchFields, term); err != nil {
			writeError(w, r, err)
			return
		}
	}
	for col, val := range refField.LimitChoicesTo {
		qs.AddCond(squirrel.Eq{"main." + col: val})
	}

	cols, names := records.PrefixedColumns(target, "main")
	sel := qs.RowsSelect(cols...).
		OrderBy(orderedBy(target)...).
		Limit(uint64(autocompletePageSize + 1)).
		Offset(uint64((page - 1) * autocompletePageSize))
	sqlStr, args, err := sel.ToSql()
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := db.Pool.Query(r.Context(), sqlStr, args...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rows.Close()

	results := []map[string]any{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			writeError(w, r, err)
			return
		}
		rec := records.RowToMap(names, vals)
		results = append(results, map[string]any{
			"id":   rec[target.PKName()],
			"text": target.Repr(rec),
		})
	}
	if err := rows.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	more := len(results) > autocompletePageSize
	if more {
		results = results[:autocompletePageSize]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":    results,
		"pagination": map[string]any{"more": more},
	})
}

func orderedBy(m *model.Model) []string {
	cols := []string{}
	for _, t := range m.DefaultOrdering() {
		name, dir := t, " ASC"
		if len(t) > 0 && t[0] == '-' {
			name, dir = t[1:], " DESC"
		}
		if f := m.GetField(name); f != nil && f.Concrete() {
			cols = append(cols, "main."+f.ColumnName()+dir)
		}
	}
	cols = append(cols, "main."+m.PKColumn()+" ASC")
	return cols
}
