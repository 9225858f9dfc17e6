package inline

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/db"
	"YadminAPI/internal/model"
	"YadminAPI/internal/records"
	"YadminAPI/internal/schema"
)

// GroupPayload — операции над одной inline-группой в рамках запроса.
// Update ключуется строковым pk дочерней записи.
type GroupPayload struct {
	Create []map[string]any          `json:"create"`
	Update map[string]map[string]any `json:"update"`
	Delete []any                     `json:"delete"`
}

// GroupResult — итог применения одной группы. Deleted несёт снимки
// удалённых записей, снятые до удаления.
type GroupResult struct {
	Created    []map[string]any `json:"created"`
	Updated    []map[string]any `json:"updated"`
	Deleted    []map[string]any `json:"deleted"`
	DeletedIDs []any            `json:"deleted_ids"`
}

// Apply применяет пакет inline-операций к дочерним записям родителя.
// Вся валидация выполняется до первой записи в БД: либо применяется весь
// пакет, либо возвращается InlineValidationError со всеми проблемами сразу.
// Вызывающий обязан передать транзакцию и откатить её при ошибке.
func Apply(ctx context.Context, tx db.Querier, parent *model.Model, parentID any, payload map[string]GroupPayload) (map[string]GroupResult, error) {
	verr := adminerrs.NewInlineValidationError()

	type plannedGroup struct {
		cfg     *model.InlineConfig
		child   *model.Model
		fkCol   string
		creates []map[string]any
		updates map[string]map[string]any
		deletes []any
	}
	planned := []*plannedGroup{}

	names := make([]string, 0, len(payload))
	for name := range payload {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		group := payload[name]
		cfg := findInline(parent, name)
		if cfg == nil {
			verr.Groups[name] = []string{fmt.Sprintf("unknown inline group %q", name)}
			continue
		}
		child := cfg.ChildRef()
		fkField := child.GetField(cfg.FK)
		fkCol := fkField.ColumnName()

		related, err := relatedSet(ctx, tx, child, fkCol, parentID)
		if err != nil {
			return nil, err
		}

		groupErrs := []string{}
		// ошибки строк раздельно по операциям: create — позиционно (nil для
		// валидной строки), update — по pk дочерней записи
		createErrs := []map[string][]string{}
		updateErrs := map[string]map[string][]string{}
		rowsBad := false

		validator := inlineValidator(child, cfg)

		creates := make([]map[string]any, 0, len(group.Create))
		for _, row := range group.Create {
			if raw, ok := row[cfg.FK]; ok && fmt.Sprintf("%v", raw) != fmt.Sprintf("%v", parentID) {
				createErrs = append(createErrs, map[string][]string{cfg.FK: {"cannot point at another parent"}})
				rowsBad = true
				continue
			}
			delete(row, cfg.FK)
			clean, rerr := validator.Validate(row, false)
			if rerr != nil && !rerr.Empty() {
				createErrs = append(createErrs, rerr.Fields)
				rowsBad = true
				continue
			}
			clean[cfg.FK] = parentID
			creates = append(creates, clean)
			createErrs = append(createErrs, nil)
		}

		updates := map[string]map[string]any{}
		updateIDs := make([]string, 0, len(group.Update))
		for id := range group.Update {
			updateIDs = append(updateIDs, id)
		}
		sort.Strings(updateIDs)
		for _, id := range updateIDs {
			row := group.Update[id]
			if !related[id] {
				groupErrs = append(groupErrs, fmt.Sprintf("record %q does not belong to this parent", id))
				continue
			}
			if raw, ok := row[cfg.FK]; ok && fmt.Sprintf("%v", raw) != fmt.Sprintf("%v", parentID) {
				groupErrs = append(groupErrs, fmt.Sprintf("record %q: cannot move to another parent", id))
				continue
			}
			delete(row, cfg.FK)
			clean, rerr := validator.Validate(row, true)
			if rerr != nil && !rerr.Empty() {
				rowsBad = true
				updateErrs[id] = rerr.Fields
				continue
			}
			updates[id] = clean
		}

		deletes := []any{}
		for _, id := range group.Delete {
			key := fmt.Sprintf("%v", id)
			if !related[key] {
				groupErrs = append(groupErrs, fmt.Sprintf("record %q does not belong to this parent", key))
				continue
			}
			deletes = append(deletes, id)
		}

		resulting := len(related) - len(deletes) + len(creates)
		if cfg.MinNum > 0 && resulting < cfg.MinNum {
			groupErrs = append(groupErrs, fmt.Sprintf("at least %d record(s) required", cfg.MinNum))
		}
		if cfg.MaxNum > 0 && resulting > cfg.MaxNum {
			groupErrs = append(groupErrs, fmt.Sprintf("at most %d record(s) allowed", cfg.MaxNum))
		}

		switch {
		case len(groupErrs) > 0:
			verr.Groups[name] = groupErrs
		case rowsBad:
			rowErrs := map[string]any{}
			for _, fields := range createErrs {
				if fields != nil {
					rowErrs["create"] = createErrs
					break
				}
			}
			if len(updateErrs) > 0 {
				rowErrs["update"] = updateErrs
			}
			verr.Groups[name] = rowErrs
		default:
			planned = append(planned, &plannedGroup{
				cfg:     cfg,
				child:   child,
				fkCol:   fkCol,
				creates: creates,
				updates: updates,
				deletes: deletes,
			})
		}
	}

	if !verr.Empty() {
		return nil, verr
	}

	results := map[string]GroupResult{}
	for _, pg := range planned {
		res := GroupResult{Created: []map[string]any{}, Updated: []map[string]any{}, Deleted: []map[string]any{}, DeletedIDs: []any{}}

		for _, id := range pg.deletes {
			cid, err := records.ParseID(pg.child, fmt.Sprintf("%v", id))
			if err != nil {
				return nil, err
			}
			snapshot, err := records.Get(ctx, tx, pg.child, cid)
			if err != nil {
				return nil, err
			}
			if err := records.Delete(ctx, tx, pg.child, cid); err != nil {
				return nil, err
			}
			res.Deleted = append(res.Deleted, snapshot)
			res.DeletedIDs = append(res.DeletedIDs, cid)
		}

		ids := make([]string, 0, len(pg.updates))
		for id := range pg.updates {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			cid, err := records.ParseID(pg.child, id)
			if err != nil {
				return nil, err
			}
			rec, err := records.Update(ctx, tx, pg.child, cid, pg.updates[id])
			if err != nil {
				return nil, err
			}
			res.Updated = append(res.Updated, rec)
		}

		for _, clean := range pg.creates {
			rec, err := records.Insert(ctx, tx, pg.child, clean)
			if err != nil {
				return nil, err
			}
			res.Created = append(res.Created, rec)
		}

		results[pg.cfg.Model] = res
	}
	return results, nil
}

func findInline(parent *model.Model, name string) *model.InlineConfig {
	for _, cfg := range parent.Admin.Inlines {
		if cfg.Model == name {
			return cfg
		}
	}
	return nil
}

// relatedSet возвращает множество pk дочерних записей данного родителя.
func relatedSet(ctx context.Context, q db.Querier, child *model.Model, fkCol string, parentID any) (map[string]bool, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Column(child.PKColumn()).
		From(child.Table).
		Where(squirrel.Eq{fkCol: parentID})
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := map[string]bool{}
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set[fmt.Sprintf("%v", id)] = true
	}
	return set, rows.Err()
}

// inlineValidator собирает валидатор дочерней модели с учётом fields/exclude
// самого inline. fk-поле исключается всегда: его значение задаёт сервер.
func inlineValidator(child *model.Model, cfg *model.InlineConfig) *schema.Validator {
	fields := make([]string, 0, len(cfg.Fields))
	for _, fn := range cfg.Fields {
		if fn != cfg.FK {
			fields = append(fields, fn)
		}
	}
	admin := &model.AdminConfig{
		Fields:  fields,
		Exclude: append(append([]string{}, cfg.Exclude...), cfg.FK),
	}
	if child.Admin != nil {
		admin.ReadonlyFields = child.Admin.ReadonlyFields
	}
	return schema.BuildValidator(child, admin)
}
