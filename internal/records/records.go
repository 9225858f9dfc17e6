package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/db"
	"YadminAPI/internal/model"
)

// Пакет records — тонкий слой доступа к строкам модели: выборка, вставка,
// обновление, удаление и m2m-наборы. Все функции принимают db.Querier,
// чтобы одинаково работать и на пуле, и внутри транзакции.

// Columns возвращает пары (SQL-колонки, имена полей) для конкретных полей модели.
func Columns(m *model.Model) (cols []string, names []string) {
	for _, f := range m.Fields {
		if !f.Concrete() {
			continue
		}
		cols = append(cols, f.ColumnName())
		names = append(names, f.Name)
	}
	return cols, names
}

// PrefixedColumns — то же, но с алиасом таблицы ("main.id", ...).
func PrefixedColumns(m *model.Model, alias string) (cols []string, names []string) {
	plain, names := Columns(m)
	cols = make([]string, len(plain))
	for i, c := range plain {
		cols[i] = alias + "." + c
	}
	return cols, names
}

// ParseID приводит идентификатор из URL к типу первичного ключа.
func ParseID(m *model.Model, raw string) (any, error) {
	pk := m.GetField(m.PKName())
	if pk != nil && pk.Kind == model.KindInt {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, adminerrs.NotFound(m.Name, raw)
		}
		return n, nil
	}
	return raw, nil
}

// Get загружает одну запись по pk в map, ключованную именами полей.
// m2m-поля загружаются списками идентификаторов.
func Get(ctx context.Context, q db.Querier, m *model.Model, id any) (map[string]any, error) {
	cols, names := Columns(m)
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Columns(cols...).
		From(m.Table).
		Where(squirrel.Eq{m.PKColumn(): id})
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, adminerrs.NotFound(m.Name, fmt.Sprintf("%v", id))
	}
	vals, err := rows.Values()
	if err != nil {
		return nil, err
	}
	rec := RowToMap(names, vals)
	rows.Close()

	for _, f := range m.Fields {
		if f.Kind != model.KindM2M {
			continue
		}
		ids, err := GetM2MIDs(ctx, q, f, id)
		if err != nil {
			return nil, err
		}
		rec[f.Name] = ids
	}
	return rec, nil
}

// RowToMap собирает map поле -> значение из порядкового результата.
func RowToMap(names []string, vals []any) map[string]any {
	n := len(vals)
	if len(names) < n {
		n = len(names)
	}
	row := make(map[string]any, n)
	for i := 0; i < n; i++ {
		row[names[i]] = vals[i]
	}
	return row
}

// Insert вставляет запись (конкретные поля из clean) и возвращает её
// перечитанной, включая дефолты БД. m2m-наборы пишутся через through-таблицы.
func Insert(ctx context.Context, q db.Querier, m *model.Model, clean map[string]any) (map[string]any, error) {
	ib := squirrel.InsertBuilder{}.PlaceholderFormat(squirrel.Dollar).Into(m.Table)
	var cols []string
	var vals []any
	for _, f := range m.Fields {
		if !f.Concrete() {
			continue
		}
		v, ok := clean[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, f.ColumnName())
		vals = append(vals, v)
	}
	ib = ib.Columns(cols...).Values(vals...).Suffix("RETURNING " + m.PKColumn())

	sqlStr, args, err := ib.ToSql()
	if err != nil {
		return nil, err
	}
	var id any
	if err := q.QueryRow(ctx, sqlStr, args...).Scan(&id); err != nil {
		return nil, err
	}

	for _, f := range m.Fields {
		if f.Kind != model.KindM2M {
			continue
		}
		if ids, ok := clean[f.Name].([]any); ok {
			if err := SetM2M(ctx, q, f, id, ids); err != nil {
				return nil, err
			}
		}
	}
	return Get(ctx, q, m, id)
}

// Update обновляет конкретные поля из clean и заменяет затронутые m2m-наборы.
func Update(ctx context.Context, q db.Querier, m *model.Model, id any, clean map[string]any) (map[string]any, error) {
	ub := squirrel.UpdateBuilder{}.PlaceholderFormat(squirrel.Dollar).Table(m.Table)
	touched := false
	for _, f := range m.Fields {
		if !f.Concrete() {
			continue
		}
		v, ok := clean[f.Name]
		if !ok {
			continue
		}
		ub = ub.Set(f.ColumnName(), v)
		touched = true
	}
	if touched {
		ub = ub.Where(squirrel.Eq{m.PKColumn(): id})
		sqlStr, args, err := ub.ToSql()
		if err != nil {
			return nil, err
		}
		tag, err := q.Exec(ctx, sqlStr, args...)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, adminerrs.NotFound(m.Name, fmt.Sprintf("%v", id))
		}
	}

	for _, f := range m.Fields {
		if f.Kind != model.KindM2M {
			continue
		}
		if ids, ok := clean[f.Name].([]any); ok {
			if err := SetM2M(ctx, q, f, id, ids); err != nil {
				return nil, err
			}
		}
	}
	return Get(ctx, q, m, id)
}

// Delete удаляет запись; связанные through-строки m2m подчищаются здесь же.
func Delete(ctx context.Context, q db.Querier, m *model.Model, id any) error {
	for _, f := range m.Fields {
		if f.Kind != model.KindM2M {
			continue
		}
		del := squirrel.DeleteBuilder{}.PlaceholderFormat(squirrel.Dollar).
			From(f.Through).
			Where(squirrel.Eq{f.NearFK: id})
		sqlStr, args, err := del.ToSql()
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, sqlStr, args...); err != nil {
			return err
		}
	}

	del := squirrel.DeleteBuilder{}.PlaceholderFormat(squirrel.Dollar).
		From(m.Table).
		Where(squirrel.Eq{m.PKColumn(): id})
	sqlStr, args, err := del.ToSql()
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return adminerrs.NotFound(m.Name, fmt.Sprintf("%v", id))
	}
	return nil
}

// GetM2MIDs возвращает идентификаторы связанных записей из through-таблицы.
func GetM2MIDs(ctx context.Context, q db.Querier, f *model.Field, id any) ([]any, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Column(f.FarFK).
		From(f.Through).
		Where(squirrel.Eq{f.NearFK: id}).
		OrderBy(f.FarFK)
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []any{}
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		ids = append(ids, v)
	}
	return ids, rows.Err()
}

// SetM2M заменяет through-набор на переданный список идентификаторов.
func SetM2M(ctx context.Context, q db.Querier, f *model.Field, id any, ids []any) error {
	del := squirrel.DeleteBuilder{}.PlaceholderFormat(squirrel.Dollar).
		From(f.Through).
		Where(squirrel.Eq{f.NearFK: id})
	sqlStr, args, err := del.ToSql()
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, sqlStr, args...); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	ib := squirrel.InsertBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Into(f.Through).
		Columns(f.NearFK, f.FarFK)
	for _, far := range ids {
		ib = ib.Values(id, far)
	}
	sqlStr, args, err = ib.ToSql()
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, sqlStr, args...)
	return err
}

// List возвращает страницу записей в дефолтном порядке модели плюс общий счётчик.
func List(ctx context.Context, q db.Querier, m *model.Model, limit, offset int) ([]map[string]any, int64, error) {
	countSB := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Column("COUNT(*)").
		From(m.Table)
	sqlStr, args, err := countSB.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := q.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	cols, names := Columns(m)
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Columns(cols...).
		From(m.Table).
		OrderBy(orderColumns(m)...).
		Limit(uint64(limit)).
		Offset(uint64(offset))
	sqlStr, args, err = sb.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, RowToMap(names, vals))
	}
	return out, total, rows.Err()
}

func orderColumns(m *model.Model) []string {
	terms := m.DefaultOrdering()
	if len(terms) == 0 {
		return []string{m.PKColumn() + " ASC"}
	}
	cols := make([]string, 0, len(terms))
	for _, t := range terms {
		dir := " ASC"
		name := t
		if strings.HasPrefix(t, "-") {
			dir = " DESC"
			name = t[1:]
		}
		f := m.GetField(name)
		if f == nil {
			continue
		}
		cols = append(cols, f.ColumnName()+dir)
	}
	if len(cols) == 0 {
		return []string{m.PKColumn() + " ASC"}
	}
	return cols
}

// FetchByIDs грузит записи по множеству pk в map id->record (field-keyed).
func FetchByIDs(ctx context.Context, q db.Querier, m *model.Model, ids []any) (map[string]map[string]any, error) {
	out := map[string]map[string]any{}
	if len(ids) == 0 {
		return out, nil
	}
	cols, names := Columns(m)
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Columns(cols...).
		From(m.Table).
		Where(squirrel.Eq{m.PKColumn(): ids})
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec := RowToMap(names, vals)
		out[fmt.Sprintf("%v", rec[m.PKName()])] = rec
	}
	return out, rows.Err()
}

// Exists сообщает, существует ли запись с данным pk.
func Exists(ctx context.Context, q db.Querier, m *model.Model, id any) (bool, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Column("1").
		From(m.Table).
		Where(squirrel.Eq{m.PKColumn(): id}).
		Limit(1)
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = q.QueryRow(ctx, sqlStr, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
