package changelist

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/model"
)

// QueryState аккумулирует JOIN-ы и условия по мере применения фильтров
// и поиска, и в конце собирает SELECT-ы с дедупликацией через semi-join.
type QueryState struct {
	Model *model.Model

	conds     []squirrel.Sqlizer
	joins     []model.Join
	seenJoins map[string]bool
	spawnsDup bool
}

func NewQueryState(m *model.Model) *QueryState {
	return &QueryState{Model: m, seenJoins: map[string]bool{}}
}

func (qs *QueryState) AddCond(c squirrel.Sqlizer) {
	qs.conds = append(qs.conds, c)
}

func (qs *QueryState) AddJoins(joins []model.Join) {
	for _, j := range joins {
		if qs.seenJoins[j.Alias] {
			continue
		}
		qs.seenJoins[j.Alias] = true
		qs.joins = append(qs.joins, j)
	}
}

// MarkDuplicates помечает, что применённый фильтр пересёк many-valued связь.
// Консервативно: снять пометку нельзя.
func (qs *QueryState) MarkDuplicates() { qs.spawnsDup = true }

func (qs *QueryState) SpawnsDuplicates() bool { return qs.spawnsDup }

// AddRef добавляет условие по уже разрешённому пути.
func (qs *QueryState) AddRef(ref *model.LookupRef, value any) error {
	cond, err := buildCondition(ref, value)
	if err != nil {
		return err
	}
	qs.AddJoins(ref.Joins)
	if ref.SpawnsDuplicates {
		qs.MarkDuplicates()
	}
	qs.AddCond(cond)
	return nil
}

// AddLookupParam разрешает "field__lookup=value" и добавляет условие.
func (qs *QueryState) AddLookupParam(key, raw string) error {
	ref, err := qs.Model.ResolveLookup(key)
	if err != nil {
		return err
	}
	return qs.AddRef(ref, PrepareLookupValue(key, raw))
}

// base собирает FROM + JOIN + WHERE (без колонок).
func (qs *QueryState) base() squirrel.SelectBuilder {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	sb = sb.From(fmt.Sprintf("%s AS main", qs.Model.Table))
	for _, j := range qs.joins {
		sb = sb.LeftJoin(fmt.Sprintf("%s AS %s ON %s", j.Table, j.Alias, j.On))
	}
	if len(qs.conds) > 0 {
		sb = sb.Where(squirrel.And(qs.conds))
	}
	return sb
}

// IDSelect: отфильтрованное множество первичных ключей.
func (qs *QueryState) IDSelect() squirrel.SelectBuilder {
	return qs.base().Column("main." + qs.Model.PKColumn())
}

// RowsSelect возвращает SELECT перечисленных колонок по отфильтрованному
// множеству. Если фильтры пересекали many-valued связь, строки сводятся к
// уникальным родителям через semi-join по id, а не через DISTINCT:
// DISTINCT некорректно сочетался бы с последующей сортировкой по джойнам.
func (qs *QueryState) RowsSelect(cols ...string) squirrel.SelectBuilder {
	if len(qs.joins) == 0 {
		return qs.base().Columns(cols...)
	}
	outer := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Columns(cols...).
		From(fmt.Sprintf("%s AS main", qs.Model.Table))
	pk := "main." + qs.Model.PKColumn()
	return outer.Where(squirrel.Expr(pk+" IN (?)", qs.IDSelect()))
}

// CountSelect считает уникальных родителей в отфильтрованном множестве.
func (qs *QueryState) CountSelect() squirrel.SelectBuilder {
	if len(qs.joins) == 0 {
		return qs.base().Column("COUNT(*)")
	}
	if qs.spawnsDup {
		return qs.base().Column(fmt.Sprintf("COUNT(DISTINCT main.%s)", qs.Model.PKColumn()))
	}
	return qs.base().Column("COUNT(*)")
}

// buildCondition строит squirrel-условие для разрешённого пути и значения.
// Значения приходят строками из query string и приводятся к типу поля.
func buildCondition(ref *model.LookupRef, value any) (squirrel.Sqlizer, error) {
	col := ref.Column
	f := ref.Field

	switch ref.Lookup {
	case "exact":
		v, err := coerce(f, value)
		if err != nil {
			return nil, err
		}
		return squirrel.Eq{col: v}, nil
	case "iexact":
		return squirrel.Expr("LOWER("+col+") = LOWER(?)", stringValue(value)), nil
	case "in":
		list, ok := value.([]string)
		if !ok {
			list = strings.Split(stringValue(value), ",")
		}
		vals := make([]any, 0, len(list))
		for _, item := range list {
			v, err := coerce(f, item)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return squirrel.Eq{col: vals}, nil
	case "contains":
		return squirrel.Like{col: "%" + escapeLike(stringValue(value)) + "%"}, nil
	case "icontains":
		return squirrel.ILike{col: "%" + escapeLike(stringValue(value)) + "%"}, nil
	case "startswith":
		return squirrel.Like{col: escapeLike(stringValue(value)) + "%"}, nil
	case "istartswith":
		return squirrel.ILike{col: escapeLike(stringValue(value)) + "%"}, nil
	case "endswith":
		return squirrel.Like{col: "%" + escapeLike(stringValue(value))}, nil
	case "iendswith":
		return squirrel.ILike{col: "%" + escapeLike(stringValue(value))}, nil
	case "gt", "gte", "lt", "lte":
		v, err := coerce(f, value)
		if err != nil {
			return nil, err
		}
		switch ref.Lookup {
		case "gt":
			return squirrel.Gt{col: v}, nil
		case "gte":
			return squirrel.GtOrEq{col: v}, nil
		case "lt":
			return squirrel.Lt{col: v}, nil
		default:
			return squirrel.LtOrEq{col: v}, nil
		}
	case "isnull":
		truthy, _ := value.(bool)
		if truthy {
			return squirrel.Expr(col + " IS NULL"), nil
		}
		return squirrel.Expr(col + " IS NOT NULL"), nil
	case "isempty":
		if truthyString(stringValue(value)) {
			return squirrel.Expr("(" + col + " IS NULL OR " + col + " = '')"), nil
		}
		return squirrel.Expr("(" + col + " IS NOT NULL AND " + col + " <> '')"), nil
	case "year", "month", "day":
		if f.Kind != model.KindDate && f.Kind != model.KindDateTime {
			return nil, fmt.Errorf("%w: %s lookup on non-date field '%s'",
				adminerrs.ErrIncorrectLookupParams, ref.Lookup, f.Name)
		}
		n, err := strconv.Atoi(stringValue(value))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s value %q",
				adminerrs.ErrIncorrectLookupParams, ref.Lookup, stringValue(value))
		}
		part := strings.ToUpper(ref.Lookup)
		return squirrel.Expr(fmt.Sprintf("EXTRACT(%s FROM %s) = ?", part, col), n), nil
	}
	return nil, fmt.Errorf("%w: unsupported lookup '%s'", adminerrs.ErrIncorrectLookupParams, ref.Lookup)
}

// coerce приводит строковое значение параметра к типу поля.
func coerce(f *model.Field, value any) (any, error) {
	s, isStr := value.(string)
	if !isStr {
		return value, nil
	}
	switch f.Kind {
	case model.KindInt, model.KindFK, model.KindM2M:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		// нечисловые первичные ключи (uuid и т.п.) остаются строками
		return s, nil
	case model.KindFloat:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q for field '%s'",
				adminerrs.ErrIncorrectLookupParams, s, f.Name)
		}
		return n, nil
	case model.KindBool:
		switch strings.ToLower(s) {
		case "1", "true", "yes":
			return true, nil
		case "0", "false", "no":
			return false, nil
		}
		return nil, fmt.Errorf("%w: invalid boolean %q for field '%s'",
			adminerrs.ErrIncorrectLookupParams, s, f.Name)
	case model.KindDate, model.KindDateTime:
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%w: invalid date %q for field '%s'",
			adminerrs.ErrIncorrectLookupParams, s, f.Name)
	default:
		return s, nil
	}
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func truthyString(s string) bool {
	switch strings.ToLower(s) {
	case "", "false", "0":
		return false
	default:
		return true
	}
}

// escapeLike экранирует спецсимволы LIKE в пользовательском вводе.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
