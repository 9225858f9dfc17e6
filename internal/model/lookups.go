package model

import (
	"fmt"
	"strings"

	"YadminAPI/internal/adminerrs"
)

// Операторы, допустимые как последний сегмент "field__lookup" пути.
var lookupOps = map[string]bool{
	"exact":       true,
	"iexact":      true,
	"contains":    true,
	"icontains":   true,
	"startswith":  true,
	"istartswith": true,
	"endswith":    true,
	"iendswith":   true,
	"in":          true,
	"gt":          true,
	"gte":         true,
	"lt":          true,
	"lte":         true,
	"isnull":      true,
	"isempty":     true,
	"year":        true,
	"month":       true,
	"day":         true,
}

func IsLookupOp(op string) bool { return lookupOps[op] }

// Join — LEFT JOIN, необходимый для разрешённого пути.
type Join struct {
	Table string
	Alias string
	On    string
}

// LookupRef — результат разрешения пути "a__b__lookup" относительно модели:
// SQL-колонка, джойны и признак размножения строк (many-valued связь).
type LookupRef struct {
	Field            *Field // терминальное поле
	Column           string // "alias.column"
	Lookup           string // оператор, по умолчанию "exact"
	Joins            []Join
	RelationPath     string // "" для локальных полей
	SpawnsDuplicates bool
}

// ResolveLookup разрешает путь вида "name", "name__icontains",
// "publisher__name__icontains" относительно модели. Разрешён максимум один
// переход по связи: более глубокие пути отклоняются как disallowed,
// чтобы query string не превращался в произвольный обход графа моделей.
func (m *Model) ResolveLookup(path string) (*LookupRef, error) {
	segs := strings.Split(path, "__")
	lookup := "exact"
	if len(segs) > 1 && lookupOps[segs[len(segs)-1]] {
		lookup = segs[len(segs)-1]
		segs = segs[:len(segs)-1]
	}
	if len(segs) == 0 || segs[0] == "" {
		return nil, fmt.Errorf("%w: empty lookup path %q", adminerrs.ErrFieldDoesNotExist, path)
	}

	head, rest := segs[0], segs[1:]

	if f := m.GetField(head); f != nil {
		return m.resolveFieldLookup(path, f, rest, lookup)
	}
	if rel := m.GetRelation(head); rel != nil {
		return m.resolveReverseLookup(path, head, rel, rest, lookup)
	}
	return nil, fmt.Errorf("%w: '%s' on model '%s'", adminerrs.ErrFieldDoesNotExist, head, m.Name)
}

func (m *Model) resolveFieldLookup(path string, f *Field, rest []string, lookup string) (*LookupRef, error) {
	switch f.Kind {
	case KindFK:
		if len(rest) == 0 {
			// фильтр по самому fk: main.publisher_id = ?
			return &LookupRef{Field: f, Column: "main." + f.ColumnName(), Lookup: lookup}, nil
		}
		if len(rest) > 1 {
			return nil, fmt.Errorf("%w: multi-hop path %q", adminerrs.ErrDisallowedLookup, path)
		}
		target := f.relRef
		tf := target.GetField(rest[0])
		if tf == nil {
			return nil, fmt.Errorf("%w: '%s' on model '%s'", adminerrs.ErrFieldDoesNotExist, rest[0], target.Name)
		}
		if tf.IsRelation() {
			return nil, fmt.Errorf("%w: nested relation in %q", adminerrs.ErrDisallowedLookup, path)
		}
		alias := "rel_" + f.Name
		return &LookupRef{
			Field:        tf,
			Column:       alias + "." + tf.ColumnName(),
			Lookup:       lookup,
			RelationPath: f.Name,
			Joins: []Join{{
				Table: target.Table,
				Alias: alias,
				On:    fmt.Sprintf("%s.%s = main.%s", alias, target.PKColumn(), f.ColumnName()),
			}},
		}, nil

	case KindM2M:
		target := f.relRef
		thrAlias := "thr_" + f.Name
		joins := []Join{{
			Table: f.Through,
			Alias: thrAlias,
			On:    fmt.Sprintf("%s.%s = main.%s", thrAlias, f.NearFK, m.PKColumn()),
		}}
		if len(rest) == 0 {
			// фильтр по id связанной записи через through-таблицу
			return &LookupRef{
				Field:            f,
				Column:           thrAlias + "." + f.FarFK,
				Lookup:           lookup,
				RelationPath:     f.Name,
				Joins:            joins,
				SpawnsDuplicates: true,
			}, nil
		}
		if len(rest) > 1 {
			return nil, fmt.Errorf("%w: multi-hop path %q", adminerrs.ErrDisallowedLookup, path)
		}
		tf := target.GetField(rest[0])
		if tf == nil {
			return nil, fmt.Errorf("%w: '%s' on model '%s'", adminerrs.ErrFieldDoesNotExist, rest[0], target.Name)
		}
		if tf.IsRelation() {
			return nil, fmt.Errorf("%w: nested relation in %q", adminerrs.ErrDisallowedLookup, path)
		}
		relAlias := "rel_" + f.Name
		joins = append(joins, Join{
			Table: target.Table,
			Alias: relAlias,
			On:    fmt.Sprintf("%s.%s = %s.%s", relAlias, target.PKColumn(), thrAlias, f.FarFK),
		})
		return &LookupRef{
			Field:            tf,
			Column:           relAlias + "." + tf.ColumnName(),
			Lookup:           lookup,
			RelationPath:     f.Name,
			Joins:            joins,
			SpawnsDuplicates: true,
		}, nil

	default:
		if len(rest) > 0 {
			return nil, fmt.Errorf("%w: '%s' in path %q", adminerrs.ErrNotARelation, f.Name, path)
		}
		return &LookupRef{Field: f, Column: "main." + f.ColumnName(), Lookup: lookup}, nil
	}
}

func (m *Model) resolveReverseLookup(path, relName string, rel *Relation, rest []string, lookup string) (*LookupRef, error) {
	child := rel.relRef
	fkField := child.GetField(rel.FK)
	alias := "rev_" + relName
	joins := []Join{{
		Table: child.Table,
		Alias: alias,
		On:    fmt.Sprintf("%s.%s = main.%s", alias, fkField.ColumnName(), m.PKColumn()),
	}}
	if len(rest) == 0 {
		return &LookupRef{
			Field:            child.GetField(child.PKName()),
			Column:           alias + "." + child.PKColumn(),
			Lookup:           lookup,
			RelationPath:     relName,
			Joins:            joins,
			SpawnsDuplicates: true,
		}, nil
	}
	if len(rest) > 1 {
		return nil, fmt.Errorf("%w: multi-hop path %q", adminerrs.ErrDisallowedLookup, path)
	}
	tf := child.GetField(rest[0])
	if tf == nil {
		return nil, fmt.Errorf("%w: '%s' on model '%s'", adminerrs.ErrFieldDoesNotExist, rest[0], child.Name)
	}
	if tf.IsRelation() {
		return nil, fmt.Errorf("%w: nested relation in %q", adminerrs.ErrDisallowedLookup, path)
	}
	return &LookupRef{
		Field:            tf,
		Column:           alias + "." + tf.ColumnName(),
		Lookup:           lookup,
		RelationPath:     relName,
		Joins:            joins,
		SpawnsDuplicates: true,
	}, nil
}

// LookupSpawnsDuplicates: пересекает ли путь many-valued связь.
// Консервативно: любой has_many/m2m сегмент = true.
func (m *Model) LookupSpawnsDuplicates(path string) bool {
	ref, err := m.ResolveLookup(path)
	if err != nil {
		return false
	}
	return ref.SpawnsDuplicates
}
