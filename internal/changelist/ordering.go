package changelist

import (
	"fmt"
	"strconv"
	"strings"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/model"
)

// OrderTerm — один член итоговой сортировки.
type OrderTerm struct {
	Field *model.Field
	Desc  bool
}

func (t OrderTerm) SQL() string {
	dir := "ASC"
	if t.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("main.%s %s", t.Field.ColumnName(), dir)
}

func (t OrderTerm) Name() string {
	if t.Desc {
		return "-" + t.Field.Name
	}
	return t.Field.Name
}

// ResolveOrdering вычисляет сортировку: явный параметр "o" (индексы колонок
// list_display со знаком, через точку) перекрывает admin ordering, который
// перекрывает model ordering.
func ResolveOrdering(m *model.Model, admin *model.AdminConfig, oParam string) ([]OrderTerm, error) {
	if oParam != "" {
		return orderingFromParam(m, admin, oParam)
	}
	terms := make([]OrderTerm, 0, len(m.DefaultOrdering()))
	for _, name := range m.DefaultOrdering() {
		desc := strings.HasPrefix(name, "-")
		f := m.GetField(strings.TrimPrefix(name, "-"))
		if f == nil || !f.Concrete() {
			continue
		}
		terms = append(terms, OrderTerm{Field: f, Desc: desc})
	}
	return terms, nil
}

// orderingFromParam: "0.-2" -> первая колонка ASC, третья DESC.
func orderingFromParam(m *model.Model, admin *model.AdminConfig, oParam string) ([]OrderTerm, error) {
	var terms []OrderTerm
	for _, part := range strings.Split(oParam, ".") {
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		idx, err := strconv.Atoi(strings.TrimPrefix(part, "-"))
		if err != nil || idx < 0 || idx >= len(admin.ListDisplay) {
			return nil, fmt.Errorf("%w: invalid ordering index %q", adminerrs.ErrIncorrectLookupParams, part)
		}
		col := admin.ListDisplay[idx]
		f := m.GetField(col)
		if f == nil || !f.Concrete() {
			return nil, fmt.Errorf("%w: column %q is not sortable", adminerrs.ErrIncorrectLookupParams, col)
		}
		if len(admin.SortableBy) > 0 && !containsStr(admin.SortableBy, f.Name) {
			return nil, fmt.Errorf("%w: column %q is not sortable", adminerrs.ErrIncorrectLookupParams, col)
		}
		terms = append(terms, OrderTerm{Field: f, Desc: desc})
	}
	return terms, nil
}

// EnsureDeterministic гарантирует стабильный порядок строк: если собранная
// сортировка не закрепляет уникальное non-null поле (или полностью покрытый
// non-null unique_together набор), добавляется тай-брейк по pk DESC.
func EnsureDeterministic(m *model.Model, terms []OrderTerm) []OrderTerm {
	present := map[string]bool{}
	for _, t := range terms {
		present[t.Field.Name] = true
		if t.Field.Unique && !t.Field.Null {
			return terms
		}
	}

	for _, group := range m.UniqueTogether {
		covered := true
		for _, fn := range group {
			f := m.GetField(fn)
			if f == nil || f.Null || !present[f.Name] {
				covered = false
				break
			}
		}
		if covered && len(group) > 0 {
			return terms
		}
	}

	pk := m.GetField(m.PKName())
	return append(terms, OrderTerm{Field: pk, Desc: true})
}

func containsStr(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
