package model

import (
	"fmt"
	"strings"
)

// CheckRegistry валидирует админ-конфигурацию против объявленных полей.
// Аналог django-checks: каждая ссылка из list_display/list_filter/search_fields
// и т.п. должна существовать, иначе описательная ошибка при старте.
func CheckRegistry() error {
	for name, m := range Registry {
		if err := checkModel(name, m); err != nil {
			return err
		}
	}
	return nil
}

func checkModel(name string, m *Model) error {
	if m.Table == "" {
		return fmt.Errorf("model '%s': table is required", name)
	}

	for _, f := range m.Fields {
		if f.Kind == "" {
			return fmt.Errorf("model '%s': field '%s' has no kind", name, f.Name)
		}
		if f.IsRelation() && f.Model == "" {
			return fmt.Errorf("model '%s': relational field '%s' has no target model", name, f.Name)
		}
		if f.Kind == KindChoice && len(f.Choices) == 0 {
			return fmt.Errorf("model '%s': choice field '%s' has no choices", name, f.Name)
		}
	}

	for _, group := range m.UniqueTogether {
		for _, fn := range group {
			if m.GetField(fn) == nil {
				return fmt.Errorf("model '%s': unique_together references unknown field '%s'", name, fn)
			}
		}
	}

	for _, fn := range m.Ordering {
		if m.GetField(strings.TrimPrefix(fn, "-")) == nil {
			return fmt.Errorf("model '%s': ordering references unknown field '%s'", name, fn)
		}
	}

	if m.Admin == nil {
		return nil
	}
	a := m.Admin

	for _, col := range a.ListDisplay {
		if col == "__str__" {
			continue
		}
		f := m.GetField(col)
		if f == nil {
			return fmt.Errorf("model '%s': list_display references unknown field '%s'", name, col)
		}
		if f.Kind == KindM2M {
			return fmt.Errorf("model '%s': list_display does not support m2m field '%s'", name, col)
		}
	}
	for _, col := range a.ListDisplayLinks {
		if !contains(a.ListDisplay, col) {
			return fmt.Errorf("model '%s': list_display_links entry '%s' is not in list_display", name, col)
		}
	}

	for _, decl := range a.ListFilter {
		if decl.Kind == "custom" {
			if decl.Name == "" {
				return fmt.Errorf("model '%s': custom list_filter entry needs a name", name)
			}
			continue
		}
		f := m.GetField(decl.Field)
		if f == nil {
			return fmt.Errorf("model '%s': list_filter references unknown field '%s'", name, decl.Field)
		}
		if err := checkFilterKind(name, f, decl.Kind); err != nil {
			return err
		}
	}

	for _, sf := range a.SearchFields {
		path := strings.TrimLeft(sf, "^=@")
		if path == "" {
			return fmt.Errorf("model '%s': empty search_fields entry", name)
		}
		if _, err := m.ResolveLookup(path); err != nil {
			return fmt.Errorf("model '%s': search_fields entry '%s': %w", name, sf, err)
		}
	}

	for _, fn := range a.SortableBy {
		f := m.GetField(fn)
		if f == nil {
			return fmt.Errorf("model '%s': sortable_by references unknown field '%s'", name, fn)
		}
		if !f.Concrete() {
			return fmt.Errorf("model '%s': sortable_by field '%s' has no column", name, fn)
		}
	}
	for _, fn := range a.Ordering {
		bare := strings.TrimPrefix(fn, "-")
		if bare != "pk" && m.GetField(bare) == nil {
			return fmt.Errorf("model '%s': admin ordering references unknown field '%s'", name, fn)
		}
	}

	for _, fn := range a.ListEditable {
		f := m.GetField(fn)
		if f == nil {
			return fmt.Errorf("model '%s': list_editable references unknown field '%s'", name, fn)
		}
		if f.ReadOnly || fn == m.PKName() {
			return fmt.Errorf("model '%s': list_editable field '%s' is not editable", name, fn)
		}
		if !contains(a.ListDisplay, fn) {
			return fmt.Errorf("model '%s': list_editable field '%s' is not in list_display", name, fn)
		}
		if contains(a.ListDisplayLinks, fn) {
			return fmt.Errorf("model '%s': field '%s' cannot be both in list_editable and list_display_links", name, fn)
		}
	}

	for _, fn := range append(append([]string{}, a.Fields...), a.Exclude...) {
		if m.GetField(fn) == nil {
			return fmt.Errorf("model '%s': fields/exclude references unknown field '%s'", name, fn)
		}
	}
	for _, fn := range a.ReadonlyFields {
		if m.GetField(fn) == nil {
			return fmt.Errorf("model '%s': readonly_fields references unknown field '%s'", name, fn)
		}
	}

	if a.DateHierarchy != "" {
		f := m.GetField(a.DateHierarchy)
		if f == nil {
			return fmt.Errorf("model '%s': date_hierarchy references unknown field '%s'", name, a.DateHierarchy)
		}
		if f.Kind != KindDate && f.Kind != KindDateTime {
			return fmt.Errorf("model '%s': date_hierarchy field '%s' must be a date or datetime", name, a.DateHierarchy)
		}
	}

	for _, inline := range a.Inlines {
		child := inline.childRef
		if child == nil {
			return fmt.Errorf("model '%s': inline '%s' is not linked", name, inline.Model)
		}
		fkField := child.GetField(inline.FK)
		if fkField == nil {
			return fmt.Errorf("model '%s': inline '%s' fk field '%s' not found on child", name, inline.Model, inline.FK)
		}
		if fkField.Kind != KindFK {
			return fmt.Errorf("model '%s': inline '%s' field '%s' is not a fk", name, inline.Model, inline.FK)
		}
		if fkField.Model != name {
			return fmt.Errorf("model '%s': inline '%s' fk '%s' points at '%s', not at the parent", name, inline.Model, inline.FK, fkField.Model)
		}
		for _, fn := range append(append([]string{}, inline.Fields...), inline.Exclude...) {
			if child.GetField(fn) == nil {
				return fmt.Errorf("model '%s': inline '%s' references unknown field '%s'", name, inline.Model, fn)
			}
		}
		if inline.MaxNum > 0 && inline.MinNum > inline.MaxNum {
			return fmt.Errorf("model '%s': inline '%s' min_num exceeds max_num", name, inline.Model)
		}
	}

	return nil
}

// checkFilterKind отсекает бессмысленные комбинации (boolean-фильтр на строке и т.п.).
func checkFilterKind(modelName string, f *Field, kind string) error {
	switch kind {
	case "":
		return nil // kind подбирается по типу поля
	case "boolean":
		if f.Kind != KindBool {
			return fmt.Errorf("model '%s': boolean filter on non-bool field '%s'", modelName, f.Name)
		}
	case "choice":
		if f.Kind != KindChoice {
			return fmt.Errorf("model '%s': choice filter on field '%s' without choices", modelName, f.Name)
		}
	case "date":
		if f.Kind != KindDate && f.Kind != KindDateTime {
			return fmt.Errorf("model '%s': date filter on non-date field '%s'", modelName, f.Name)
		}
	case "related", "related_only":
		if !f.IsRelation() {
			return fmt.Errorf("model '%s': related filter on non-relational field '%s'", modelName, f.Name)
		}
	case "allvalues", "empty":
		if f.IsRelation() {
			return fmt.Errorf("model '%s': %s filter on relational field '%s'", modelName, kind, f.Name)
		}
	default:
		return fmt.Errorf("model '%s': unknown filter kind '%s' for field '%s'", modelName, kind, f.Name)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
