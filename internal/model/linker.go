package model

import (
	"fmt"
	"unicode"
)

// LinkModels разрешает ссылки между моделями, назначает значения по умолчанию
// и синтезирует неявное pk-поле там, где оно не объявлено.
func LinkModels() error {
	for modelName, m := range Registry {
		if err := linkModel(modelName, m); err != nil {
			return err
		}
	}
	return nil
}

func linkModel(modelName string, m *Model) error {
	// Неявный первичный ключ: целочисленный, read-only.
	if m.GetField(m.PKName()) == nil {
		pk := &Field{Name: m.PKName(), Kind: KindInt, Unique: true, ReadOnly: true, implicit: true}
		m.Fields = append([]*Field{pk}, m.Fields...)
	}

	m.fieldsByName = make(map[string]*Field, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == "" {
			return fmt.Errorf("model '%s': field without a name", modelName)
		}
		if _, dup := m.fieldsByName[f.Name]; dup {
			return fmt.Errorf("model '%s': duplicate field '%s'", modelName, f.Name)
		}
		m.fieldsByName[f.Name] = f
	}

	for _, f := range m.Fields {
		if !f.IsRelation() {
			continue
		}
		target, ok := Registry[f.Model]
		if !ok {
			return fmt.Errorf("model '%s': field '%s' references unknown model '%s'",
				modelName, f.Name, f.Model)
		}
		f.relRef = target

		if f.Kind == KindM2M {
			// Дефолты для through-таблицы в стиле join-таблиц:
			// authors_publishers(author_id, publisher_id)
			if f.Through == "" {
				f.Through = m.Table + "_" + target.Table
			}
			if f.NearFK == "" {
				f.NearFK = toSnakeCase(modelName) + "_id"
			}
			if f.FarFK == "" {
				f.FarFK = toSnakeCase(f.Model) + "_id"
			}
		}
	}

	for relName, rel := range m.Relations {
		if rel.Type == "" {
			rel.Type = "has_many"
		}
		if rel.Type != "has_many" {
			return fmt.Errorf("relation '%s.%s' must have type has_many, got '%s'",
				modelName, relName, rel.Type)
		}
		child, ok := Registry[rel.Model]
		if !ok {
			return fmt.Errorf("invalid relation: model '%s' not found in '%s.%s'",
				rel.Model, modelName, relName)
		}
		rel.relRef = child
		// FK находится в дочерней модели и указывает на текущую
		if rel.FK == "" {
			rel.FK = toSnakeCase(modelName)
		}
		fkField := child.GetField(rel.FK)
		if fkField == nil {
			return fmt.Errorf("relation '%s.%s': fk field '%s' not found on model '%s'",
				modelName, relName, rel.FK, rel.Model)
		}
		if fkField.Kind != KindFK || fkField.Model != modelName {
			return fmt.Errorf("relation '%s.%s': field '%s.%s' is not a fk to '%s'",
				modelName, relName, rel.Model, rel.FK, modelName)
		}
	}

	if m.Admin == nil {
		m.Admin = &AdminConfig{}
	}
	applyAdminDefaults(m.Admin)
	for _, inline := range m.Admin.Inlines {
		child, ok := Registry[inline.Model]
		if !ok {
			return fmt.Errorf("model '%s': inline references unknown model '%s'",
				modelName, inline.Model)
		}
		inline.childRef = child
		if inline.Label == "" {
			inline.Label = Humanize(inline.Model)
		}
	}
	return nil
}

func applyAdminDefaults(a *AdminConfig) {
	if len(a.ListDisplay) == 0 {
		a.ListDisplay = []string{"__str__"}
	}
	if len(a.ListDisplayLinks) == 0 {
		a.ListDisplayLinks = []string{a.ListDisplay[0]}
	}
	if a.ListPerPage == 0 {
		a.ListPerPage = 100
	}
	if a.ListMaxShowAll == 0 {
		a.ListMaxShowAll = 200
	}
	if a.EmptyValueDisplay == "" {
		a.EmptyValueDisplay = "-"
	}
	if len(a.Actions) == 0 {
		a.Actions = []string{"delete_selected"}
	}
}

func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}
