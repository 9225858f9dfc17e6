package schema

import (
	"time"

	"YadminAPI/internal/model"
)

// FormFieldDescriptor — клиентское описание одного поля формы: тип,
// ограничения и (для change-формы) текущее значение.
type FormFieldDescriptor struct {
	Name         string               `json:"name"`
	Kind         string               `json:"type"`
	Label        string               `json:"label"`
	Required     bool                 `json:"required"`
	ReadOnly     bool                 `json:"read_only"`
	Nullable     bool                 `json:"nullable"`
	PrimaryKey   bool                 `json:"primary_key,omitempty"`
	HelpText     string               `json:"help_text,omitempty"`
	MaxLength    int                  `json:"max_length,omitempty"`
	MinLength    int                  `json:"min_length,omitempty"`
	MinValue     *float64             `json:"min_value,omitempty"`
	MaxValue     *float64             `json:"max_value,omitempty"`
	Choices      []model.Choice       `json:"choices,omitempty"`
	InputFormats []string             `json:"input_formats,omitempty"`
	RelatedModel string               `json:"related_model,omitempty"`
	Child        *FormFieldDescriptor `json:"child,omitempty"`
	CurrentValue any                  `json:"current_value,omitempty"`
}

// Дефолтные форматы ввода (ISO-8601-совместимые, Go reference layout).
var (
	defaultDateFormats     = []string{"2006-01-02"}
	defaultDateTimeFormats = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	defaultTimeFormats     = []string{"15:04:05", "15:04"}
)

// IncludedFields вычисляет состав формы: явный admin fields-список,
// либо все поля минус exclude минус readonly. Первичный ключ сюда не входит —
// Project добавляет его отдельным нередактируемым дескриптором.
func IncludedFields(m *model.Model, admin *model.AdminConfig) []*model.Field {
	readonly := map[string]bool{}
	var explicit, exclude []string
	if admin != nil {
		explicit = admin.Fields
		exclude = admin.Exclude
		for _, fn := range admin.ReadonlyFields {
			readonly[fn] = true
		}
	}

	if len(explicit) > 0 {
		out := make([]*model.Field, 0, len(explicit))
		for _, fn := range explicit {
			if f := m.GetField(fn); f != nil && fn != m.PKName() {
				out = append(out, f)
			}
		}
		return out
	}

	out := make([]*model.Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == m.PKName() || f.ReadOnly || readonly[f.Name] {
			continue
		}
		if contains(exclude, f.Name) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Project строит дескрипторы формы для модели. Если record != nil (change-форма),
// каждый дескриптор несёт current_value; fk-значения — идентификаторы, не объекты.
func Project(m *model.Model, admin *model.AdminConfig, record map[string]any) []FormFieldDescriptor {
	fields := IncludedFields(m, admin)
	out := make([]FormFieldDescriptor, 0, len(fields)+1)
	for _, f := range fields {
		d := describeField(f)
		if record != nil {
			d.CurrentValue = record[f.Name]
		}
		out = append(out, d)
	}

	// Первичный ключ всегда присутствует, но нередактируем.
	pk := m.GetField(m.PKName())
	pkDesc := describeField(pk)
	pkDesc.ReadOnly = true
	pkDesc.Required = false
	pkDesc.PrimaryKey = true
	if record != nil {
		pkDesc.CurrentValue = record[m.PKName()]
	}
	out = append(out, pkDesc)
	return out
}

func describeField(f *model.Field) FormFieldDescriptor {
	kind := f.Kind
	if f.FormKind != "" {
		// override: кастомный вид для конкретного типа хранения
		kind = f.FormKind
	}
	d := FormFieldDescriptor{
		Name:     f.Name,
		Kind:     kind,
		Label:    f.VerboseLabel(),
		Required: isRequired(f),
		ReadOnly: f.ReadOnly,
		Nullable: f.Null,
		HelpText: f.HelpText,
	}

	switch f.Kind {
	case model.KindString, model.KindText, model.KindFile:
		d.MaxLength = f.MaxLength
		d.MinLength = f.MinLength
	case model.KindInt, model.KindFloat, model.KindDuration:
		d.MinValue = f.MinValue
		d.MaxValue = f.MaxValue
	case model.KindChoice:
		d.Choices = f.Choices
	case model.KindDate:
		d.InputFormats = inputFormats(f, defaultDateFormats)
	case model.KindDateTime:
		d.InputFormats = inputFormats(f, defaultDateTimeFormats)
	case model.KindTime:
		d.InputFormats = inputFormats(f, defaultTimeFormats)
	case model.KindJSON:
		if f.Child != nil {
			child := describeField(f.Child)
			d.Child = &child
		}
		// без объявленного child дескриптор несёт пустой child
	case model.KindFK:
		d.RelatedModel = f.Model
	case model.KindM2M:
		d.RelatedModel = f.Model
		target := f.RelRef()
		if target != nil {
			child := describeField(target.GetField(target.PKName()))
			child.Name = f.Name
			d.Child = &child
		}
	}
	return d
}

func inputFormats(f *model.Field, defaults []string) []string {
	if len(f.InputFormats) > 0 {
		return f.InputFormats
	}
	return defaults
}

func isRequired(f *model.Field) bool {
	if f.ReadOnly || f.Null || f.Blank || f.Default != nil {
		return false
	}
	return f.Kind != model.KindM2M
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
