package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/model"
)

// Validator проверяет и приводит входные данные записи к типам полей.
// Строится один раз на (модель, админ-конфигурация); безопасен для
// конкурентного использования.
type Validator struct {
	Model    *model.Model
	writable []*model.Field
	readonly map[string]bool
}

// BuildValidator собирает валидатор из списка полей и админ-конфигурации.
// Поля из readonly-набора помечаются как незаписываемые, даже если сами по
// себе были бы редактируемыми.
func BuildValidator(m *model.Model, admin *model.AdminConfig) *Validator {
	v := &Validator{
		Model:    m,
		writable: IncludedFields(m, admin),
		readonly: map[string]bool{m.PKName(): true},
	}
	if admin != nil {
		for _, fn := range admin.ReadonlyFields {
			v.readonly[fn] = true
		}
	}
	for _, f := range m.Fields {
		if f.ReadOnly {
			v.readonly[f.Name] = true
		}
	}
	return v
}

// Writable возвращает записываемые поля в порядке объявления.
func (v *Validator) Writable() []*model.Field { return v.writable }

// Validate проверяет data и возвращает приведённую map поле -> значение.
// partial=true (PATCH) не требует отсутствующие поля. Ошибки агрегируются
// по всем полям, а не обрываются на первом.
func (v *Validator) Validate(data map[string]any, partial bool) (map[string]any, *adminerrs.ValidationError) {
	verr := adminerrs.NewValidationError()
	clean := make(map[string]any, len(data))

	known := map[string]bool{}
	for _, f := range v.writable {
		known[f.Name] = true
	}
	for name := range data {
		if v.readonly[name] {
			verr.Add(name, "field is read-only")
			continue
		}
		if !known[name] {
			verr.Add(name, "unknown field")
		}
	}

	for _, f := range v.writable {
		raw, present := data[f.Name]
		if !present {
			if partial {
				continue
			}
			if f.Default != nil {
				clean[f.Name] = f.Default
				continue
			}
			if isRequired(f) {
				verr.Add(f.Name, "field is required")
			}
			continue
		}
		val, err := cleanValue(f, raw)
		if err != "" {
			verr.Add(f.Name, err)
			continue
		}
		clean[f.Name] = val
	}

	if verr.Empty() {
		return clean, nil
	}
	return nil, verr
}

// cleanValue приводит одно значение; возвращает текст ошибки или "".
func cleanValue(f *model.Field, raw any) (any, string) {
	if raw == nil {
		if f.Null {
			return nil, ""
		}
		return nil, "field may not be null"
	}

	switch f.Kind {
	case model.KindString, model.KindText, model.KindFile:
		s, ok := raw.(string)
		if !ok {
			return nil, "expected a string"
		}
		if s == "" && !f.Blank {
			return nil, "field may not be blank"
		}
		if f.MaxLength > 0 && len([]rune(s)) > f.MaxLength {
			return nil, fmt.Sprintf("longer than %d characters", f.MaxLength)
		}
		if f.MinLength > 0 && len([]rune(s)) < f.MinLength {
			return nil, fmt.Sprintf("shorter than %d characters", f.MinLength)
		}
		return s, ""

	case model.KindInt:
		n, ok := toInt64(raw)
		if !ok {
			return nil, "expected an integer"
		}
		if f.MinValue != nil && float64(n) < *f.MinValue {
			return nil, fmt.Sprintf("must be >= %v", *f.MinValue)
		}
		if f.MaxValue != nil && float64(n) > *f.MaxValue {
			return nil, fmt.Sprintf("must be <= %v", *f.MaxValue)
		}
		return n, ""

	case model.KindFloat:
		x, ok := toFloat64(raw)
		if !ok {
			return nil, "expected a number"
		}
		if f.MinValue != nil && x < *f.MinValue {
			return nil, fmt.Sprintf("must be >= %v", *f.MinValue)
		}
		if f.MaxValue != nil && x > *f.MaxValue {
			return nil, fmt.Sprintf("must be <= %v", *f.MaxValue)
		}
		return x, ""

	case model.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, "expected a boolean"
		}
		return b, ""

	case model.KindDate:
		return parseTemporal(f, raw, defaultDateFormats)
	case model.KindDateTime:
		return parseTemporal(f, raw, defaultDateTimeFormats)
	case model.KindTime:
		return parseTemporal(f, raw, defaultTimeFormats)

	case model.KindDuration:
		switch d := raw.(type) {
		case string:
			dur, err := time.ParseDuration(d)
			if err != nil {
				return nil, "invalid duration"
			}
			return dur, ""
		default:
			if n, ok := toFloat64(raw); ok {
				return time.Duration(n * float64(time.Second)), ""
			}
			return nil, "invalid duration"
		}

	case model.KindChoice:
		if _, ok := f.ChoiceLabel(raw); !ok {
			return nil, fmt.Sprintf("%v is not a valid choice", raw)
		}
		return raw, ""

	case model.KindJSON:
		return raw, ""

	case model.KindFK:
		return cleanIdentifier(raw)

	case model.KindM2M:
		list, ok := raw.([]any)
		if !ok {
			return nil, "expected a list of identifiers"
		}
		out := make([]any, 0, len(list))
		for _, item := range list {
			id, err := cleanIdentifier(item)
			if err != "" {
				return nil, err
			}
			out = append(out, id)
		}
		return out, ""
	}
	return raw, ""
}

func parseTemporal(f *model.Field, raw any, defaults []string) (any, string) {
	if t, ok := raw.(time.Time); ok {
		return t, ""
	}
	s, ok := raw.(string)
	if !ok {
		return nil, "expected a date/time string"
	}
	formats := f.InputFormats
	if len(formats) == 0 {
		formats = defaults
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, ""
		}
	}
	return nil, fmt.Sprintf("does not match any accepted format (%s)", strings.Join(formats, ", "))
}

func cleanIdentifier(raw any) (any, string) {
	switch id := raw.(type) {
	case string:
		if id == "" {
			return nil, "empty identifier"
		}
		return id, ""
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return nil, "invalid identifier"
		}
		return n, ""
	case float64:
		return int64(id), ""
	case int:
		return int64(id), ""
	case int64:
		return id, ""
	default:
		return nil, "invalid identifier"
	}
}

func toInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		v, err := n.Int64()
		return v, err == nil
	case string:
		v, err := strconv.ParseInt(n, 10, 64)
		return v, err == nil
	default:
		return 0, false
	}
}

func toFloat64(raw any) (float64, bool) {
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		v, err := n.Float64()
		return v, err == nil
	case string:
		v, err := strconv.ParseFloat(n, 64)
		return v, err == nil
	default:
		return 0, false
	}
}
