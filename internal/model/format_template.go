package model

import (
	"fmt"
	"regexp"
	"strconv"
)

var templateRegexp = regexp.MustCompile(`\{([\w\.]+)(\[(\d+)(\.\.(\d+))?\])?\}`)

// FormatTemplate подставляет значения записи в display-шаблон.
// Плейсхолдер "{field}" берёт значение целиком, "{field}[0]" — один символ,
// "{field}[0..3]" — полуинтервал. Индексы считаются в рунах: "{name}[0]."
// на "Иван" даёт "И.", а не обрезанный байт UTF-8.
func FormatTemplate(template string, row map[string]any) string {
	return templateRegexp.ReplaceAllStringFunc(template, func(match string) string {
		parts := templateRegexp.FindStringSubmatch(match)
		key, from, to := parts[1], parts[3], parts[5]

		raw, ok := row[key]
		if !ok || raw == nil {
			return ""
		}
		val := stringify(raw)
		if from == "" {
			return val
		}

		runes := []rune(val)
		start, _ := strconv.Atoi(from)
		end := start + 1
		if to != "" {
			end, _ = strconv.Atoi(to)
		}
		if start >= len(runes) {
			return ""
		}
		if end > len(runes) {
			end = len(runes)
		}
		return string(runes[start:end])
	})
}

// Repr возвращает отображаемое имя записи: шаблон display либо "<Model: pk>".
func (m *Model) Repr(row map[string]any) string {
	if m.Display != "" {
		return FormatTemplate(m.Display, row)
	}
	return fmt.Sprintf("%s %v", Humanize(m.Name), row[m.PKName()])
}

// stringify сравнивает значения разных числовых/строковых типов как строки.
func stringify(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
