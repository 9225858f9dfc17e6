package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Разрешённые ключи для объектов
var allowedModelKeys = map[string]bool{
	"table":           true,
	"primary_key":     true,
	"display":         true,
	"ordering":        true,
	"unique_together": true,
	"fields":          true,
	"relations":       true,
	"admin":           true,
}

var allowedFieldKeys = map[string]bool{
	"name":             true,
	"kind":             true,
	"label":            true,
	"help_text":        true,
	"column":           true,
	"null":             true,
	"blank":            true,
	"unique":           true,
	"read_only":        true,
	"default":          true,
	"max_length":       true,
	"min_length":       true,
	"min_value":        true,
	"max_value":        true,
	"choices":          true,
	"input_formats":    true,
	"form_kind":        true,
	"model":            true,
	"through":          true,
	"near_fk":          true,
	"far_fk":           true,
	"limit_choices_to": true,
	"child":            true,
}

var allowedRelationKeys = map[string]bool{
	"type":  true,
	"model": true,
	"fk":    true,
}

var allowedAdminKeys = map[string]bool{
	"list_display":           true,
	"list_display_links":     true,
	"list_filter":            true,
	"search_fields":          true,
	"sortable_by":            true,
	"ordering":               true,
	"list_per_page":          true,
	"list_max_show_all":      true,
	"list_editable":          true,
	"fields":                 true,
	"exclude":                true,
	"readonly_fields":        true,
	"empty_value_display":    true,
	"date_hierarchy":         true,
	"show_full_result_count": true,
	"inlines":                true,
	"actions":                true,
}

var allowedInlineKeys = map[string]bool{
	"model":   true,
	"fk":      true,
	"fields":  true,
	"exclude": true,
	"min_num": true,
	"max_num": true,
	"label":   true,
}

var allowedFilterDeclKeys = map[string]bool{
	"field": true,
	"kind":  true,
	"name":  true,
}

// Разрешённые значения для kind в полях
var allowedFieldKindValues = map[string]bool{
	KindString:   true,
	KindText:     true,
	KindInt:      true,
	KindFloat:    true,
	KindBool:     true,
	KindDate:     true,
	KindDateTime: true,
	KindTime:     true,
	KindDuration: true,
	KindChoice:   true,
	KindJSON:     true,
	KindFile:     true,
	KindFK:       true,
	KindM2M:      true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "model"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "model":
			allowedKeys = allowedModelKeys
		case "field":
			allowedKeys = allowedFieldKeys
		case "relation":
			allowedKeys = allowedRelationKeys
		case "admin":
			allowedKeys = allowedAdminKeys
		case "inline":
			allowedKeys = allowedInlineKeys
		case "filter-decl":
			allowedKeys = allowedFilterDeclKeys
		default:
			allowedKeys = nil // свободная форма (choices, limit_choices_to, default)
		}

		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s", key, context)
			}

			// Проверка допустимых значений для kind в поле
			if context == "field" && key == "kind" {
				if !allowedFieldKindValues[valNode.Value] {
					return fmt.Errorf("unknown kind value '%s' in field", valNode.Value)
				}
			}

			// Определяем новый контекст
			nextContext := ""
			switch {
			case context == "model" && key == "fields":
				nextContext = "fields-seq"
			case context == "model" && key == "relations":
				nextContext = "relations-map"
			case context == "relations-map":
				nextContext = "relation"
			case context == "model" && key == "admin":
				nextContext = "admin"
			case context == "admin" && key == "inlines":
				nextContext = "inlines-seq"
			case context == "admin" && key == "list_filter":
				nextContext = "filters-seq"
			case context == "field" && key == "child":
				nextContext = "field"
			case context == "field" && (key == "choices" || key == "limit_choices_to" || key == "default"):
				nextContext = "free"
			default:
				nextContext = context
			}

			if err := validateYAMLNode(valNode, nextContext); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		itemContext := context
		switch context {
		case "fields-seq":
			itemContext = "field"
		case "inlines-seq":
			itemContext = "inline"
		case "filters-seq":
			itemContext = "filter-decl"
		}
		for _, item := range node.Content {
			if err := validateYAMLNode(item, itemContext); err != nil {
				return err
			}
		}

	case yaml.ScalarNode:
		// скаляры не валидируем на ключи — они уже проверяются при разборе MappingNode
	}

	return nil
}
