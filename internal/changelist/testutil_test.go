package changelist

import (
	"testing"

	"YadminAPI/internal/model"
)

// bookRegistry собирает минимальный связанный реестр для тестов пакета.
// Запросы к базе здесь не выполняются: проверяется построение SQL.
func bookRegistry(t *testing.T) *model.Model {
	t.Helper()
	model.ResetRegistry()

	model.Registry["publisher"] = &model.Model{
		Name:    "publisher",
		Table:   "publishers",
		Display: "{name}",
		Fields: []*model.Field{
			{Name: "name", Kind: model.KindString, Unique: true},
		},
	}
	model.Registry["author"] = &model.Model{
		Name:           "author",
		Table:          "authors",
		Display:        "{surname}",
		UniqueTogether: [][]string{{"surname", "name"}},
		Fields: []*model.Field{
			{Name: "name", Kind: model.KindString},
			{Name: "surname", Kind: model.KindString},
		},
	}
	model.Registry["book"] = &model.Model{
		Name:     "book",
		Table:    "books",
		Display:  "{title}",
		Ordering: []string{"-published_on", "title"},
		Fields: []*model.Field{
			{Name: "title", Kind: model.KindString},
			{Name: "pages", Kind: model.KindInt, Null: true},
			{Name: "genre", Kind: model.KindChoice, Choices: []model.Choice{
				{Value: "fiction", Label: "Fiction"},
				{Value: "poetry", Label: "Poetry"},
			}},
			{Name: "in_print", Kind: model.KindBool, Default: true},
			{Name: "published_on", Kind: model.KindDate, Null: true},
			{Name: "publisher", Kind: model.KindFK, Model: "publisher", Null: true},
			{Name: "authors", Kind: model.KindM2M, Model: "author", Through: "book_authors"},
		},
		Admin: &model.AdminConfig{
			ListDisplay:  []string{"title", "genre", "publisher"},
			SearchFields: []string{"^title", "authors__surname"},
		},
	}

	if err := model.LinkModels(); err != nil {
		t.Fatalf("LinkModels failed: %v", err)
	}
	return model.Registry["book"]
}
