package schema

import (
	"testing"

	"YadminAPI/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

// bookModel регистрирует и линкует модель книги для тестов форм.
func bookModel(t *testing.T) *model.Model {
	t.Helper()
	model.ResetRegistry()

	model.Registry["author"] = &model.Model{
		Name:    "author",
		Table:   "authors",
		Display: "{surname}",
		Fields: []*model.Field{
			{Name: "surname", Kind: model.KindString},
		},
	}
	model.Registry["book"] = &model.Model{
		Name:    "book",
		Table:   "books",
		Display: "{title}",
		Fields: []*model.Field{
			{Name: "title", Kind: model.KindString, MaxLength: 200},
			{Name: "slug", Kind: model.KindString, ReadOnly: true},
			{Name: "pages", Kind: model.KindInt, Null: true, MinValue: floatPtr(1)},
			{Name: "price", Kind: model.KindFloat, Null: true, MaxValue: floatPtr(10000)},
			{Name: "genre", Kind: model.KindChoice, Default: "fiction", Choices: []model.Choice{
				{Value: "fiction", Label: "Fiction"},
				{Value: "poetry", Label: "Poetry"},
			}},
			{Name: "in_print", Kind: model.KindBool, Default: true},
			{Name: "published_on", Kind: model.KindDate, Null: true},
			{Name: "editor", Kind: model.KindFK, Model: "author", Null: true},
			{Name: "authors", Kind: model.KindM2M, Model: "author", Through: "book_authors"},
		},
	}

	if err := model.LinkModels(); err != nil {
		t.Fatalf("LinkModels failed: %v", err)
	}
	return model.Registry["book"]
}
