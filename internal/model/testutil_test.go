package model

import "testing"

// buildTestRegistry собирает связанный реестр publisher/author/book/chapter
// без YAML-файлов.
func buildTestRegistry(t *testing.T) {
	t.Helper()
	ResetRegistry()

	Registry["publisher"] = &Model{
		Name:    "publisher",
		Table:   "publishers",
		Display: "{name}",
		Fields: []*Field{
			{Name: "name", Kind: KindString, MaxLength: 120, Unique: true},
			{Name: "country", Kind: KindString, Null: true},
		},
		Relations: map[string]*Relation{
			"books": {Type: "has_many", Model: "book", FK: "publisher"},
		},
	}
	Registry["author"] = &Model{
		Name:           "author",
		Table:          "authors",
		Display:        "{surname} {name}[0].",
		Ordering:       []string{"surname", "name"},
		UniqueTogether: [][]string{{"surname", "name"}},
		Fields: []*Field{
			{Name: "name", Kind: KindString},
			{Name: "surname", Kind: KindString},
			{Name: "birth_date", Kind: KindDate, Null: true},
		},
	}
	Registry["book"] = &Model{
		Name:     "book",
		Table:    "books",
		Display:  "{title}",
		Ordering: []string{"-published_on", "title"},
		Fields: []*Field{
			{Name: "title", Kind: KindString, MaxLength: 200},
			{Name: "genre", Kind: KindChoice, Choices: []Choice{
				{Value: "fiction", Label: "Fiction"},
				{Value: "poetry", Label: "Poetry"},
			}},
			{Name: "in_print", Kind: KindBool, Default: true},
			{Name: "published_on", Kind: KindDate, Null: true},
			{Name: "publisher", Kind: KindFK, Model: "publisher", Null: true},
			{Name: "authors", Kind: KindM2M, Model: "author", Through: "book_authors"},
		},
		Relations: map[string]*Relation{
			"chapters": {Type: "has_many", Model: "chapter", FK: "book"},
		},
		Admin: &AdminConfig{
			ListDisplay:  []string{"title", "genre", "publisher"},
			SearchFields: []string{"^title", "authors__surname"},
			ListFilter: []FilterDecl{
				{Field: "genre"},
				{Field: "publisher", Kind: "related"},
			},
		},
	}
	Registry["chapter"] = &Model{
		Name:     "chapter",
		Table:    "chapters",
		Display:  "{title}",
		Ordering: []string{"number"},
		Fields: []*Field{
			{Name: "title", Kind: KindString},
			{Name: "number", Kind: KindInt},
			{Name: "book", Kind: KindFK, Model: "book"},
		},
	}

	if err := LinkModels(); err != nil {
		t.Fatalf("LinkModels failed: %v", err)
	}
}
