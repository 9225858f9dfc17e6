package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"YadminAPI/internal/model"
)

func fieldNames(fields []*model.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

func descByName(t *testing.T, descs []FormFieldDescriptor, name string) FormFieldDescriptor {
	t.Helper()
	for _, d := range descs {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("descriptor %q not found", name)
	return FormFieldDescriptor{}
}

// Без явного fields-списка: все поля минус pk, readonly и exclude.
func TestIncludedFieldsDefault(t *testing.T) {
	m := bookModel(t)
	got := fieldNames(IncludedFields(m, &model.AdminConfig{Exclude: []string{"price"}}))
	want := []string{"title", "pages", "genre", "in_print", "published_on", "editor", "authors"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

// Явный fields-список берётся как есть (кроме pk), порядок сохраняется.
func TestIncludedFieldsExplicit(t *testing.T) {
	m := bookModel(t)
	admin := &model.AdminConfig{Fields: []string{"genre", "title", "id"}}
	got := fieldNames(IncludedFields(m, admin))
	if diff := cmp.Diff([]string{"genre", "title"}, got); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectPKDescriptor(t *testing.T) {
	m := bookModel(t)
	descs := Project(m, nil, nil)
	pk := descs[len(descs)-1]
	if pk.Name != "id" || !pk.PrimaryKey || !pk.ReadOnly || pk.Required {
		t.Fatalf("pk descriptor malformed: %+v", pk)
	}
}

func TestProjectKindAttributes(t *testing.T) {
	m := bookModel(t)
	descs := Project(m, nil, nil)

	title := descByName(t, descs, "title")
	if title.MaxLength != 200 || !title.Required {
		t.Fatalf("title descriptor: %+v", title)
	}

	pages := descByName(t, descs, "pages")
	if pages.MinValue == nil || *pages.MinValue != 1 || !pages.Nullable || pages.Required {
		t.Fatalf("pages descriptor: %+v", pages)
	}

	genre := descByName(t, descs, "genre")
	if len(genre.Choices) != 2 || genre.Required {
		// default снимает required
		t.Fatalf("genre descriptor: %+v", genre)
	}

	published := descByName(t, descs, "published_on")
	if diff := cmp.Diff([]string{"2006-01-02"}, published.InputFormats); diff != "" {
		t.Fatalf("date formats (-want +got):\n%s", diff)
	}

	editor := descByName(t, descs, "editor")
	if editor.RelatedModel != "author" {
		t.Fatalf("editor descriptor: %+v", editor)
	}

	authors := descByName(t, descs, "authors")
	if authors.RelatedModel != "author" || authors.Required {
		t.Fatalf("authors descriptor: %+v", authors)
	}
	if authors.Child == nil || authors.Child.Name != "authors" {
		t.Fatalf("authors child descriptor: %+v", authors.Child)
	}
}

func TestProjectCurrentValues(t *testing.T) {
	m := bookModel(t)
	record := map[string]any{"id": int64(7), "title": "War and Peace", "editor": int64(3)}
	descs := Project(m, nil, record)

	if got := descByName(t, descs, "title").CurrentValue; got != "War and Peace" {
		t.Fatalf("title current_value = %v", got)
	}
	// fk отдаётся идентификатором, не объектом
	if got := descByName(t, descs, "editor").CurrentValue; got != int64(3) {
		t.Fatalf("editor current_value = %v", got)
	}
	if got := descByName(t, descs, "id").CurrentValue; got != int64(7) {
		t.Fatalf("pk current_value = %v", got)
	}
}
