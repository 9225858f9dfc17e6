package changelist

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/model"
)

func termNames(terms []OrderTerm) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.Name())
	}
	return out
}

func TestResolveOrderingModelDefault(t *testing.T) {
	m := bookRegistry(t)
	terms, err := ResolveOrdering(m, m.Admin, "")
	if err != nil {
		t.Fatalf("ResolveOrdering failed: %v", err)
	}
	want := []string{"-published_on", "title"}
	if diff := cmp.Diff(want, termNames(terms)); diff != "" {
		t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveOrderingAdminOverridesModel(t *testing.T) {
	m := bookRegistry(t)
	m.Admin.Ordering = []string{"title"}
	terms, err := ResolveOrdering(m, m.Admin, "")
	if err != nil {
		t.Fatalf("ResolveOrdering failed: %v", err)
	}
	if diff := cmp.Diff([]string{"title"}, termNames(terms)); diff != "" {
		t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
	}
}

// "o" ссылается на колонки list_display по индексу, знак минус — DESC.
func TestResolveOrderingParam(t *testing.T) {
	m := bookRegistry(t)
	terms, err := ResolveOrdering(m, m.Admin, "0.-1")
	if err != nil {
		t.Fatalf("ResolveOrdering failed: %v", err)
	}
	if diff := cmp.Diff([]string{"title", "-genre"}, termNames(terms)); diff != "" {
		t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
	}
	if got := terms[1].SQL(); got != "main.genre DESC" {
		t.Fatalf("SQL() = %q", got)
	}
}

func TestResolveOrderingBadIndex(t *testing.T) {
	m := bookRegistry(t)
	for _, param := range []string{"9", "-9", "x", "0.x"} {
		_, err := ResolveOrdering(m, m.Admin, param)
		if !errors.Is(err, adminerrs.ErrIncorrectLookupParams) {
			t.Errorf("o=%q: want ErrIncorrectLookupParams, got %v", param, err)
		}
	}
}

func TestResolveOrderingSortableBy(t *testing.T) {
	m := bookRegistry(t)
	m.Admin.SortableBy = []string{"title"}
	if _, err := ResolveOrdering(m, m.Admin, "0"); err != nil {
		t.Fatalf("sortable column rejected: %v", err)
	}
	_, err := ResolveOrdering(m, m.Admin, "1")
	if !errors.Is(err, adminerrs.ErrIncorrectLookupParams) {
		t.Fatalf("non-sortable column accepted: %v", err)
	}
}

func TestEnsureDeterministicAppendsPK(t *testing.T) {
	m := bookRegistry(t)
	terms, _ := ResolveOrdering(m, m.Admin, "")
	terms = EnsureDeterministic(m, terms)
	names := termNames(terms)
	if names[len(names)-1] != "-id" {
		t.Fatalf("pk tie-break not appended: %v", names)
	}
}

func TestEnsureDeterministicUniqueField(t *testing.T) {
	bookRegistry(t)
	pub := model.Registry["publisher"]
	terms := []OrderTerm{{Field: pub.GetField("name")}}
	terms = EnsureDeterministic(pub, terms)
	if diff := cmp.Diff([]string{"name"}, termNames(terms)); diff != "" {
		t.Fatalf("unique ordering extended (-want +got):\n%s", diff)
	}
}

func TestEnsureDeterministicUniqueTogether(t *testing.T) {
	bookRegistry(t)
	au := model.Registry["author"]

	terms := EnsureDeterministic(au, []OrderTerm{
		{Field: au.GetField("surname")},
		{Field: au.GetField("name")},
	})
	if diff := cmp.Diff([]string{"surname", "name"}, termNames(terms)); diff != "" {
		t.Fatalf("covered unique_together extended (-want +got):\n%s", diff)
	}

	// частичное покрытие набора не даёт детерминизма
	terms = EnsureDeterministic(au, []OrderTerm{{Field: au.GetField("surname")}})
	names := termNames(terms)
	if names[len(names)-1] != "-id" {
		t.Fatalf("partial unique_together got no tie-break: %v", names)
	}
}
