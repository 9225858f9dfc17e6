package model

import (
	"strings"
	"testing"
)

func mustCheckFail(t *testing.T, wantSubstr string) {
	t.Helper()
	err := CheckRegistry()
	if err == nil {
		t.Fatalf("expected check error containing %q", wantSubstr)
	}
	if !strings.Contains(err.Error(), wantSubstr) {
		t.Fatalf("error %q does not mention %q", err, wantSubstr)
	}
}

func TestChecksPassOnValidRegistry(t *testing.T) {
	buildTestRegistry(t)
	if err := CheckRegistry(); err != nil {
		t.Fatalf("valid registry failed checks: %v", err)
	}
}

func TestChecksUnknownListDisplay(t *testing.T) {
	buildTestRegistry(t)
	Registry["book"].Admin.ListDisplay = []string{"title", "ghost"}
	mustCheckFail(t, "ghost")
}

func TestChecksM2MInListDisplay(t *testing.T) {
	buildTestRegistry(t)
	Registry["book"].Admin.ListDisplay = []string{"title", "authors"}
	Registry["book"].Admin.ListDisplayLinks = []string{"title"}
	mustCheckFail(t, "m2m")
}

func TestChecksLinksMustBeDisplayed(t *testing.T) {
	buildTestRegistry(t)
	Registry["book"].Admin.ListDisplayLinks = []string{"in_print"}
	mustCheckFail(t, "list_display_links")
}

func TestChecksListEditableNotLink(t *testing.T) {
	buildTestRegistry(t)
	a := Registry["book"].Admin
	a.ListDisplay = []string{"title", "genre"}
	a.ListDisplayLinks = []string{"title"}
	a.ListEditable = []string{"title"}
	mustCheckFail(t, "list_editable")
}

func TestChecksSearchFieldsResolve(t *testing.T) {
	buildTestRegistry(t)
	Registry["book"].Admin.SearchFields = []string{"^publisher__books__title"}
	mustCheckFail(t, "search_fields")
}

func TestChecksBooleanFilterKind(t *testing.T) {
	buildTestRegistry(t)
	Registry["book"].Admin.ListFilter = []FilterDecl{{Field: "title", Kind: "boolean"}}
	mustCheckFail(t, "boolean")
}

func TestChecksCustomFilterNeedsName(t *testing.T) {
	buildTestRegistry(t)
	Registry["book"].Admin.ListFilter = []FilterDecl{{Kind: "custom"}}
	mustCheckFail(t, "custom")
}

func TestChecksDateHierarchyKind(t *testing.T) {
	buildTestRegistry(t)
	Registry["book"].Admin.DateHierarchy = "title"
	mustCheckFail(t, "date_hierarchy")
}

func TestChecksInlineFKMustPointAtParent(t *testing.T) {
	buildTestRegistry(t)
	// поле chapter.book указывает на book, не на publisher
	inline := &InlineConfig{Model: "chapter", FK: "book"}
	inline.childRef = Registry["chapter"]
	Registry["publisher"].Admin.Inlines = []*InlineConfig{inline}
	mustCheckFail(t, "not at the parent")
}

func TestChecksInlineMinMax(t *testing.T) {
	buildTestRegistry(t)
	inline := &InlineConfig{Model: "chapter", FK: "book", MinNum: 5, MaxNum: 2}
	inline.childRef = Registry["chapter"]
	Registry["book"].Admin.Inlines = []*InlineConfig{inline}
	mustCheckFail(t, "min_num")
}

func TestChecksSortableByConcrete(t *testing.T) {
	buildTestRegistry(t)
	Registry["book"].Admin.SortableBy = []string{"authors"}
	mustCheckFail(t, "sortable_by")
}
