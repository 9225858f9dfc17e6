package model

import "testing"

func TestFormatTemplateSlices(t *testing.T) {
	row := map[string]any{"surname": "Tolstoy", "name": "Lev"}
	got := FormatTemplate("{surname} {name}[0].", row)
	if got != "Tolstoy L." {
		t.Fatalf("unexpected repr: %q", got)
	}
}

func TestFormatTemplateRange(t *testing.T) {
	row := map[string]any{"title": "War and Peace"}
	if got := FormatTemplate("{title}[0..3]", row); got != "War" {
		t.Fatalf("unexpected slice: %q", got)
	}
}

func TestFormatTemplateSlicesRunes(t *testing.T) {
	// срез обязан идти по символам, не по байтам
	row := map[string]any{"surname": "Иванов", "name": "Иван"}
	if got := FormatTemplate("{surname} {name}[0].", row); got != "Иванов И." {
		t.Fatalf("unexpected repr: %q", got)
	}
	if got := FormatTemplate("{surname}[0..4]", row); got != "Иван" {
		t.Fatalf("unexpected range slice: %q", got)
	}
}

func TestFormatTemplateMissingField(t *testing.T) {
	if got := FormatTemplate("{name} {nick}", map[string]any{"name": "Lev"}); got != "Lev " {
		t.Fatalf("missing field must render empty: %q", got)
	}
}

func TestFormatTemplateIndexPastEnd(t *testing.T) {
	if got := FormatTemplate("{name}[9]", map[string]any{"name": "Lev"}); got != "" {
		t.Fatalf("out-of-range slice must be empty: %q", got)
	}
}

func TestReprFallback(t *testing.T) {
	buildTestRegistry(t)
	m := Registry["book"]
	m.Display = ""
	got := m.Repr(map[string]any{"id": int64(7)})
	if got != "Book 7" {
		t.Fatalf("unexpected fallback repr: %q", got)
	}
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"published_on": "Published on",
		"book":         "Book",
		"in_print":     "In print",
	}
	for in, want := range cases {
		if got := Humanize(in); got != want {
			t.Fatalf("Humanize(%q) = %q, want %q", in, got, want)
		}
	}
}
