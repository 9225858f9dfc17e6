package schema

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestValidateCleansTypes(t *testing.T) {
	m := bookModel(t)
	v := BuildValidator(m, nil)

	clean, verr := v.Validate(map[string]any{
		"title":        "War and Peace",
		"pages":        float64(1225), // JSON-числа приходят как float64
		"price":        "99.5",
		"genre":        "fiction",
		"in_print":     true,
		"published_on": "1869-01-01",
		"editor":       float64(3),
		"authors":      []any{float64(1), "a0e", float64(2)},
	}, false)
	if verr != nil {
		t.Fatalf("Validate failed: %v", verr.Fields)
	}

	if clean["pages"] != int64(1225) {
		t.Fatalf("pages = %#v", clean["pages"])
	}
	if clean["price"] != 99.5 {
		t.Fatalf("price = %#v", clean["price"])
	}
	if ts, ok := clean["published_on"].(time.Time); !ok || ts.Year() != 1869 {
		t.Fatalf("published_on = %#v", clean["published_on"])
	}
	if clean["editor"] != int64(3) {
		t.Fatalf("editor = %#v", clean["editor"])
	}
	if diff := cmp.Diff([]any{int64(1), "a0e", int64(2)}, clean["authors"]); diff != "" {
		t.Fatalf("authors (-want +got):\n%s", diff)
	}
}

// Ошибки собираются по всем полям сразу.
func TestValidateAggregates(t *testing.T) {
	m := bookModel(t)
	v := BuildValidator(m, nil)

	_, verr := v.Validate(map[string]any{
		"pages": "eleven",
		"genre": "opera",
	}, false)
	if verr == nil {
		t.Fatal("invalid payload accepted")
	}
	for _, field := range []string{"title", "pages", "genre"} {
		if len(verr.Fields[field]) == 0 {
			t.Errorf("no error for %q: %v", field, verr.Fields)
		}
	}
}

func TestValidatePartialSkipsMissing(t *testing.T) {
	m := bookModel(t)
	v := BuildValidator(m, nil)

	clean, verr := v.Validate(map[string]any{"pages": float64(11)}, true)
	if verr != nil {
		t.Fatalf("Validate failed: %v", verr.Fields)
	}
	if len(clean) != 1 || clean["pages"] != int64(11) {
		t.Fatalf("clean = %#v", clean)
	}
}

func TestValidateDefaultsOnCreate(t *testing.T) {
	m := bookModel(t)
	v := BuildValidator(m, nil)

	clean, verr := v.Validate(map[string]any{"title": "Poems"}, false)
	if verr != nil {
		t.Fatalf("Validate failed: %v", verr.Fields)
	}
	if clean["genre"] != "fiction" || clean["in_print"] != true {
		t.Fatalf("defaults not applied: %#v", clean)
	}
}

func TestValidateRejectsReadonlyAndUnknown(t *testing.T) {
	m := bookModel(t)
	v := BuildValidator(m, nil)

	_, verr := v.Validate(map[string]any{
		"title": "Poems",
		"id":    float64(1),
		"slug":  "poems",
		"ghost": "x",
	}, true)
	if verr == nil {
		t.Fatal("readonly/unknown fields accepted")
	}
	for _, field := range []string{"id", "slug", "ghost"} {
		if len(verr.Fields[field]) == 0 {
			t.Errorf("no error for %q: %v", field, verr.Fields)
		}
	}
}

func TestValidateNullHandling(t *testing.T) {
	m := bookModel(t)
	v := BuildValidator(m, nil)

	clean, verr := v.Validate(map[string]any{"pages": nil}, true)
	if verr != nil {
		t.Fatalf("nullable field rejected nil: %v", verr.Fields)
	}
	if val, present := clean["pages"]; !present || val != nil {
		t.Fatalf("clean = %#v", clean)
	}

	_, verr = v.Validate(map[string]any{"title": nil}, true)
	if verr == nil || len(verr.Fields["title"]) == 0 {
		t.Fatal("non-nullable field accepted nil")
	}
}

func TestValidateBounds(t *testing.T) {
	m := bookModel(t)
	v := BuildValidator(m, nil)

	_, verr := v.Validate(map[string]any{
		"pages": float64(0),
		"price": float64(20000),
		"title": string(make([]byte, 201)),
	}, true)
	if verr == nil {
		t.Fatal("out-of-bounds values accepted")
	}
	for _, field := range []string{"pages", "price", "title"} {
		if len(verr.Fields[field]) == 0 {
			t.Errorf("no error for %q: %v", field, verr.Fields)
		}
	}
}

func TestValidateTemporalFormats(t *testing.T) {
	m := bookModel(t)
	v := BuildValidator(m, nil)

	for _, bad := range []any{"01.01.1869", "1869", float64(1869)} {
		_, verr := v.Validate(map[string]any{"published_on": bad}, true)
		if verr == nil || len(verr.Fields["published_on"]) == 0 {
			t.Errorf("bad date %v accepted", bad)
		}
	}
}

func TestValidateM2MShape(t *testing.T) {
	m := bookModel(t)
	v := BuildValidator(m, nil)

	_, verr := v.Validate(map[string]any{"authors": "1,2"}, true)
	if verr == nil || len(verr.Fields["authors"]) == 0 {
		t.Fatal("scalar m2m value accepted")
	}

	_, verr = v.Validate(map[string]any{"authors": []any{""}}, true)
	if verr == nil || len(verr.Fields["authors"]) == 0 {
		t.Fatal("empty identifier accepted")
	}
}
