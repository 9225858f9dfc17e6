package model

import (
	"errors"
	"strings"
	"testing"

	"YadminAPI/internal/adminerrs"
)

func TestResolveLookupLocalField(t *testing.T) {
	buildTestRegistry(t)
	book := Registry["book"]

	ref, err := book.ResolveLookup("title__icontains")
	if err != nil {
		t.Fatalf("ResolveLookup failed: %v", err)
	}
	if ref.Column != "main.title" || ref.Lookup != "icontains" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if len(ref.Joins) != 0 || ref.SpawnsDuplicates {
		t.Fatalf("local lookup must not join: %+v", ref)
	}
}

func TestResolveLookupDefaultsToExact(t *testing.T) {
	buildTestRegistry(t)
	book := Registry["book"]

	ref, err := book.ResolveLookup("title")
	if err != nil {
		t.Fatalf("ResolveLookup failed: %v", err)
	}
	if ref.Lookup != "exact" {
		t.Fatalf("expected exact, got %s", ref.Lookup)
	}
}

func TestResolveLookupPKAlias(t *testing.T) {
	buildTestRegistry(t)
	book := Registry["book"]

	ref, err := book.ResolveLookup("pk__in")
	if err != nil {
		t.Fatalf("ResolveLookup failed: %v", err)
	}
	if ref.Column != "main.id" || ref.Lookup != "in" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestResolveLookupFKColumn(t *testing.T) {
	buildTestRegistry(t)
	book := Registry["book"]

	// fk без хвоста фильтрует по собственной колонке, без джойна
	ref, err := book.ResolveLookup("publisher__exact")
	if err != nil {
		t.Fatalf("ResolveLookup failed: %v", err)
	}
	if ref.Column != "main.publisher_id" || len(ref.Joins) != 0 {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestResolveLookupFKHop(t *testing.T) {
	buildTestRegistry(t)
	book := Registry["book"]

	ref, err := book.ResolveLookup("publisher__name__icontains")
	if err != nil {
		t.Fatalf("ResolveLookup failed: %v", err)
	}
	if len(ref.Joins) != 1 {
		t.Fatalf("expected one join, got %+v", ref.Joins)
	}
	j := ref.Joins[0]
	if j.Table != "publishers" || !strings.Contains(j.On, "main.publisher_id") {
		t.Fatalf("unexpected join: %+v", j)
	}
	if ref.SpawnsDuplicates {
		t.Fatalf("fk hop must not spawn duplicates")
	}
}

func TestResolveLookupM2MSpawnsDuplicates(t *testing.T) {
	buildTestRegistry(t)
	book := Registry["book"]

	ref, err := book.ResolveLookup("authors__surname__icontains")
	if err != nil {
		t.Fatalf("ResolveLookup failed: %v", err)
	}
	if !ref.SpawnsDuplicates {
		t.Fatalf("m2m hop must spawn duplicates")
	}
	var through bool
	for _, j := range ref.Joins {
		if j.Table == "book_authors" {
			through = true
		}
	}
	if !through {
		t.Fatalf("expected through-table join, got %+v", ref.Joins)
	}
}

func TestResolveLookupReverseRelation(t *testing.T) {
	buildTestRegistry(t)
	book := Registry["book"]

	ref, err := book.ResolveLookup("chapters__title__icontains")
	if err != nil {
		t.Fatalf("ResolveLookup failed: %v", err)
	}
	if !ref.SpawnsDuplicates {
		t.Fatalf("reverse hop must spawn duplicates")
	}
	if len(ref.Joins) != 1 || ref.Joins[0].Table != "chapters" {
		t.Fatalf("unexpected joins: %+v", ref.Joins)
	}
}

func TestResolveLookupDeepPathDisallowed(t *testing.T) {
	buildTestRegistry(t)
	chapter := Registry["chapter"]

	// chapter -> book -> publisher: два хопа
	_, err := chapter.ResolveLookup("book__publisher__name")
	if !errors.Is(err, adminerrs.ErrDisallowedLookup) {
		t.Fatalf("expected ErrDisallowedLookup, got %v", err)
	}
}

func TestResolveLookupUnknownField(t *testing.T) {
	buildTestRegistry(t)
	book := Registry["book"]

	_, err := book.ResolveLookup("no_such__icontains")
	if !errors.Is(err, adminerrs.ErrFieldDoesNotExist) {
		t.Fatalf("expected ErrFieldDoesNotExist, got %v", err)
	}
}

func TestResolveLookupUnknownOperator(t *testing.T) {
	buildTestRegistry(t)
	book := Registry["book"]

	// неизвестный оператор трактуется как поле на связи и отклоняется
	if _, err := book.ResolveLookup("title__likeish"); err == nil {
		t.Fatalf("expected error for unknown operator")
	}
}
