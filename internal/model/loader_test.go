package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeModelFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadModelsFromDir(t *testing.T) {
	ResetRegistry()
	dir := t.TempDir()
	writeModelFile(t, dir, "city.yml", `
table: cities
display: "{name}"
fields:
  - name: name
    kind: string
    max_length: 80
admin:
  list_display: [name]
`)

	if err := LoadModelsFromDir(dir); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	m, ok := Registry["city"]
	if !ok {
		t.Fatalf("model 'city' not registered")
	}
	if m.Table != "cities" || len(m.Fields) != 1 {
		t.Fatalf("unexpected model: %+v", m)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	ResetRegistry()
	dir := t.TempDir()
	writeModelFile(t, dir, "bad.yml", `
table: bads
fields:
  - name: x
    kind: string
    lenght: 10
`)

	err := LoadModelsFromDir(dir)
	if err == nil || !strings.Contains(err.Error(), "lenght") {
		t.Fatalf("expected unknown-key error, got %v", err)
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	ResetRegistry()
	dir := t.TempDir()
	writeModelFile(t, dir, "bad.yml", `
table: bads
fields:
  - name: x
    kind: varchar
`)

	err := LoadModelsFromDir(dir)
	if err == nil || !strings.Contains(err.Error(), "varchar") {
		t.Fatalf("expected unknown-kind error, got %v", err)
	}
}

func TestLoadRejectsUnknownAdminKey(t *testing.T) {
	ResetRegistry()
	dir := t.TempDir()
	writeModelFile(t, dir, "bad.yml", `
table: bads
fields:
  - name: x
    kind: string
admin:
  list_diplay: [x]
`)

	if err := LoadModelsFromDir(dir); err == nil {
		t.Fatalf("expected unknown admin key error")
	}
}

func TestLoadRejectsDuplicateModelName(t *testing.T) {
	ResetRegistry()
	dir := t.TempDir()
	body := `
table: cities
fields:
  - name: name
    kind: string
`
	writeModelFile(t, dir, "city.yml", body)
	writeModelFile(t, dir, "city.yaml", body)

	err := LoadModelsFromDir(dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate model") {
		t.Fatalf("expected duplicate-model error, got %v", err)
	}
}

func TestLoadEmptyDirFails(t *testing.T) {
	ResetRegistry()
	if err := LoadModelsFromDir(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty models dir")
	}
}

func TestFilterDeclScalarAndMap(t *testing.T) {
	ResetRegistry()
	dir := t.TempDir()
	writeModelFile(t, dir, "thing.yml", `
table: things
fields:
  - name: state
    kind: string
  - name: kindof
    kind: string
admin:
  list_filter:
    - state
    - field: kindof
      kind: allvalues
`)

	if err := LoadModelsFromDir(dir); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	decls := Registry["thing"].Admin.ListFilter
	if len(decls) != 2 {
		t.Fatalf("expected 2 filter decls, got %d", len(decls))
	}
	if decls[0].Field != "state" || decls[0].Kind != "" {
		t.Fatalf("scalar decl mismatch: %+v", decls[0])
	}
	if decls[1].Field != "kindof" || decls[1].Kind != "allvalues" {
		t.Fatalf("map decl mismatch: %+v", decls[1])
	}
}
