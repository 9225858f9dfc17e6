package changelist

import (
	"encoding/json"
	"testing"

	"YadminAPI/internal/schema"
)

func TestEditableDescriptors(t *testing.T) {
	m := bookRegistry(t)
	m.Admin.ListEditable = []string{"genre", "in_print"}

	descs := EditableDescriptors(m, m.Admin)
	if len(descs) != 2 {
		t.Fatalf("want 2 descriptors, got %d", len(descs))
	}
	if descs[0].Name != "genre" || descs[1].Name != "in_print" {
		t.Fatalf("descriptor order mismatch: %s, %s", descs[0].Name, descs[1].Name)
	}
	if descs[0].Kind != "choice" || len(descs[0].Choices) != 2 {
		t.Errorf("genre descriptor lost choices: %+v", descs[0])
	}
	if descs[1].Kind != "bool" {
		t.Errorf("in_print descriptor kind = %q", descs[1].Kind)
	}
}

func TestEditableDescriptorsEmpty(t *testing.T) {
	m := bookRegistry(t)
	if descs := EditableDescriptors(m, m.Admin); len(descs) != 0 {
		t.Fatalf("expected no descriptors without list_editable, got %d", len(descs))
	}
}

func TestChangelistEnvelopeShape(t *testing.T) {
	cl := &Changelist{
		Config:  ListConfig{Model: "book", Editable: []schema.FormFieldDescriptor{}},
		Columns: []string{"title"},
		Rows:    []Row{},
	}
	raw, err := json.Marshal(cl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"config", "columns", "rows"} {
		if _, ok := top[key]; !ok {
			t.Errorf("envelope is missing %q: %s", key, raw)
		}
	}
	if _, flat := top["result_count"]; flat {
		t.Errorf("result_count leaked to the top level: %s", raw)
	}
}
