package model

import "strings"

// Field kinds supported by the registry.
const (
	KindString   = "string"
	KindText     = "text"
	KindInt      = "int"
	KindFloat    = "float"
	KindBool     = "bool"
	KindDate     = "date"
	KindDateTime = "datetime"
	KindTime     = "time"
	KindDuration = "duration"
	KindChoice   = "choice"
	KindJSON     = "json"
	KindFile     = "file"
	KindFK       = "fk"
	KindM2M      = "m2m"
)

// Model описывает одну зарегистрированную сущность: таблицу, поля, связи
// и админ-конфигурацию. Неизменяема после InitRegistry.
type Model struct {
	Name           string               `yaml:"-"` // logical name of the model (file stem)
	Table          string               `yaml:"table"`
	PrimaryKey     string               `yaml:"primary_key"` // optional, default "id"
	Display        string               `yaml:"display"`     // repr template, e.g. "{surname} {name}[0]."
	Ordering       []string             `yaml:"ordering"`    // model default ordering, "-field" for DESC
	UniqueTogether [][]string           `yaml:"unique_together"`
	Fields         []*Field             `yaml:"fields"`
	Relations      map[string]*Relation `yaml:"relations"` // reverse fk (has_many)
	Admin          *AdminConfig         `yaml:"admin"`

	// для runtime (не сериализуется)
	fieldsByName map[string]*Field
}

// Field описывает одно поле модели в конфигурации.
type Field struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Label        string   `yaml:"label"`
	HelpText     string   `yaml:"help_text"`
	Column       string   `yaml:"column"` // SQL column, default: name (fk: name + "_id")
	Null         bool     `yaml:"null"`
	Blank        bool     `yaml:"blank"`
	Unique       bool     `yaml:"unique"`
	ReadOnly     bool     `yaml:"read_only"` // computed/identifier-only, never writable
	Default      any      `yaml:"default"`
	MaxLength    int      `yaml:"max_length"`
	MinLength    int      `yaml:"min_length"`
	MinValue     *float64 `yaml:"min_value"`
	MaxValue     *float64 `yaml:"max_value"`
	Choices      []Choice `yaml:"choices"`
	InputFormats []string `yaml:"input_formats"` // date/time kinds, ISO-8601 defaults when empty
	FormKind     string   `yaml:"form_kind"`     // override the projected descriptor kind

	// relational kinds
	Model          string         `yaml:"model"`   // fk/m2m target model (logical name)
	Through        string         `yaml:"through"` // m2m join table in SQL
	NearFK         string         `yaml:"near_fk"` // column on through referencing this model
	FarFK          string         `yaml:"far_fk"`  // column on through referencing the target
	LimitChoicesTo map[string]any `yaml:"limit_choices_to"`

	Child *Field `yaml:"child"` // json kinds

	// для runtime (не сериализуется)
	relRef   *Model
	implicit bool // synthesized pk field
}

// Choice is one (value, label) pair of a choice field.
type Choice struct {
	Value any    `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Relation описывает обратную связь (дочерние записи по их fk-полю).
type Relation struct {
	Type  string `yaml:"type"`  // has_many
	Model string `yaml:"model"` // child model (logical name)
	FK    string `yaml:"fk"`    // fk FIELD name on the child pointing here

	relRef *Model
}

// AdminConfig — декларативная конфигурация админки для одной модели.
// Принадлежит модели, read-only во время запроса.
type AdminConfig struct {
	ListDisplay         []string        `yaml:"list_display"`
	ListDisplayLinks    []string        `yaml:"list_display_links"`
	ListFilter          []FilterDecl    `yaml:"list_filter"`
	SearchFields        []string        `yaml:"search_fields"`
	SortableBy          []string        `yaml:"sortable_by"`
	Ordering            []string        `yaml:"ordering"`
	ListPerPage         int             `yaml:"list_per_page"`
	ListMaxShowAll      int             `yaml:"list_max_show_all"`
	ListEditable        []string        `yaml:"list_editable"`
	Fields              []string        `yaml:"fields"`
	Exclude             []string        `yaml:"exclude"`
	ReadonlyFields      []string        `yaml:"readonly_fields"`
	EmptyValueDisplay   string          `yaml:"empty_value_display"`
	DateHierarchy       string          `yaml:"date_hierarchy"`
	ShowFullResultCount *bool           `yaml:"show_full_result_count"`
	Inlines             []*InlineConfig `yaml:"inlines"`
	Actions             []string        `yaml:"actions"`
}

// FilterDecl is one list_filter entry: a bare field name, or a mapping
// selecting an explicit filter kind.
type FilterDecl struct {
	Field string `yaml:"field"`
	Kind  string `yaml:"kind"` // empty = pick by field kind
	Name  string `yaml:"name"` // custom filter registration name
}

// UnmarshalYAML accepts either a scalar field name or a {field, kind, name} map.
func (d *FilterDecl) UnmarshalYAML(unmarshal func(any) error) error {
	var scalar string
	if err := unmarshal(&scalar); err == nil {
		d.Field = scalar
		return nil
	}
	type plain FilterDecl
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*d = FilterDecl(p)
	return nil
}

// InlineConfig описывает дочернюю модель, редактируемую внутри родителя.
type InlineConfig struct {
	Model   string   `yaml:"model"` // child model (logical name)
	FK      string   `yaml:"fk"`    // fk field on the child pointing at the parent
	Fields  []string `yaml:"fields"`
	Exclude []string `yaml:"exclude"`
	MinNum  int      `yaml:"min_num"`
	MaxNum  int      `yaml:"max_num"`
	Label   string   `yaml:"label"`

	childRef *Model
}

// PKName возвращает имя поля первичного ключа (по умолчанию "id").
func (m *Model) PKName() string {
	if m.PrimaryKey != "" {
		return m.PrimaryKey
	}
	return "id"
}

// PKColumn возвращает SQL-колонку первичного ключа.
func (m *Model) PKColumn() string {
	if f := m.GetField(m.PKName()); f != nil {
		return f.ColumnName()
	}
	return m.PKName()
}

// GetField ищет поле по имени; "pk" — алиас первичного ключа.
func (m *Model) GetField(name string) *Field {
	if name == "pk" {
		name = m.PKName()
	}
	if m.fieldsByName != nil {
		return m.fieldsByName[name]
	}
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (m *Model) GetRelation(name string) *Relation {
	if m == nil || m.Relations == nil {
		return nil
	}
	return m.Relations[name]
}

// DefaultOrdering: admin ordering wins over model ordering.
func (m *Model) DefaultOrdering() []string {
	if m.Admin != nil && len(m.Admin.Ordering) > 0 {
		return m.Admin.Ordering
	}
	return m.Ordering
}

// ColumnName возвращает SQL-колонку поля. Для fk по умолчанию "<name>_id".
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	if f.Kind == KindFK {
		return f.Name + "_id"
	}
	return f.Name
}

// IsRelation reports whether the field traverses to another model.
func (f *Field) IsRelation() bool {
	return f.Kind == KindFK || f.Kind == KindM2M
}

// Concrete reports whether the field has a column on the model's own table.
func (f *Field) Concrete() bool {
	return f.Kind != KindM2M
}

func (f *Field) RelRef() *Model          { return f.relRef }
func (f *Field) SetRelRef(m *Model)      { f.relRef = m }
func (r *Relation) RelRef() *Model       { return r.relRef }
func (r *Relation) SetRelRef(m *Model)   { r.relRef = m }
func (c *InlineConfig) ChildRef() *Model { return c.childRef }

// ChoiceLabel возвращает подпись для значения choice-поля.
// Сравнение строковое: драйвер может вернуть int64 для int-значений из YAML.
func (f *Field) ChoiceLabel(value any) (string, bool) {
	for _, ch := range f.Choices {
		if stringify(ch.Value) == stringify(value) {
			return ch.Label, true
		}
	}
	return "", false
}

// VerboseLabel возвращает подпись поля: заданную или "очеловеченное" имя.
func (f *Field) VerboseLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return Humanize(f.Name)
}

// Humanize turns "date_joined" into "Date joined".
func Humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
