package changelist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/db"
	"YadminAPI/internal/model"
)

// FilterChoice — один пункт фильтра в ответе changelist.
type FilterChoice struct {
	Label    string `json:"label"`
	Value    string `json:"value"` // значение query-параметра, "" = сброс
	Selected bool   `json:"selected"`
}

// FilterSpec — фильтр, привязанный к одному запросу: знает свои
// query-параметры, умеет сузить запрос и описать свои пункты.
// Создаётся на запрос, между запросами состояния не имеет.
type FilterSpec interface {
	Title() string
	// ExpectedParams — параметры query string, которые фильтр "забирает";
	// забранные параметры не интерпретируются повторно как field lookups.
	ExpectedParams() []string
	Apply(qs *QueryState) error
	Choices() []FilterChoice
	// HasOutput=false: фильтр без единого пункта опускается в ответе,
	// хотя остаётся структурно зарегистрированным.
	HasOutput() bool
}

// CustomFilterFunc собирает пользовательский фильтр для одного запроса.
type CustomFilterFunc func(ctx context.Context, m *model.Model, used map[string]string) (FilterSpec, error)

var customFilters = map[string]CustomFilterFunc{}

// RegisterCustomFilter регистрируется при старте процесса, до первого запроса.
func RegisterCustomFilter(name string, fn CustomFilterFunc) {
	customFilters[name] = fn
}

// ResolveFilters строит фильтры по list_filter (+date_hierarchy) и забирает
// их параметры из lookup-набора. Возвращает фильтры и незабранный остаток.
func ResolveFilters(ctx context.Context, q db.Querier, m *model.Model, admin *model.AdminConfig, lookup map[string]string) ([]FilterSpec, map[string]string, error) {
	remaining := make(map[string]string, len(lookup))
	for k, v := range lookup {
		remaining[k] = v
	}

	var specs []FilterSpec
	build := func(decl model.FilterDecl) (FilterSpec, error) {
		if decl.Kind == "custom" {
			fn, ok := customFilters[decl.Name]
			if !ok {
				return nil, fmt.Errorf("custom filter '%s' is not registered", decl.Name)
			}
			return fn(ctx, m, lookup)
		}
		f := m.GetField(decl.Field)
		kind := decl.Kind
		if kind == "" {
			kind = defaultFilterKind(f)
		}
		switch kind {
		case "boolean":
			return newBooleanFilter(f, lookup), nil
		case "choice":
			return newChoiceFilter(f, lookup), nil
		case "date":
			return newDateFilter(f, lookup), nil
		case "related":
			return newRelatedFilter(ctx, q, m, f, lookup, false)
		case "related_only":
			return newRelatedFilter(ctx, q, m, f, lookup, true)
		case "empty":
			return newEmptyFilter(f, lookup), nil
		default:
			return newAllValuesFilter(ctx, q, m, f, lookup)
		}
	}

	dateCovered := map[string]bool{}
	for _, decl := range admin.ListFilter {
		spec, err := build(decl)
		if err != nil {
			return nil, nil, err
		}
		specs = append(specs, spec)
		for _, p := range spec.ExpectedParams() {
			delete(remaining, p)
		}
		if df, ok := spec.(*dateFilter); ok {
			dateCovered[df.field.Name] = true
		}
	}

	// date_hierarchy над полем, уже закрытым date-фильтром, не дублируем:
	// оба читали бы одни и те же параметры и сужали бы запрос дважды.
	if admin.DateHierarchy != "" && !dateCovered[admin.DateHierarchy] {
		f := m.GetField(admin.DateHierarchy)
		spec := newDateFilter(f, lookup)
		specs = append(specs, spec)
		for _, p := range spec.ExpectedParams() {
			delete(remaining, p)
		}
	}

	return specs, remaining, nil
}

func defaultFilterKind(f *model.Field) string {
	switch f.Kind {
	case model.KindBool:
		return "boolean"
	case model.KindChoice:
		return "choice"
	case model.KindDate, model.KindDateTime:
		return "date"
	case model.KindFK, model.KindM2M:
		return "related"
	default:
		return "allvalues"
	}
}

// ---- boolean ----

type booleanFilter struct {
	field    *model.Field
	exact    string // claimed value of field__exact
	isnull   string
	hasExact bool
	hasNull  bool
}

func newBooleanFilter(f *model.Field, used map[string]string) *booleanFilter {
	bf := &booleanFilter{field: f}
	bf.exact, bf.hasExact = used[f.Name+"__exact"]
	bf.isnull, bf.hasNull = used[f.Name+"__isnull"]
	return bf
}

func (bf *booleanFilter) Title() string { return bf.field.VerboseLabel() }

func (bf *booleanFilter) ExpectedParams() []string {
	return []string{bf.field.Name + "__exact", bf.field.Name + "__isnull"}
}

func (bf *booleanFilter) Apply(qs *QueryState) error {
	if bf.hasNull {
		return qs.AddLookupParam(bf.field.Name+"__isnull", bf.isnull)
	}
	if bf.hasExact {
		return qs.AddLookupParam(bf.field.Name+"__exact", bf.exact)
	}
	return nil
}

func (bf *booleanFilter) Choices() []FilterChoice {
	out := []FilterChoice{
		{Label: "All", Value: "", Selected: !bf.hasExact && !bf.hasNull},
		{Label: "Yes", Value: "1", Selected: bf.hasExact && bf.exact == "1"},
		{Label: "No", Value: "0", Selected: bf.hasExact && bf.exact == "0"},
	}
	if bf.field.Null {
		out = append(out, FilterChoice{Label: "Unknown", Value: "isnull", Selected: bf.hasNull && truthyString(bf.isnull)})
	}
	return out
}

func (bf *booleanFilter) HasOutput() bool { return true }

// ---- choice ----

type choiceFilter struct {
	field    *model.Field
	exact    string
	isnull   string
	hasExact bool
	hasNull  bool
}

func newChoiceFilter(f *model.Field, used map[string]string) *choiceFilter {
	cf := &choiceFilter{field: f}
	cf.exact, cf.hasExact = used[f.Name+"__exact"]
	cf.isnull, cf.hasNull = used[f.Name+"__isnull"]
	return cf
}

func (cf *choiceFilter) Title() string { return cf.field.VerboseLabel() }

func (cf *choiceFilter) ExpectedParams() []string {
	return []string{cf.field.Name + "__exact", cf.field.Name + "__isnull"}
}

func (cf *choiceFilter) Apply(qs *QueryState) error {
	if cf.hasNull {
		return qs.AddLookupParam(cf.field.Name+"__isnull", cf.isnull)
	}
	if cf.hasExact {
		return qs.AddLookupParam(cf.field.Name+"__exact", cf.exact)
	}
	return nil
}

func (cf *choiceFilter) Choices() []FilterChoice {
	out := make([]FilterChoice, 0, len(cf.field.Choices)+2)
	out = append(out, FilterChoice{Label: "All", Value: "", Selected: !cf.hasExact && !cf.hasNull})
	for _, ch := range cf.field.Choices {
		v := fmt.Sprintf("%v", ch.Value)
		out = append(out, FilterChoice{Label: ch.Label, Value: v, Selected: cf.hasExact && cf.exact == v})
	}
	if cf.field.Null {
		out = append(out, FilterChoice{Label: "None", Value: "isnull", Selected: cf.hasNull && truthyString(cf.isnull)})
	}
	return out
}

func (cf *choiceFilter) HasOutput() bool { return len(cf.field.Choices) > 0 }

// ---- date ----

type dateFilter struct {
	field *model.Field
	year  string
	month string
	day   string
}

func newDateFilter(f *model.Field, used map[string]string) *dateFilter {
	return &dateFilter{
		field: f,
		year:  used[f.Name+"__year"],
		month: used[f.Name+"__month"],
		day:   used[f.Name+"__day"],
	}
}

func (df *dateFilter) Title() string { return df.field.VerboseLabel() }

func (df *dateFilter) ExpectedParams() []string {
	n := df.field.Name
	return []string{n + "__year", n + "__month", n + "__day"}
}

// Apply сужает до календарного окна: день — [d, d+1), месяц — до первого
// числа следующего месяца, год — весь календарный год.
func (df *dateFilter) Apply(qs *QueryState) error {
	if df.year == "" {
		if df.month != "" || df.day != "" {
			return fmt.Errorf("%w: date hierarchy without year", adminerrs.ErrIncorrectLookupParams)
		}
		return nil
	}
	since, until, err := DateRange(df.year, df.month, df.day)
	if err != nil {
		return err
	}
	ref, err := qs.Model.ResolveLookup(df.field.Name)
	if err != nil {
		return err
	}
	qs.AddCond(squirrel.GtOrEq{ref.Column: since})
	qs.AddCond(squirrel.Lt{ref.Column: until})
	return nil
}

func (df *dateFilter) Choices() []FilterChoice {
	now := time.Now().UTC()
	anySelected := df.year == ""
	return []FilterChoice{
		{Label: "Any date", Value: "", Selected: anySelected},
		{Label: "Today", Value: fmt.Sprintf("%d-%02d-%02d", now.Year(), now.Month(), now.Day()),
			Selected: df.year == strconv.Itoa(now.Year()) && df.month == strconv.Itoa(int(now.Month())) && df.day == strconv.Itoa(now.Day())},
		{Label: "This month", Value: fmt.Sprintf("%d-%02d", now.Year(), now.Month()),
			Selected: df.year == strconv.Itoa(now.Year()) && df.month == strconv.Itoa(int(now.Month())) && df.day == ""},
		{Label: "This year", Value: strconv.Itoa(now.Year()),
			Selected: df.year == strconv.Itoa(now.Year()) && df.month == "" && df.day == ""},
	}
}

func (df *dateFilter) HasOutput() bool { return true }

// DateRange вычисляет полуинтервал [since, until) по компонентам иерархии.
// Месячная граница берётся первым числом следующего месяца, а не "+30 дней".
func DateRange(yearS, monthS, dayS string) (time.Time, time.Time, error) {
	year, err := strconv.Atoi(yearS)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid year %q", adminerrs.ErrIncorrectLookupParams, yearS)
	}
	if monthS == "" {
		since := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		return since, since.AddDate(1, 0, 0), nil
	}
	month, err := strconv.Atoi(monthS)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid month %q", adminerrs.ErrIncorrectLookupParams, monthS)
	}
	if dayS == "" {
		since := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return since, since.AddDate(0, 1, 0), nil
	}
	day, err := strconv.Atoi(dayS)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid day %q", adminerrs.ErrIncorrectLookupParams, dayS)
	}
	since := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return since, since.AddDate(0, 0, 1), nil
}

// ---- related ----

type relatedFilter struct {
	field    *model.Field
	exact    string
	isnull   string
	hasExact bool
	hasNull  bool
	choices  []FilterChoice
}

// newRelatedFilter грузит пункты из связанной модели; relatedOnly ограничивает
// их объектами, реально встречающимися в базовом запросе.
func newRelatedFilter(ctx context.Context, q db.Querier, m *model.Model, f *model.Field, used map[string]string, relatedOnly bool) (*relatedFilter, error) {
	rf := &relatedFilter{field: f}
	rf.exact, rf.hasExact = used[f.Name+"__exact"]
	rf.isnull, rf.hasNull = used[f.Name+"__isnull"]

	choices, err := relatedChoices(ctx, q, m, f, relatedOnly)
	if err != nil {
		return nil, err
	}
	rf.choices = append([]FilterChoice{{Label: "All", Value: "", Selected: !rf.hasExact && !rf.hasNull}}, choices...)
	for i := 1; i < len(rf.choices); i++ {
		rf.choices[i].Selected = rf.hasExact && rf.choices[i].Value == rf.exact
	}
	if f.Kind == model.KindFK && f.Null {
		rf.choices = append(rf.choices, FilterChoice{Label: "None", Value: "isnull", Selected: rf.hasNull && truthyString(rf.isnull)})
	}
	return rf, nil
}

func (rf *relatedFilter) Title() string { return rf.field.VerboseLabel() }

func (rf *relatedFilter) ExpectedParams() []string {
	return []string{rf.field.Name + "__exact", rf.field.Name + "__isnull"}
}

func (rf *relatedFilter) Apply(qs *QueryState) error {
	if rf.hasNull {
		return qs.AddLookupParam(rf.field.Name+"__isnull", rf.isnull)
	}
	if rf.hasExact {
		return qs.AddLookupParam(rf.field.Name+"__exact", rf.exact)
	}
	return nil
}

func (rf *relatedFilter) Choices() []FilterChoice { return rf.choices }

// Фильтр по связи без единого связанного объекта не показываем.
func (rf *relatedFilter) HasOutput() bool { return len(rf.choices) > 1 }

// ---- empty ----

type emptyFilter struct {
	field  *model.Field
	val    string
	hasVal bool
}

func newEmptyFilter(f *model.Field, used map[string]string) *emptyFilter {
	ef := &emptyFilter{field: f}
	ef.val, ef.hasVal = used[f.Name+"__isempty"]
	return ef
}

func (ef *emptyFilter) Title() string { return ef.field.VerboseLabel() }

func (ef *emptyFilter) ExpectedParams() []string {
	return []string{ef.field.Name + "__isempty"}
}

func (ef *emptyFilter) Apply(qs *QueryState) error {
	if !ef.hasVal {
		return nil
	}
	return qs.AddLookupParam(ef.field.Name+"__isempty", ef.val)
}

func (ef *emptyFilter) Choices() []FilterChoice {
	return []FilterChoice{
		{Label: "All", Value: "", Selected: !ef.hasVal},
		{Label: "Empty", Value: "1", Selected: ef.hasVal && truthyString(ef.val)},
		{Label: "Not empty", Value: "0", Selected: ef.hasVal && !truthyString(ef.val)},
	}
}

func (ef *emptyFilter) HasOutput() bool { return true }

// ---- all values ----

type allValuesFilter struct {
	field    *model.Field
	exact    string
	isnull   string
	hasExact bool
	hasNull  bool
	choices  []FilterChoice
}

func newAllValuesFilter(ctx context.Context, q db.Querier, m *model.Model, f *model.Field, used map[string]string) (*allValuesFilter, error) {
	af := &allValuesFilter{field: f}
	af.exact, af.hasExact = used[f.Name+"__exact"]
	af.isnull, af.hasNull = used[f.Name+"__isnull"]

	values, err := distinctValues(ctx, q, m, f)
	if err != nil {
		return nil, err
	}
	af.choices = make([]FilterChoice, 0, len(values)+2)
	af.choices = append(af.choices, FilterChoice{Label: "All", Value: "", Selected: !af.hasExact && !af.hasNull})
	for _, v := range values {
		af.choices = append(af.choices, FilterChoice{Label: v, Value: v, Selected: af.hasExact && af.exact == v})
	}
	if f.Null {
		af.choices = append(af.choices, FilterChoice{Label: "None", Value: "isnull", Selected: af.hasNull && truthyString(af.isnull)})
	}
	return af, nil
}

func (af *allValuesFilter) Title() string { return af.field.VerboseLabel() }

func (af *allValuesFilter) ExpectedParams() []string {
	return []string{af.field.Name + "__exact", af.field.Name + "__isnull"}
}

func (af *allValuesFilter) Apply(qs *QueryState) error {
	if af.hasNull {
		return qs.AddLookupParam(af.field.Name+"__isnull", af.isnull)
	}
	if af.hasExact {
		return qs.AddLookupParam(af.field.Name+"__exact", af.exact)
	}
	return nil
}

func (af *allValuesFilter) Choices() []FilterChoice { return af.choices }

func (af *allValuesFilter) HasOutput() bool { return len(af.choices) > 1 }
