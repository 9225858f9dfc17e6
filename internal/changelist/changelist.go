package changelist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"

	"YadminAPI/internal/adminerrs"
	"YadminAPI/internal/db"
	"YadminAPI/internal/model"
	"YadminAPI/internal/records"
	"YadminAPI/internal/schema"
)

// Row — одна строка ченжлиста: pk, строковое представление и ячейки
// в порядке list_display.
type Row struct {
	PK    any            `json:"pk"`
	Repr  string         `json:"repr"`
	Cells map[string]any `json:"cells"`
}

// FilterView — сериализуемое описание фильтра для боковой панели.
type FilterView struct {
	Title   string         `json:"title"`
	Params  []string       `json:"params"`
	Choices []FilterChoice `json:"choices"`
}

// ListConfig — метаданные страницы: фильтры, сортировка, счётчики,
// пагинация и формо-описания редактируемых столбцов.
type ListConfig struct {
	Model           string                       `json:"model"`
	Links           []string                     `json:"links"`
	Editable        []schema.FormFieldDescriptor `json:"editable"`
	Filters         []FilterView                 `json:"filters"`
	SearchUsed      bool                         `json:"search_used"`
	Ordering        []string                     `json:"ordering"`
	ResultCount     int64                        `json:"result_count"`
	FullResultCount *int64                       `json:"full_result_count,omitempty"`
	Page            int                          `json:"page"`
	NumPages        int                          `json:"num_pages"`
	PageSize        int                          `json:"page_size"`
	MultiPage       bool                         `json:"multi_page"`
	ShowAll         bool                         `json:"show_all"`
	IsPopup         bool                         `json:"is_popup"`
}

// Changelist — конверт ответа: {config, columns, rows}.
type Changelist struct {
	Config  ListConfig `json:"config"`
	Columns []string   `json:"columns"`
	Rows    []Row      `json:"rows"`
}

// Build выполняет весь конвейер ченжлиста над произвольными query-параметрами.
func Build(ctx context.Context, q db.Querier, m *model.Model, values url.Values) (*Changelist, error) {
	admin := m.Admin

	params, err := ParseParams(values, admin.ListPerPage)
	if err != nil {
		return nil, err
	}

	qs := NewQueryState(m)

	specs, remaining, err := ResolveFilters(ctx, q, m, admin, params.Lookup)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if err := spec.Apply(qs); err != nil {
			return nil, err
		}
	}

	// Незаявленные lookup-параметры применяются напрямую, но только после
	// проверки, что путь разрешён (защита от раскрытия данных через join).
	keys := make([]string, 0, len(remaining))
	for k := range remaining {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := checkLookupAllowed(m, admin, key); err != nil {
			return nil, err
		}
		if err := qs.AddLookupParam(key, remaining[key]); err != nil {
			if errors.Is(err, adminerrs.ErrFieldDoesNotExist) || errors.Is(err, adminerrs.ErrNotARelation) {
				return nil, fmt.Errorf("%w: %v", adminerrs.ErrIncorrectLookupParams, err)
			}
			return nil, err
		}
	}

	if params.Query != "" && len(admin.SearchFields) > 0 {
		if err := ApplySearch(qs, admin.SearchFields, params.Query); err != nil {
			return nil, err
		}
		if SearchSpawnsDuplicates(m, admin.SearchFields) {
			qs.MarkDuplicates()
		}
	}

	resultCount, err := runCount(ctx, q, qs.CountSelect())
	if err != nil {
		return nil, err
	}
	var fullCount *int64
	if admin.ShowFullResultCount == nil || *admin.ShowFullResultCount {
		n, err := runCount(ctx, q, squirrel.SelectBuilder{}.
			PlaceholderFormat(squirrel.Dollar).
			Column("COUNT(*)").
			From(m.Table))
		if err != nil {
			return nil, err
		}
		fullCount = &n
	}

	terms, err := ResolveOrdering(m, admin, params.Order)
	if err != nil {
		return nil, err
	}
	terms = EnsureDeterministic(m, terms)

	showAll := params.ShowAll && resultCount <= int64(admin.ListMaxShowAll)
	perPage := params.PageSize
	numPages := int((resultCount + int64(perPage) - 1) / int64(perPage))
	if numPages == 0 {
		numPages = 1
	}
	multiPage := resultCount > int64(perPage)
	if !showAll && params.Page > numPages {
		return nil, fmt.Errorf("%w: page %d of %d", adminerrs.ErrPageOutOfRange, params.Page, numPages)
	}

	sel := rowsSelect(qs, m, terms)
	if !showAll {
		sel = sel.Limit(uint64(perPage)).Offset(uint64((params.Page - 1) * perPage))
	}
	recs, err := runRows(ctx, q, m, sel)
	if err != nil {
		return nil, err
	}

	rows, err := materialize(ctx, q, m, admin, recs)
	if err != nil {
		return nil, err
	}

	cl := &Changelist{
		Config: ListConfig{
			Model:           m.Name,
			Links:           admin.ListDisplayLinks,
			Editable:        EditableDescriptors(m, admin),
			Filters:         filterViews(specs),
			SearchUsed:      params.Query != "",
			Ordering:        orderingNames(terms),
			ResultCount:     resultCount,
			FullResultCount: fullCount,
			Page:            params.Page,
			NumPages:        numPages,
			PageSize:        perPage,
			MultiPage:       multiPage,
			ShowAll:         showAll,
			IsPopup:         params.IsPopup,
		},
		Columns: admin.ListDisplay,
		Rows:    rows,
	}
	return cl, nil
}

// EditableDescriptors — формо-описания полей list_editable в их порядке.
// Фронт рендерит по ним inline-ячейки, не запрашивая add-форму.
func EditableDescriptors(m *model.Model, admin *model.AdminConfig) []schema.FormFieldDescriptor {
	if len(admin.ListEditable) == 0 {
		return []schema.FormFieldDescriptor{}
	}
	byName := map[string]schema.FormFieldDescriptor{}
	for _, d := range schema.Project(m, admin, nil) {
		byName[d.Name] = d
	}
	out := make([]schema.FormFieldDescriptor, 0, len(admin.ListEditable))
	for _, name := range admin.ListEditable {
		if d, ok := byName[name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// SelectedIDs прогоняет фильтры и поиск без пагинации и возвращает pk всех
// записей отфильтрованного набора (нужно действиям с select_across).
func SelectedIDs(ctx context.Context, q db.Querier, m *model.Model, values url.Values) ([]any, error) {
	admin := m.Admin
	params, err := ParseParams(values, admin.ListPerPage)
	if err != nil {
		return nil, err
	}
	qs := NewQueryState(m)
	specs, remaining, err := ResolveFilters(ctx, q, m, admin, params.Lookup)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if err := spec.Apply(qs); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(remaining))
	for k := range remaining {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := checkLookupAllowed(m, admin, key); err != nil {
			return nil, err
		}
		if err := qs.AddLookupParam(key, remaining[key]); err != nil {
			return nil, err
		}
	}
	if params.Query != "" && len(admin.SearchFields) > 0 {
		if err := ApplySearch(qs, admin.SearchFields, params.Query); err != nil {
			return nil, err
		}
	}

	sqlStr, args, err := qs.IDSelect().ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []any{}
	seen := map[string]bool{}
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%v", id)
		if seen[key] {
			continue
		}
		seen[key] = true
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// checkLookupAllowed реализует политику незаявленных параметров: локальные
// пути всегда можно, путь через связь — только если связь покрыта list_filter
// или у fk объявлен limit_choices_to.
func checkLookupAllowed(m *model.Model, admin *model.AdminConfig, key string) error {
	ref, err := m.ResolveLookup(key)
	if err != nil {
		if errors.Is(err, adminerrs.ErrDisallowedLookup) {
			return err
		}
		return fmt.Errorf("%w: %v", adminerrs.ErrIncorrectLookupParams, err)
	}
	if ref.RelationPath == "" {
		return nil
	}
	for _, decl := range admin.ListFilter {
		if decl.Field == ref.RelationPath {
			return nil
		}
	}
	if f := m.GetField(ref.RelationPath); f != nil && len(f.LimitChoicesTo) > 0 {
		return nil
	}
	if admin.DateHierarchy == ref.RelationPath {
		return nil
	}
	return fmt.Errorf("%w: %s", adminerrs.ErrDisallowedLookup, key)
}

func rowsSelect(qs *QueryState, m *model.Model, terms []OrderTerm) squirrel.SelectBuilder {
	cols, _ := records.PrefixedColumns(m, "main")
	sel := qs.RowsSelect(cols...)
	order := make([]string, 0, len(terms))
	for _, t := range terms {
		order = append(order, t.SQL())
	}
	return sel.OrderBy(order...)
}

func runCount(ctx context.Context, q db.Querier, sb squirrel.SelectBuilder) (int64, error) {
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func runRows(ctx context.Context, q db.Querier, m *model.Model, sb squirrel.SelectBuilder) ([]map[string]any, error) {
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	_, names := records.Columns(m)
	out := []map[string]any{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, records.RowToMap(names, vals))
	}
	return out, rows.Err()
}

// materialize превращает записи в строки ченжлиста: подставляет подписи
// choices, плейсхолдер пустого значения и строковые представления fk
// (связанные записи добираются одним батчем на поле).
func materialize(ctx context.Context, q db.Querier, m *model.Model, admin *model.AdminConfig, recs []map[string]any) ([]Row, error) {
	reprs := map[string]map[string]string{}
	for _, col := range admin.ListDisplay {
		f := m.GetField(col)
		if f == nil || f.Kind != model.KindFK {
			continue
		}
		related, err := fkReprs(ctx, q, m, f, recs)
		if err != nil {
			return nil, err
		}
		reprs[col] = related
	}

	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		cells := make(map[string]any, len(admin.ListDisplay))
		for _, col := range admin.ListDisplay {
			cells[col] = renderCell(m, admin, col, rec, reprs[col])
		}
		rows = append(rows, Row{
			PK:    rec[m.PKName()],
			Repr:  m.Repr(rec),
			Cells: cells,
		})
	}
	return rows, nil
}

func fkReprs(ctx context.Context, q db.Querier, m *model.Model, f *model.Field, recs []map[string]any) (map[string]string, error) {
	target := f.RelRef()
	if target == nil {
		return nil, fmt.Errorf("fk '%s.%s' targets unknown model '%s'", m.Name, f.Name, f.Model)
	}
	seen := map[string]bool{}
	ids := []any{}
	for _, rec := range recs {
		v := rec[f.Name]
		if v == nil {
			continue
		}
		key := fmt.Sprintf("%v", v)
		if !seen[key] {
			seen[key] = true
			ids = append(ids, v)
		}
	}
	byID, err := records.FetchByIDs(ctx, q, target, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(byID))
	for id, rec := range byID {
		out[id] = target.Repr(rec)
	}
	return out, nil
}

func renderCell(m *model.Model, admin *model.AdminConfig, col string, rec map[string]any, related map[string]string) any {
	if col == "__str__" {
		return m.Repr(rec)
	}
	f := m.GetField(col)
	v := rec[col]
	if v == nil {
		return admin.EmptyValueDisplay
	}
	switch f.Kind {
	case model.KindFK:
		// Висячая ссылка рендерится как пустое значение, а не падает.
		if repr, ok := related[fmt.Sprintf("%v", v)]; ok {
			return repr
		}
		return admin.EmptyValueDisplay
	case model.KindChoice:
		if label, ok := f.ChoiceLabel(v); ok {
			return label
		}
		return v
	case model.KindString, model.KindText:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return admin.EmptyValueDisplay
		}
	}
	return v
}

func filterViews(specs []FilterSpec) []FilterView {
	views := []FilterView{}
	for _, spec := range specs {
		if !spec.HasOutput() {
			continue
		}
		views = append(views, FilterView{
			Title:   spec.Title(),
			Params:  spec.ExpectedParams(),
			Choices: spec.Choices(),
		})
	}
	return views
}

func orderingNames(terms []OrderTerm) []string {
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		names = append(names, t.Name())
	}
	return names
}
