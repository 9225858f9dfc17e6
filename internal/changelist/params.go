package changelist

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"YadminAPI/internal/adminerrs"
)

// Структурные параметры query string, не являющиеся фильтрами по полям.
const (
	PageVar     = "page"
	PageSizeVar = "page_size"
	OrderVar    = "o"
	SearchVar   = "q"
	AllVar      = "all"
	PopupVar    = "_popup"
	ToFieldVar  = "_to_field"
)

var structuralParams = map[string]bool{
	PageVar:     true,
	PageSizeVar: true,
	OrderVar:    true,
	SearchVar:   true,
	AllVar:      true,
	PopupVar:    true,
	ToFieldVar:  true,
}

// Params — разобранные структурные параметры одного changelist-запроса.
type Params struct {
	Page     int
	PageSize int
	Order    string
	Query    string
	ShowAll  bool
	IsPopup  bool

	// Неструктурные параметры (кандидаты в фильтры), первое значение каждого.
	Lookup map[string]string
}

// ParseParams валидирует структурные параметры. Ошибки агрегируются:
// клиент получает их все сразу, а не по одной.
func ParseParams(values url.Values, defaultPageSize int) (*Params, error) {
	p := &Params{
		Page:     1,
		PageSize: defaultPageSize,
		Lookup:   map[string]string{},
	}
	var problems []string

	if raw := values.Get(PageVar); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			problems = append(problems, fmt.Sprintf("invalid page %q", raw))
		} else {
			p.Page = n
		}
	}
	if raw := values.Get(PageSizeVar); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			problems = append(problems, fmt.Sprintf("invalid page_size %q", raw))
		} else {
			p.PageSize = n
		}
	}
	p.Order = values.Get(OrderVar)
	p.Query = strings.TrimSpace(values.Get(SearchVar))
	p.ShowAll = values.Get(AllVar) == "1"
	p.IsPopup = values.Get(PopupVar) != ""

	for key := range values {
		if structuralParams[key] {
			continue
		}
		p.Lookup[key] = values.Get(key)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", adminerrs.ErrIncorrectLookupParams, strings.Join(problems, "; "))
	}
	return p, nil
}

// PrepareLookupValue нормализует значение по оператору:
// "__in" режется по запятой, "__isnull" трактуется как truthiness
// ("", "false", "0" — false, всё остальное — true).
func PrepareLookupValue(key string, value string) any {
	if strings.HasSuffix(key, "__in") {
		return strings.Split(value, ",")
	}
	if strings.HasSuffix(key, "__isnull") {
		switch strings.ToLower(value) {
		case "", "false", "0":
			return false
		default:
			return true
		}
	}
	return value
}
