package changelist

import (
	"strings"

	"github.com/Masterminds/squirrel"

	"YadminAPI/internal/model"
)

// SmartSplit токенизирует поисковую строку с учётом кавычек:
// `foo "bar baz"` -> ["foo", "bar baz"].
func SmartSplit(q string) []string {
	var terms []string
	var cur strings.Builder
	var quote rune

	flush := func() {
		if cur.Len() > 0 {
			terms = append(terms, cur.String())
			cur.Reset()
		}
	}

	for _, r := range q {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				flush()
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			flush()
			quote = r
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return terms
}

// ApplySearch добавляет полнотекстовый поиск по search_fields.
// Для каждого терма — OR по полям; термы соединяются через AND.
// Префиксы: "^" — поиск по началу, "=" — точное без регистра,
// "@" — полнотекстовый Postgres, без префикса — подстрока без регистра.
func ApplySearch(qs *QueryState, searchFields []string, query string) error {
	if query == "" || len(searchFields) == 0 {
		return nil
	}

	for _, term := range SmartSplit(query) {
		var perField []squirrel.Sqlizer
		for _, sf := range searchFields {
			op := "icontains"
			path := sf
			switch {
			case strings.HasPrefix(sf, "^"):
				op = "istartswith"
				path = sf[1:]
			case strings.HasPrefix(sf, "="):
				op = "iexact"
				path = sf[1:]
			case strings.HasPrefix(sf, "@"):
				op = "fulltext"
				path = sf[1:]
			}

			ref, err := qs.Model.ResolveLookup(path)
			if err != nil {
				return err
			}
			qs.AddJoins(ref.Joins)
			if ref.SpawnsDuplicates {
				qs.MarkDuplicates()
			}

			var cond squirrel.Sqlizer
			switch op {
			case "istartswith":
				cond = squirrel.ILike{ref.Column: escapeLike(term) + "%"}
			case "iexact":
				cond = squirrel.Expr("LOWER("+ref.Column+") = LOWER(?)", term)
			case "fulltext":
				cond = squirrel.Expr("to_tsvector('simple', "+ref.Column+") @@ plainto_tsquery('simple', ?)", term)
			default:
				cond = squirrel.ILike{ref.Column: "%" + escapeLike(term) + "%"}
			}
			perField = append(perField, cond)
		}
		if len(perField) > 0 {
			qs.AddCond(squirrel.Or(perField))
		}
	}
	return nil
}

// SearchSpawnsDuplicates: пересекает ли хотя бы одно поле поиска many-valued связь.
func SearchSpawnsDuplicates(m *model.Model, searchFields []string) bool {
	for _, sf := range searchFields {
		path := strings.TrimLeft(sf, "^=@")
		if m.LookupSpawnsDuplicates(path) {
			return true
		}
	}
	return false
}
