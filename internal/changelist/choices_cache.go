package changelist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"YadminAPI/internal/db"
	"YadminAPI/internal/logger"
	"YadminAPI/internal/model"
)

var (
	choiceCacheTTL = 5 * time.Minute
	choiceCacheMax = int64(1000)
)

// SetChoiceCache настраивает кэш пунктов all-values фильтров (вызывается из main).
func SetChoiceCache(ttlSeconds, maxValues int64) {
	if ttlSeconds > 0 {
		choiceCacheTTL = time.Duration(ttlSeconds) * time.Second
	}
	if maxValues > 0 {
		choiceCacheMax = maxValues
	}
}

// distinctValues возвращает отличные значения колонки для all-values фильтра.
// Сначала пробуем Redis; при промахе — DISTINCT по живой колонке и запись в кэш.
// Без Redis (RDB == nil) работаем напрямую.
func distinctValues(ctx context.Context, q db.Querier, m *model.Model, f *model.Field) ([]string, error) {
	redisKey := fmt.Sprintf("choices:%s:%s", m.Name, f.Name)

	if db.RDB != nil {
		cachedStr, err := db.RDB.Get(ctx, redisKey).Result()
		if err == nil {
			var values []string
			if err := json.Unmarshal([]byte(cachedStr), &values); err == nil {
				return values, nil
			}
			// битый кэш — считаем промахом и перезаписываем
		}
	}

	col := f.ColumnName()
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Column("DISTINCT " + col).
		From(m.Table).
		Where(squirrel.Expr(col + " IS NOT NULL")).
		OrderBy(col).
		Limit(uint64(choiceCacheMax))
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, fmt.Sprintf("%v", v))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if db.RDB != nil {
		jsonData, err := json.Marshal(values)
		if err == nil {
			if err := db.RDB.Set(ctx, redisKey, jsonData, choiceCacheTTL).Err(); err != nil {
				logger.Warn("choice_cache_set_failed", map[string]any{
					"key":   redisKey,
					"error": err.Error(),
				})
			}
		}
	}

	return values, nil
}

// relatedChoices грузит пункты related-фильтра из целевой модели.
// relatedOnly ограничивает пункты id-шниками, встречающимися у родителя.
func relatedChoices(ctx context.Context, q db.Querier, m *model.Model, f *model.Field, relatedOnly bool) ([]FilterChoice, error) {
	target := f.RelRef()
	if target == nil {
		return nil, fmt.Errorf("field '%s' has no linked model", f.Name)
	}

	cols := make([]string, 0, len(target.Fields))
	names := make([]string, 0, len(target.Fields))
	for _, tf := range target.Fields {
		if !tf.Concrete() {
			continue
		}
		cols = append(cols, tf.ColumnName())
		names = append(names, tf.Name)
	}

	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Columns(cols...).
		From(target.Table)

	if relatedOnly {
		var sub squirrel.SelectBuilder
		switch f.Kind {
		case model.KindFK:
			sub = squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
				Column("DISTINCT " + f.ColumnName()).From(m.Table).
				Where(squirrel.Expr(f.ColumnName() + " IS NOT NULL"))
		case model.KindM2M:
			sub = squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
				Column("DISTINCT " + f.FarFK).From(f.Through)
		}
		sb = sb.Where(squirrel.Expr(target.PKColumn()+" IN (?)", sub))
	}

	// limit_choices_to: статические равенства из конфигурации поля
	for k, v := range f.LimitChoicesTo {
		sb = sb.Where(squirrel.Eq{k: v})
	}
	for _, ord := range target.DefaultOrdering() {
		if len(ord) > 0 && ord[0] == '-' {
			sb = sb.OrderBy(ord[1:] + " DESC")
		} else {
			sb = sb.OrderBy(ord)
		}
	}
	sb = sb.Limit(uint64(choiceCacheMax))

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FilterChoice
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(vals))
		for i := 0; i < len(vals) && i < len(names); i++ {
			row[names[i]] = vals[i]
		}
		out = append(out, FilterChoice{
			Label: target.Repr(row),
			Value: fmt.Sprintf("%v", row[target.PKName()]),
		})
	}
	return out, rows.Err()
}
