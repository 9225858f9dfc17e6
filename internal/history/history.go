package history

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"YadminAPI/internal/db"
)

// Флаги действий журнала, в терминах которых хранится вся история правок.
const (
	Addition = 1
	Change   = 2
	Deletion = 3
)

// Entry — одна запись журнала действий администратора.
type Entry struct {
	ID         string    `json:"id"`
	ActionTime time.Time `json:"action_time"`
	UserID     string    `json:"user_id"`
	Model      string    `json:"model"`
	ObjectID   string    `json:"object_id"`
	ObjectRepr string    `json:"object_repr"`
	ActionFlag int       `json:"action_flag"`
	Message    string    `json:"message"`
}

const table = "admin_log"

var cols = []string{"id", "action_time", "user_id", "model", "object_id", "object_repr", "action_flag", "message"}

// Log пишет запись журнала. Вызывается в той же транзакции, что и само
// изменение: откат транзакции откатывает и журнал.
func Log(ctx context.Context, q db.Querier, userID, modelName, objectID, repr string, flag int, message string) error {
	sb := squirrel.InsertBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Into(table).
		Columns(cols...).
		Values(uuid.NewString(), time.Now().UTC(), userID, modelName, objectID, repr, flag, message)
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, sqlStr, args...)
	return err
}

// ForObject возвращает страницу журнала по одному объекту, свежие сверху.
func ForObject(ctx context.Context, q db.Querier, modelName, objectID string, limit, offset int) ([]Entry, int64, error) {
	countSB := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Column("COUNT(*)").
		From(table).
		Where(squirrel.Eq{"model": modelName, "object_id": objectID})
	sqlStr, args, err := countSB.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := q.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar).
		Columns(cols...).
		From(table).
		Where(squirrel.Eq{"model": modelName, "object_id": objectID}).
		OrderBy("action_time DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	sqlStr, args, err = sb.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActionTime, &e.UserID, &e.Model, &e.ObjectID, &e.ObjectRepr, &e.ActionFlag, &e.Message); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
