package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"healthlog/internal/domain"
)

var _ domain.RecordStore = (*DB)(nil)

const recordColumns = "id, user_id, to_char(date, 'YYYY-MM-DD'), weight, diet_score, water_score, exercise_score, mood_score, sleep_score, has_bowel_movement, notes, created_at, updated_at"

const recordInsertColumns = "user_id, date, weight, diet_score, water_score, exercise_score, mood_score, sleep_score, has_bowel_movement, notes"

// upsertTail replaces every column of an existing (user_id, date) row.
const upsertTail = ` ON CONFLICT (user_id, date) DO UPDATE SET
	weight = EXCLUDED.weight,
	diet_score = EXCLUDED.diet_score,
	water_score = EXCLUDED.water_score,
	exercise_score = EXCLUDED.exercise_score,
	mood_score = EXCLUDED.mood_score,
	sleep_score = EXCLUDED.sleep_score,
	has_bowel_movement = EXCLUDED.has_bowel_movement,
	notes = EXCLUDED.notes,
	updated_at = now()
RETURNING ` + recordColumns

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (domain.HealthRecord, error) {
	var (
		r                                   domain.HealthRecord
		diet, water, exercise, mood, sleepS sql.NullInt64
		bowel                               sql.NullBool
	)
	err := s.Scan(&r.ID, &r.UserID, &r.Date, &r.Weight, &diet, &water, &exercise, &mood, &sleepS, &bowel, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.HealthRecord{}, err
	}
	r.DietScore = nullInt(diet)
	r.WaterScore = nullInt(water)
	r.ExerciseScore = nullInt(exercise)
	r.MoodScore = nullInt(mood)
	r.SleepScore = nullInt(sleepS)
	if bowel.Valid {
		r.HasBowelMovement = domain.BoolPtr(bowel.Bool)
	}
	return r, nil
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	return domain.IntPtr(int(n.Int64))
}

func recordArgs(r domain.HealthRecord) []any {
	return []any{r.UserID, r.Date, r.Weight, r.DietScore, r.WaterScore, r.ExerciseScore, r.MoodScore, r.SleepScore, r.HasBowelMovement, r.Notes}
}

// ListRecords returns the user's records, newest date first.
func (d *DB) ListRecords(ctx context.Context, userID int64) ([]domain.HealthRecord, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM daily_records WHERE user_id = $1 ORDER BY date DESC;",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.HealthRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertOne inserts rec or replaces the existing row for (UserID, Date).
func (d *DB) UpsertOne(ctx context.Context, rec domain.HealthRecord) (*domain.HealthRecord, error) {
	r, err := scanRecord(d.sql.QueryRowContext(ctx,
		"INSERT INTO daily_records ("+recordInsertColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"+upsertTail+";",
		recordArgs(rec)...,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert record %s: %w", rec.Date, err)
	}
	return &r, nil
}

// UpsertMany writes recs in one multi-row statement, so the chunk commits or
// fails as a whole. Returned rows follow the database's order.
func (d *DB) UpsertMany(ctx context.Context, recs []domain.HealthRecord) ([]domain.HealthRecord, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	const cols = 10
	values := make([]string, 0, len(recs))
	args := make([]any, 0, len(recs)*cols)
	for i, r := range recs {
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", i*cols+j+1)
		}
		values = append(values, "("+strings.Join(ph, ", ")+")")
		args = append(args, recordArgs(r)...)
	}

	rows, err := d.sql.QueryContext(ctx,
		"INSERT INTO daily_records ("+recordInsertColumns+") VALUES "+strings.Join(values, ", ")+upsertTail+";",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert %d records: %w", len(recs), err)
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.HealthRecord, 0, len(recs))
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("upsert %d records: %w", len(recs), err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("upsert %d records: %w", len(recs), err)
	}
	return out, nil
}

// DeleteOne deletes one of the user's records.
func (d *DB) DeleteOne(ctx context.Context, userID, id int64) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM daily_records WHERE user_id = $1 AND id = $2;", userID, id)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	return nil
}

// DeleteMany deletes the user's records with the given ids in one statement.
func (d *DB) DeleteMany(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := d.sql.ExecContext(ctx, "DELETE FROM daily_records WHERE user_id = $1 AND id = ANY($2);", userID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete %d records: %w", len(ids), err)
	}
	return nil
}

// DatesWithRecords returns which of dates already hold a record for the user.
func (d *DB) DatesWithRecords(ctx context.Context, userID int64, dates []string) ([]string, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	rows, err := d.sql.QueryContext(ctx,
		"SELECT to_char(date, 'YYYY-MM-DD') FROM daily_records WHERE user_id = $1 AND date = ANY($2::date[]) ORDER BY date;",
		userID, pq.Array(dates),
	)
	if err != nil {
		return nil, fmt.Errorf("check dates: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var found []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("check dates: %w", err)
		}
		found = append(found, day)
	}
	return found, rows.Err()
}
