package normalize

import (
	"strings"
	"time"

	"healthlog/internal/domain"
)

// Row is one raw import row keyed by column header or JSON field name.
type Row map[string]any

// Alias lists in lookup priority. When a row carries several aliases for the
// same field the first one present wins; later entries only extend coverage.
var (
	weightKeys   = []string{"weight", "Weight", "体重", "体重(kg)", "Weight (kg)"}
	notesKeys    = []string{"notes", "Notes", "备注"}
	dietKeys     = []string{"diet_score", "饮食评分", "Diet Score", "dietScore"}
	waterKeys    = []string{"water_score", "饮水评分", "Water Score", "waterScore"}
	exerciseKeys = []string{"exercise_score", "运动评分", "Exercise Score", "exerciseScore"}
	moodKeys     = []string{"mood_score", "心情评分", "Mood Score", "moodScore"}
	sleepKeys    = []string{"sleep_condition", "睡眠评分", "Sleep Score", "sleepScore"}
	bowelKeys    = []string{"has_bowel_movement", "排便情况", "Bowel Movement", "hasBowelMovement"}
	dateKeys     = []string{"date", "Date", "日期"}
)

// lookup returns the first alias holding a non-nil, non-blank value.
func (r Row) lookup(keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// Normalizer maps raw rows to candidate records. The zero value uses the
// wall clock and time.Local.
type Normalizer struct {
	Now      func() time.Time
	Location *time.Location
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n Normalizer) loc() *time.Location {
	if n.Location != nil {
		return n.Location
	}
	return time.Local
}

// Row normalizes a single raw row for userID. A weight that is missing,
// unparseable or not positive is returned as 0 so Validate drops the record.
func (n Normalizer) Row(row Row, userID int64) domain.HealthRecord {
	rec := domain.HealthRecord{
		UserID:           userID,
		DietScore:        n.score(row, dietKeys),
		WaterScore:       n.score(row, waterKeys),
		ExerciseScore:    n.score(row, exerciseKeys),
		MoodScore:        n.score(row, moodKeys),
		SleepScore:       n.score(row, sleepKeys),
		HasBowelMovement: domain.BoolPtr(false),
	}

	if v, ok := row.lookup(weightKeys); ok {
		if w, ok := Float(v); ok && w > 0 {
			rec.Weight = w
		}
	}
	if v, ok := row.lookup(notesKeys); ok {
		rec.Notes = toText(v)
	}
	if v, ok := row.lookup(bowelKeys); ok {
		rec.HasBowelMovement = domain.BoolPtr(Bool(v))
	}

	v, _ := row.lookup(dateKeys)
	rec.Date = Day(v, n.now(), n.loc())
	return rec
}

// Rows normalizes a batch, preserving input order.
func (n Normalizer) Rows(rows []Row, userID int64) []domain.HealthRecord {
	out := make([]domain.HealthRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, n.Row(r, userID))
	}
	return out
}

// score reads a 0-10 rating. Unparseable or out-of-range input becomes the
// 0 "unset" sentinel.
func (n Normalizer) score(row Row, keys []string) *int {
	v, ok := row.lookup(keys)
	if !ok {
		return domain.IntPtr(0)
	}
	s, ok := Int(v)
	if !ok || s < domain.MinScore || s > domain.MaxScore {
		return domain.IntPtr(0)
	}
	return domain.IntPtr(s)
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		return x.Format(domain.DayLayout)
	}
	if f, ok := Float(v); ok {
		return formatNumber(f)
	}
	if b, ok := v.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	return ""
}

// Today returns the current calendar day in the normalizer's location.
func (n Normalizer) Today() string {
	return n.now().In(n.loc()).Format(domain.DayLayout)
}
