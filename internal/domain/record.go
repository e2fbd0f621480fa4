package domain

import (
	"context"
	"time"
)

// DayLayout is the canonical calendar-day format used for record dates.
const DayLayout = "2006-01-02"

// Score bounds shared by every 0-10 rating field. Zero doubles as "unset" in
// imported data.
const (
	MinScore = 0
	MaxScore = 10
)

// HealthRecord is one user's entry for one calendar day.
type HealthRecord struct {
	ID               int64     `json:"id,omitempty"`
	UserID           int64     `json:"userId"`
	Date             string    `json:"date"`
	Weight           float64   `json:"weight"`
	DietScore        *int      `json:"dietScore"`
	WaterScore       *int      `json:"waterScore"`
	ExerciseScore    *int      `json:"exerciseScore"`
	MoodScore        *int      `json:"moodScore"`
	SleepScore       *int      `json:"sleepScore"`
	HasBowelMovement *bool     `json:"hasBowelMovement"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"createdAt,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt,omitempty"`
}

// RecordStore is the port for daily record persistence. Writes are upserts
// keyed on (userID, date): an existing day is fully replaced.
type RecordStore interface {
	// ListRecords returns every record for the user, newest date first.
	ListRecords(ctx context.Context, userID int64) ([]HealthRecord, error)
	UpsertOne(ctx context.Context, rec HealthRecord) (*HealthRecord, error)
	UpsertMany(ctx context.Context, recs []HealthRecord) ([]HealthRecord, error)
	DeleteOne(ctx context.Context, userID, id int64) error
	DeleteMany(ctx context.Context, userID int64, ids []int64) error
	// DatesWithRecords returns the subset of dates that already hold a record
	// for the user.
	DatesWithRecords(ctx context.Context, userID int64, dates []string) ([]string, error)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
