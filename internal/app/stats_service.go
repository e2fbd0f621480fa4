package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"healthlog/internal/domain"
)

// ErrInvalidUnit indicates a chart unit other than kg or lb.
var ErrInvalidUnit = errors.New("unit must be \"kg\" or \"lb\"")

// StatsService computes dashboard figures from the user's records.
type StatsService struct {
	records domain.RecordStore
	now     func() time.Time
}

// NewStatsService creates a StatsService backed by the given store.
func NewStatsService(records domain.RecordStore) *StatsService {
	return &StatsService{records: records, now: time.Now}
}

// Summary holds dashboard aggregates. Score averages only consider records
// where the score is set.
type Summary struct {
	Count            int     `json:"count"`
	CurrentWeight    float64 `json:"currentWeight"`
	StartWeight      float64 `json:"startWeight"`
	WeightLost       float64 `json:"weightLost"`
	AverageWeight    float64 `json:"averageWeight"`
	AvgDietScore     float64 `json:"avgDietScore"`
	AvgWaterScore    float64 `json:"avgWaterScore"`
	AvgExerciseScore float64 `json:"avgExerciseScore"`
	AvgMoodScore     float64 `json:"avgMoodScore"`
	AvgSleepScore    float64 `json:"avgSleepScore"`
	BowelPercentage  float64 `json:"bowelPercentage"`
}

// ChartPoint is one day of the weight series.
type ChartPoint struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	Unit   string  `json:"unit"`
}

// Summary loads the user's records and aggregates them.
func (s *StatsService) Summary(ctx context.Context, userID int64) (*Summary, error) {
	recs, err := s.records.ListRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum := Summarize(recs)
	return &sum, nil
}

// Summarize aggregates records in any order. The current weight is from the
// newest day, the start weight from the oldest.
func Summarize(recs []domain.HealthRecord) Summary {
	if len(recs) == 0 {
		return Summary{}
	}
	sorted := newestFirst(recs)

	total := decimal.Zero
	for _, r := range sorted {
		total = total.Add(decimal.NewFromFloat(r.Weight))
	}
	current := sorted[0].Weight
	start := sorted[len(sorted)-1].Weight

	var bowelSet, bowelYes int
	for _, r := range sorted {
		if r.HasBowelMovement != nil {
			bowelSet++
			if *r.HasBowelMovement {
				bowelYes++
			}
		}
	}
	bowel := decimal.Zero
	if bowelSet > 0 {
		bowel = decimal.NewFromInt(int64(bowelYes)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(bowelSet)))
	}

	return Summary{
		Count:            len(sorted),
		CurrentWeight:    current,
		StartWeight:      start,
		WeightLost:       decimal.NewFromFloat(start).Sub(decimal.NewFromFloat(current)).Round(2).InexactFloat64(),
		AverageWeight:    total.Div(decimal.NewFromInt(int64(len(sorted)))).Round(1).InexactFloat64(),
		AvgDietScore:     avgScore(sorted, func(r domain.HealthRecord) *int { return r.DietScore }),
		AvgWaterScore:    avgScore(sorted, func(r domain.HealthRecord) *int { return r.WaterScore }),
		AvgExerciseScore: avgScore(sorted, func(r domain.HealthRecord) *int { return r.ExerciseScore }),
		AvgMoodScore:     avgScore(sorted, func(r domain.HealthRecord) *int { return r.MoodScore }),
		AvgSleepScore:    avgScore(sorted, func(r domain.HealthRecord) *int { return r.SleepScore }),
		BowelPercentage:  bowel.Round(0).InexactFloat64(),
	}
}

func avgScore(recs []domain.HealthRecord, field func(domain.HealthRecord) *int) float64 {
	var sum, n int64
	for _, r := range recs {
		if v := field(r); v != nil {
			sum += int64(*v)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return decimal.NewFromInt(sum).Div(decimal.NewFromInt(n)).Round(1).InexactFloat64()
}

// Chart returns the weight series for the last days days, oldest first,
// converted to unit.
func (s *StatsService) Chart(ctx context.Context, userID int64, days int, unit string) ([]ChartPoint, error) {
	if !domain.ValidUnit(unit) {
		return nil, ErrInvalidUnit
	}
	if days > 366 {
		days = 366
	}
	if days < 1 {
		days = 1
	}

	recs, err := s.records.ListRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	since := s.now().In(time.Local).AddDate(0, 0, -(days - 1)).Format(domain.DayLayout)
	sorted := newestFirst(recs)
	points := make([]ChartPoint, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		r := sorted[i]
		if r.Date < since {
			continue
		}
		w := domain.ConvertWeight(r.Weight, domain.UnitKg, unit)
		points = append(points, ChartPoint{
			Date:   r.Date,
			Weight: decimal.NewFromFloat(w).Round(2).InexactFloat64(),
			Unit:   unit,
		})
	}
	return points, nil
}

func newestFirst(recs []domain.HealthRecord) []domain.HealthRecord {
	sorted := append([]domain.HealthRecord(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })
	return sorted
}
