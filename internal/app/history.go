package app

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"healthlog/internal/domain"
)

// HistoryQuery is the caller-owned filter state for the history view.
// Empty fields do not filter.
type HistoryQuery struct {
	Search string
	From   string
	To     string
}

// WeightChange is the difference to the next older record in a view.
type WeightChange struct {
	Value  float64 `json:"value"`
	IsGain bool    `json:"isGain"`
}

// HistoryItem is a record plus its weight change, nil for the oldest row.
type HistoryItem struct {
	domain.HealthRecord
	Change *WeightChange `json:"change"`
}

// Match reports whether r passes the date range and search term. The term
// matches date, weight and scores as substrings and notes case-insensitively.
func (q HistoryQuery) Match(r domain.HealthRecord) bool {
	if q.From != "" && r.Date < q.From {
		return false
	}
	if q.To != "" && r.Date > q.To {
		return false
	}
	term := strings.TrimSpace(q.Search)
	if term == "" {
		return true
	}
	if strings.Contains(r.Date, term) ||
		strings.Contains(strconv.FormatFloat(r.Weight, 'f', -1, 64), term) ||
		strings.Contains(strings.ToLower(r.Notes), strings.ToLower(term)) {
		return true
	}
	for _, s := range []*int{r.DietScore, r.WaterScore, r.ExerciseScore, r.MoodScore, r.SleepScore} {
		if s != nil && strings.Contains(strconv.Itoa(*s), term) {
			return true
		}
	}
	return false
}

// FilterRecords returns the records matching q in their original order.
func FilterRecords(recs []domain.HealthRecord, q HistoryQuery) []domain.HealthRecord {
	out := make([]domain.HealthRecord, 0, len(recs))
	for _, r := range recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// WithChanges annotates newest-first records with the change from the
// following (older) record, rounded to one decimal.
func WithChanges(recs []domain.HealthRecord) []HistoryItem {
	items := make([]HistoryItem, len(recs))
	for i, r := range recs {
		items[i].HealthRecord = r
		if i == len(recs)-1 {
			continue
		}
		diff := decimal.NewFromFloat(r.Weight).Sub(decimal.NewFromFloat(recs[i+1].Weight))
		items[i].Change = &WeightChange{
			Value:  diff.Round(1).InexactFloat64(),
			IsGain: diff.IsPositive(),
		}
	}
	return items
}
