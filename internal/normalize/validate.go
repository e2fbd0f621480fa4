package normalize

import (
	"errors"
	"strconv"

	"healthlog/internal/domain"
)

var (
	// ErrNotArray is returned when a JSON import is not a top-level array.
	ErrNotArray = errors.New("import file must contain a JSON array of records")
	// ErrNoRows is returned when an import source holds no data rows at all.
	ErrNoRows = errors.New("import file contains no data rows")
	// ErrNoValidRows is returned when every row was rejected by validation.
	ErrNoValidRows = errors.New("no valid records found: every row needs a positive weight")
)

// Validate keeps records with a positive weight, in input order, and
// reports how many were dropped. Dropped rows are not reported individually.
func Validate(recs []domain.HealthRecord) ([]domain.HealthRecord, int, error) {
	valid := make([]domain.HealthRecord, 0, len(recs))
	for _, r := range recs {
		if r.Weight > 0 {
			valid = append(valid, r)
		}
	}
	skipped := len(recs) - len(valid)
	if len(valid) == 0 {
		return nil, skipped, ErrNoValidRows
	}
	return valid, skipped, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
