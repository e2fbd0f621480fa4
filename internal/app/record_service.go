package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"healthlog/internal/domain"
	"healthlog/internal/metrics"
	"healthlog/internal/normalize"
)

var (
	// ErrInvalidWeight indicates a submission without a positive weight.
	ErrInvalidWeight = errors.New("weight must be a number greater than 0")
	// ErrInvalidRecord indicates a submission that failed field validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrInvalidID indicates a non-positive record id.
	ErrInvalidID = errors.New("record id must be positive")
)

// DuplicateDatesError rejects a whole import because some dates would
// overwrite existing days, or appear more than once in the file.
type DuplicateDatesError struct {
	Dates   []string
	InBatch bool
}

func (e *DuplicateDatesError) Error() string {
	if e.InBatch {
		return "import rejected: the file lists these dates more than once: " + strings.Join(e.Dates, ", ")
	}
	return "import rejected: records already exist for these dates: " + strings.Join(e.Dates, ", ")
}

// Submission is a single record entered by the user. Weight is a pointer so
// a missing value can be told apart from zero.
type Submission struct {
	Date             string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Weight           *float64 `json:"weight" validate:"required,gt=0"`
	DietScore        *int     `json:"dietScore" validate:"omitempty,min=0,max=10"`
	WaterScore       *int     `json:"waterScore" validate:"omitempty,min=0,max=10"`
	ExerciseScore    *int     `json:"exerciseScore" validate:"omitempty,min=0,max=10"`
	MoodScore        *int     `json:"moodScore" validate:"omitempty,min=0,max=10"`
	SleepScore       *int     `json:"sleepScore" validate:"omitempty,min=0,max=10"`
	HasBowelMovement *bool    `json:"hasBowelMovement"`
	Notes            string   `json:"notes" validate:"max=4000"`
}

// ImportResult summarises a successful bulk import.
type ImportResult struct {
	Imported int                   `json:"imported"`
	Skipped  int                   `json:"skipped"`
	Records  []domain.HealthRecord `json:"-"`
}

// RecordService encapsulates daily record use cases: single submission,
// history, deletion and the bulk import pipeline.
type RecordService struct {
	store    domain.RecordStore
	norm     normalize.Normalizer
	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewRecordService creates a RecordService backed by the given store.
func NewRecordService(store domain.RecordStore, log logrus.FieldLogger) *RecordService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RecordService{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// WithNormalizer replaces the clock and location used to resolve dates.
func (s *RecordService) WithNormalizer(n normalize.Normalizer) *RecordService {
	s.norm = n
	return s
}

// Submit validates a single record and upserts it for (userID, date). An
// existing record for that day is replaced field for field. Invalid input is
// rejected without touching the store.
func (s *RecordService) Submit(ctx context.Context, userID int64, sub Submission) (*domain.HealthRecord, error) {
	if err := s.validate.Struct(sub); err != nil {
		return nil, submissionError(err)
	}

	rec := domain.HealthRecord{
		UserID:           userID,
		Date:             sub.Date,
		Weight:           *sub.Weight,
		DietScore:        sub.DietScore,
		WaterScore:       sub.WaterScore,
		ExerciseScore:    sub.ExerciseScore,
		MoodScore:        sub.MoodScore,
		SleepScore:       sub.SleepScore,
		HasBowelMovement: sub.HasBowelMovement,
		Notes:            strings.TrimSpace(sub.Notes),
	}
	if rec.Date == "" {
		rec.Date = s.norm.Today()
	}

	out, err := s.store.UpsertOne(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "date": rec.Date}).Debug("record saved")
	return out, nil
}

func submissionError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "Weight":
			return ErrInvalidWeight
		case "Date":
			msgs = append(msgs, "date must be YYYY-MM-DD")
		case "Notes":
			msgs = append(msgs, "notes are too long")
		default:
			msgs = append(msgs, fmt.Sprintf("%s must be between %d and %d", fe.Field(), domain.MinScore, domain.MaxScore))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(msgs, "; "))
}

// List returns every record for the user, newest first.
func (s *RecordService) List(ctx context.Context, userID int64) ([]domain.HealthRecord, error) {
	return s.store.ListRecords(ctx, userID)
}

// History returns the user's records filtered by q, each annotated with the
// weight change from the next older record in the filtered view.
func (s *RecordService) History(ctx context.Context, userID int64, q HistoryQuery) ([]HistoryItem, error) {
	recs, err := s.store.ListRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	return WithChanges(FilterRecords(recs, q)), nil
}

// Delete removes one record owned by the user.
func (s *RecordService) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.store.DeleteOne(ctx, userID, id)
}

// BulkDelete removes the given records in chunks of ChunkSize. An empty id
// list is a no-op. On failure a *ChunkError reports how many ids were
// already deleted.
func (s *RecordService) BulkDelete(ctx context.Context, userID int64, ids []int64) error {
	for _, id := range ids {
		if id <= 0 {
			return ErrInvalidID
		}
	}
	if err := deleteChunked(ctx, s.store, userID, ids); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("bulk delete failed")
		return err
	}
	return nil
}

// Import runs the bulk import pipeline: normalize every row, drop rows
// without a positive weight, refuse the batch if any date already holds a
// record, then upsert in chunks of ChunkSize.
//
// The duplicate check and the writes are separate store calls, so a
// concurrent writer can still claim a date in between; last write wins.
func (s *RecordService) Import(ctx context.Context, userID int64, rows []normalize.Row) (*ImportResult, error) {
	logger := s.log.WithFields(logrus.Fields{"user_id": userID, "rows": len(rows)})
	if len(rows) == 0 {
		metrics.RecordImportRejected("no_rows")
		return nil, normalize.ErrNoRows
	}

	valid, skipped, err := normalize.Validate(s.norm.Rows(rows, userID))
	if err != nil {
		metrics.RecordImportRejected("no_valid_rows")
		logger.WithField("skipped", skipped).Info("import rejected: no valid rows")
		return nil, err
	}

	dates, repeated := uniqueDates(valid)
	if len(repeated) > 0 {
		metrics.RecordImportRejected("duplicate_in_file")
		return nil, &DuplicateDatesError{Dates: repeated, InBatch: true}
	}

	existing, err := s.store.DatesWithRecords(ctx, userID, dates)
	if err != nil {
		return nil, fmt.Errorf("check existing dates: %w", err)
	}
	if len(existing) > 0 {
		sorted := append([]string(nil), existing...)
		sort.Strings(sorted)
		metrics.RecordImportRejected("duplicate_dates")
		logger.WithField("dates", sorted).Info("import rejected: dates already recorded")
		return nil, &DuplicateDatesError{Dates: sorted}
	}

	written, err := upsertChunked(ctx, s.store, valid)
	metrics.RecordImport(len(written), skipped)
	if err != nil {
		logger.WithError(err).WithField("written", len(written)).Error("import partially failed")
		return &ImportResult{Imported: len(written), Skipped: skipped, Records: written}, err
	}

	logger.WithFields(logrus.Fields{"imported": len(written), "skipped": skipped}).Info("import complete")
	return &ImportResult{Imported: len(written), Skipped: skipped, Records: written}, nil
}

// uniqueDates returns the distinct dates in input order and any date that
// occurs more than once, sorted.
func uniqueDates(recs []domain.HealthRecord) ([]string, []string) {
	seen := make(map[string]int, len(recs))
	dates := make([]string, 0, len(recs))
	for _, r := range recs {
		if seen[r.Date] == 0 {
			dates = append(dates, r.Date)
		}
		seen[r.Date]++
	}
	var repeated []string
	for d, n := range seen {
		if n > 1 {
			repeated = append(repeated, d)
		}
	}
	sort.Strings(repeated)
	return dates, repeated
}
