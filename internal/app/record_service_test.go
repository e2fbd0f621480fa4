package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"healthlog/internal/domain"
	"healthlog/internal/normalize"
)

type mockRecordStore struct {
	listFn             func(ctx context.Context, userID int64) ([]domain.HealthRecord, error)
	upsertOneFn        func(ctx context.Context, rec domain.HealthRecord) (*domain.HealthRecord, error)
	upsertManyFn       func(ctx context.Context, recs []domain.HealthRecord) ([]domain.HealthRecord, error)
	deleteOneFn        func(ctx context.Context, userID, id int64) error
	deleteManyFn       func(ctx context.Context, userID int64, ids []int64) error
	datesWithRecordsFn func(ctx context.Context, userID int64, dates []string) ([]string, error)
}

func (m *mockRecordStore) ListRecords(ctx context.Context, userID int64) ([]domain.HealthRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRecordStore) UpsertOne(ctx context.Context, rec domain.HealthRecord) (*domain.HealthRecord, error) {
	if m.upsertOneFn != nil {
		return m.upsertOneFn(ctx, rec)
	}
	rec.ID = 1
	return &rec, nil
}

func (m *mockRecordStore) UpsertMany(ctx context.Context, recs []domain.HealthRecord) ([]domain.HealthRecord, error) {
	if m.upsertManyFn != nil {
		return m.upsertManyFn(ctx, recs)
	}
	return recs, nil
}

func (m *mockRecordStore) DeleteOne(ctx context.Context, userID, id int64) error {
	if m.deleteOneFn != nil {
		return m.deleteOneFn(ctx, userID, id)
	}
	return nil
}

func (m *mockRecordStore) DeleteMany(ctx context.Context, userID int64, ids []int64) error {
	if m.deleteManyFn != nil {
		return m.deleteManyFn(ctx, userID, ids)
	}
	return nil
}

func (m *mockRecordStore) DatesWithRecords(ctx context.Context, userID int64, dates []string) ([]string, error) {
	if m.datesWithRecordsFn != nil {
		return m.datesWithRecordsFn(ctx, userID, dates)
	}
	return nil, nil
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestRecordService(store domain.RecordStore) *RecordService {
	return NewRecordService(store, nil).WithNormalizer(normalize.Normalizer{
		Now:      func() time.Time { return fixedNow },
		Location: time.UTC,
	})
}

func floatPtr(f float64) *float64 { return &f }

// importRows builds n rows on consecutive days starting 2024-01-01.
func importRows(n int) []normalize.Row {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]normalize.Row, n)
	for i := range rows {
		rows[i] = normalize.Row{
			"date":   start.AddDate(0, 0, i).Format(domain.DayLayout),
			"weight": 70.0 + float64(i%10)/10,
		}
	}
	return rows
}

func TestRecordService_Submit(t *testing.T) {
	var got domain.HealthRecord
	store := &mockRecordStore{
		upsertOneFn: func(_ context.Context, rec domain.HealthRecord) (*domain.HealthRecord, error) {
			got = rec
			rec.ID = 7
			return &rec, nil
		},
	}
	svc := newTestRecordService(store)

	out, err := svc.Submit(context.Background(), 3, Submission{
		Date:      "2024-02-01",
		Weight:    floatPtr(71.2),
		DietScore: domain.IntPtr(8),
		Notes:     "  walked  ",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.ID != 7 {
		t.Errorf("expected id 7, got %d", out.ID)
	}
	if got.UserID != 3 || got.Date != "2024-02-01" || got.Weight != 71.2 || got.Notes != "walked" {
		t.Errorf("unexpected record sent to store: %+v", got)
	}
}

func TestRecordService_Submit_DefaultsDateToToday(t *testing.T) {
	var got string
	store := &mockRecordStore{
		upsertOneFn: func(_ context.Context, rec domain.HealthRecord) (*domain.HealthRecord, error) {
			got = rec.Date
			return &rec, nil
		},
	}
	svc := newTestRecordService(store)

	if _, err := svc.Submit(context.Background(), 1, Submission{Weight: floatPtr(70)}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "2026-03-14" {
		t.Errorf("expected today's date, got %q", got)
	}
}

func TestRecordService_Submit_InvalidMakesNoStoreCall(t *testing.T) {
	tests := []struct {
		name    string
		sub     Submission
		wantErr error
	}{
		{"missing weight", Submission{Date: "2024-01-01"}, ErrInvalidWeight},
		{"zero weight", Submission{Weight: floatPtr(0)}, ErrInvalidWeight},
		{"negative weight", Submission{Weight: floatPtr(-3)}, ErrInvalidWeight},
		{"score above range", Submission{Weight: floatPtr(70), MoodScore: domain.IntPtr(11)}, ErrInvalidRecord},
		{"score below range", Submission{Weight: floatPtr(70), SleepScore: domain.IntPtr(-1)}, ErrInvalidRecord},
		{"bad date", Submission{Weight: floatPtr(70), Date: "01/02/2024"}, ErrInvalidRecord},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			store := &mockRecordStore{
				upsertOneFn: func(_ context.Context, rec domain.HealthRecord) (*domain.HealthRecord, error) {
					calls++
					return &rec, nil
				},
			}
			svc := newTestRecordService(store)
			_, err := svc.Submit(context.Background(), 1, tc.sub)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if calls != 0 {
				t.Errorf("expected no store call, got %d", calls)
			}
		})
	}
}

func TestRecordService_Import_ChunksInOrder(t *testing.T) {
	var sizes []int
	var firstDates []string
	store := &mockRecordStore{
		upsertManyFn: func(_ context.Context, recs []domain.HealthRecord) ([]domain.HealthRecord, error) {
			sizes = append(sizes, len(recs))
			firstDates = append(firstDates, recs[0].Date)
			return recs, nil
		},
	}
	svc := newTestRecordService(store)

	res, err := svc.Import(context.Background(), 1, importRows(250))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Imported != 250 || res.Skipped != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if fmt.Sprint(sizes) != "[100 100 50]" {
		t.Errorf("expected chunk sizes [100 100 50], got %v", sizes)
	}
	if fmt.Sprint(firstDates) != "[2024-01-01 2024-04-10 2024-07-19]" {
		t.Errorf("chunks issued out of order: %v", firstDates)
	}
}

func TestRecordService_Import_SkipsInvalidWeights(t *testing.T) {
	store := &mockRecordStore{}
	svc := newTestRecordService(store)

	rows := []normalize.Row{
		{"date": "2024-01-01", "weight": 70},
		{"date": "2024-01-02", "weight": 0},
		{"date": "2024-01-03", "weight": "abc"},
		{"date": "2024-01-04", "体重": "69.5"},
	}
	res, err := svc.Import(context.Background(), 1, rows)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Imported != 2 || res.Skipped != 2 {
		t.Errorf("expected 2 imported and 2 skipped, got %+v", res)
	}
}

func TestRecordService_Import_DuplicateDatesRejectsBatch(t *testing.T) {
	writes := 0
	var queried []string
	store := &mockRecordStore{
		datesWithRecordsFn: func(_ context.Context, userID int64, dates []string) ([]string, error) {
			queried = dates
			return []string{"2024-01-01"}, nil
		},
		upsertManyFn: func(_ context.Context, recs []domain.HealthRecord) ([]domain.HealthRecord, error) {
			writes++
			return recs, nil
		},
	}
	svc := newTestRecordService(store)

	_, err := svc.Import(context.Background(), 1, []normalize.Row{
		{"date": "2024-01-01", "weight": 70},
		{"date": "2024-01-05", "weight": 71},
	})
	var dup *DuplicateDatesError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateDatesError, got %v", err)
	}
	if dup.InBatch || fmt.Sprint(dup.Dates) != "[2024-01-01]" {
		t.Errorf("unexpected conflict %+v", dup)
	}
	if fmt.Sprint(queried) != "[2024-01-01 2024-01-05]" {
		t.Errorf("unexpected dates queried: %v", queried)
	}
	if writes != 0 {
		t.Errorf("expected zero writes, got %d", writes)
	}
}

func TestRecordService_Import_RepeatedDateInFile(t *testing.T) {
	calls := 0
	store := &mockRecordStore{
		datesWithRecordsFn: func(context.Context, int64, []string) ([]string, error) {
			calls++
			return nil, nil
		},
	}
	svc := newTestRecordService(store)

	_, err := svc.Import(context.Background(), 1, []normalize.Row{
		{"date": "2024-01-02", "weight": 70},
		{"date": "2024-01-02", "weight": 71},
	})
	var dup *DuplicateDatesError
	if !errors.As(err, &dup) || !dup.InBatch {
		t.Fatalf("expected in-batch DuplicateDatesError, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no store call, got %d", calls)
	}
}

func TestRecordService_Import_RejectsBeforeStore(t *testing.T) {
	tests := []struct {
		name    string
		rows    []normalize.Row
		wantErr error
	}{
		{"empty batch", nil, normalize.ErrNoRows},
		{"no valid rows", []normalize.Row{{"weight": 0}, {"notes": "x"}}, normalize.ErrNoValidRows},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			store := &mockRecordStore{
				datesWithRecordsFn: func(context.Context, int64, []string) ([]string, error) {
					calls++
					return nil, nil
				},
			}
			_, err := newTestRecordService(store).Import(context.Background(), 1, tc.rows)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if calls != 0 {
				t.Errorf("expected no store call, got %d", calls)
			}
		})
	}
}

func TestRecordService_Import_PartialChunkFailure(t *testing.T) {
	boom := errors.New("connection reset")
	call := 0
	store := &mockRecordStore{
		upsertManyFn: func(_ context.Context, recs []domain.HealthRecord) ([]domain.HealthRecord, error) {
			call++
			if call == 2 {
				return nil, boom
			}
			return recs, nil
		},
	}
	svc := newTestRecordService(store)

	res, err := svc.Import(context.Background(), 1, importRows(250))
	var chunkErr *ChunkError
	if !errors.As(err, &chunkErr) {
		t.Fatalf("expected ChunkError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if chunkErr.Chunk != 1 || chunkErr.Committed != 100 {
		t.Errorf("unexpected chunk error %+v", chunkErr)
	}
	if call != 2 {
		t.Errorf("expected the third chunk to be skipped, got %d calls", call)
	}
	if res == nil || res.Imported != 100 {
		t.Errorf("expected 100 committed records in result, got %+v", res)
	}
}

func TestRecordService_BulkDelete(t *testing.T) {
	var sizes []int
	store := &mockRecordStore{
		deleteManyFn: func(_ context.Context, userID int64, ids []int64) error {
			sizes = append(sizes, len(ids))
			return nil
		},
	}
	svc := newTestRecordService(store)

	if err := svc.BulkDelete(context.Background(), 1, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sizes) != 0 {
		t.Fatalf("expected no store call for empty ids, got %v", sizes)
	}

	ids := make([]int64, 201)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	if err := svc.BulkDelete(context.Background(), 1, ids); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if fmt.Sprint(sizes) != "[100 100 1]" {
		t.Errorf("expected chunk sizes [100 100 1], got %v", sizes)
	}

	if err := svc.BulkDelete(context.Background(), 1, []int64{1, 0}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestRecordService_History(t *testing.T) {
	store := &mockRecordStore{
		listFn: func(context.Context, int64) ([]domain.HealthRecord, error) {
			return []domain.HealthRecord{
				{ID: 3, Date: "2024-01-03", Weight: 70.0, Notes: "Gym"},
				{ID: 2, Date: "2024-01-02", Weight: 70.4},
				{ID: 1, Date: "2024-01-01", Weight: 69.9, Notes: "gym day"},
			}, nil
		},
	}
	svc := newTestRecordService(store)

	items, err := svc.History(context.Background(), 1, HistoryQuery{Search: "GYM"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(items))
	}
	if items[0].Change == nil || items[0].Change.Value != 0.1 || !items[0].Change.IsGain {
		t.Errorf("expected +0.1 change vs next row in view, got %+v", items[0].Change)
	}
	if items[1].Change != nil {
		t.Errorf("expected no change on the oldest row, got %+v", items[1].Change)
	}
}

func TestRecordService_Delete(t *testing.T) {
	var gotUser, gotID int64
	store := &mockRecordStore{
		deleteOneFn: func(_ context.Context, userID, id int64) error {
			gotUser, gotID = userID, id
			return nil
		},
	}
	svc := newTestRecordService(store)

	if err := svc.Delete(context.Background(), 4, 9); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotUser != 4 || gotID != 9 {
		t.Errorf("unexpected delete args %d %d", gotUser, gotID)
	}
	if err := svc.Delete(context.Background(), 4, 0); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}
