// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"healthlog/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	records  map[recordKey]*domain.HealthRecord
	users    []*domain.User
	sessions map[string]*domain.Session

	recordIDCounter int64
	userIDCounter   int64
	now             func() time.Time
}

type recordKey struct {
	userID int64
	date   string
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		records:  make(map[recordKey]*domain.HealthRecord),
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

// Ensure interfaces are met.
var _ domain.RecordStore = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- RecordStore ---

// ListRecords returns the user's records, newest date first.
func (db *DB) ListRecords(ctx context.Context, userID int64) ([]domain.HealthRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.HealthRecord, 0)
	for k, r := range db.records {
		if k.userID == userID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date > result[j].Date
	})
	return result, nil
}

// UpsertOne inserts or fully replaces the record for (UserID, Date).
func (db *DB) UpsertOne(ctx context.Context, rec domain.HealthRecord) (*domain.HealthRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out, err := db.upsertLocked(rec)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertMany applies UpsertOne to each record. The batch is all or nothing,
// like a single multi-row statement.
func (db *DB) UpsertMany(ctx context.Context, recs []domain.HealthRecord) ([]domain.HealthRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if err := checkRecord(r); err != nil {
			return nil, err
		}
		if seen[r.Date] {
			return nil, errors.New("batch affects date " + r.Date + " more than once")
		}
		seen[r.Date] = true
	}

	out := make([]domain.HealthRecord, 0, len(recs))
	for _, r := range recs {
		saved, err := db.upsertLocked(r)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

func (db *DB) upsertLocked(rec domain.HealthRecord) (domain.HealthRecord, error) {
	if err := checkRecord(rec); err != nil {
		return domain.HealthRecord{}, err
	}
	now := db.now().UTC()
	key := recordKey{userID: rec.UserID, date: rec.Date}
	if existing, ok := db.records[key]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		db.recordIDCounter++
		rec.ID = db.recordIDCounter
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	stored := rec
	db.records[key] = &stored
	return rec, nil
}

// checkRecord mirrors the table constraints of the postgres schema.
func checkRecord(r domain.HealthRecord) error {
	if _, err := time.Parse(domain.DayLayout, r.Date); err != nil {
		return errors.New("invalid date " + r.Date)
	}
	if r.Weight <= 0 {
		return errors.New("weight must be positive")
	}
	for _, s := range []*int{r.DietScore, r.WaterScore, r.ExerciseScore, r.MoodScore, r.SleepScore} {
		if s != nil && (*s < domain.MinScore || *s > domain.MaxScore) {
			return errors.New("score out of range")
		}
	}
	return nil
}

// DeleteOne deletes a record by ID. Records of other users are untouched.
func (db *DB) DeleteOne(ctx context.Context, userID, id int64) error {
	return db.DeleteMany(ctx, userID, []int64{id})
}

// DeleteMany deletes the user's records with the given IDs. Unknown IDs
// are ignored.
func (db *DB) DeleteMany(ctx context.Context, userID int64, ids []int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for k, r := range db.records {
		if k.userID == userID && want[r.ID] {
			delete(db.records, k)
		}
	}
	return nil
}

// DatesWithRecords returns which of dates already hold a record for the user.
func (db *DB) DatesWithRecords(ctx context.Context, userID int64, dates []string) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var found []string
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		if seen[d] {
			continue
		}
		seen[d] = true
		if _, ok := db.records[recordKey{userID: userID, date: d}]; ok {
			found = append(found, d)
		}
	}
	return found, nil
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return u, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, errors.New("user already exists")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    db.now().UTC(),
	}
	db.users = append(db.users, u)
	return u, nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: r.db.now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token. Expired sessions are returned so
// the caller can tell them apart from unknown tokens.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
