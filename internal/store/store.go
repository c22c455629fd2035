// Package store persists exercises in sqlite. Each exercise is one row: a
// self-describing JSON payload plus denormalized summary columns, so
// listings never need to decode every payload.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "modernc.org/sqlite"

	"github.com/miaai/langhelper/internal/exercise"
	"github.com/miaai/langhelper/internal/model"
)

// Store wraps the database connection.
type Store struct {
	db *sql.DB
}

// New creates a store backed by the sqlite database at dbPath, creating
// the schema if needed.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exercises (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		public_id TEXT NOT NULL UNIQUE,
		owner TEXT NOT NULL,
		exercise_data TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		created_text TEXT NOT NULL DEFAULT '',
		questions_count INTEGER NOT NULL DEFAULT 0,
		is_public INTEGER NOT NULL DEFAULT 0,
		is_completed INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exercises_owner ON exercises(owner);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Insert serializes the exercise and writes it together with its
// denormalized summary columns. The pipeline never mutates the payload
// after this point.
func (s *Store) Insert(owner string, ex exercise.Exercise) (model.Record, error) {
	payload, err := exercise.Marshal(ex)
	if err != nil {
		return model.Record{}, fmt.Errorf("serializing exercise: %w", err)
	}
	publicID, err := gonanoid.New()
	if err != nil {
		return model.Record{}, fmt.Errorf("generating public id: %w", err)
	}

	now := time.Now().UTC()
	rec := model.Record{
		PublicID:       publicID,
		Owner:          owner,
		Exercise:       ex,
		Payload:        payload,
		Type:           string(ex.Kind()),
		CreatedText:    ex.Passage(),
		QuestionsCount: len(ex.QuestionList()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	result, err := s.db.Exec(`
		INSERT INTO exercises (public_id, owner, exercise_data, type, created_text, questions_count, is_public, is_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		rec.PublicID, rec.Owner, string(payload), rec.Type, rec.CreatedText, rec.QuestionsCount, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return model.Record{}, fmt.Errorf("inserting exercise: %w", err)
	}
	rec.ID, err = result.LastInsertId()
	if err != nil {
		return model.Record{}, fmt.Errorf("reading insert id: %w", err)
	}
	slog.Info("exercise stored", "public_id", rec.PublicID, "type", rec.Type, "owner", owner)
	return rec, nil
}

const recordColumns = `id, public_id, owner, exercise_data, type, created_text, questions_count, is_public, is_completed, created_at, updated_at`

// GetOwned returns the record only if it belongs to owner. Returns
// sql.ErrNoRows for both unknown and foreign records, so callers cannot
// probe for existence.
func (s *Store) GetOwned(publicID, owner string) (model.Record, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM exercises WHERE public_id = ? AND owner = ?`, publicID, owner)
	return scanRecord(row)
}

// GetPublic returns the record only if it has been shared.
func (s *Store) GetPublic(publicID string) (model.Record, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM exercises WHERE public_id = ? AND is_public = 1`, publicID)
	return scanRecord(row)
}

// ListByOwner returns the owner's records, newest first.
func (s *Store) ListByOwner(owner string) ([]model.Record, error) {
	rows, err := s.db.Query(`SELECT `+recordColumns+` FROM exercises WHERE owner = ? ORDER BY id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing exercises: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SetPublic toggles sharing on an owned record and bumps updated_at.
func (s *Store) SetPublic(publicID, owner string, public bool) error {
	return s.setFlag(publicID, owner, "is_public", public)
}

// SetCompleted toggles completion on an owned record and bumps
// updated_at.
func (s *Store) SetCompleted(publicID, owner string, completed bool) error {
	return s.setFlag(publicID, owner, "is_completed", completed)
}

func (s *Store) setFlag(publicID, owner, column string, value bool) error {
	result, err := s.db.Exec(`UPDATE exercises SET `+column+` = ?, updated_at = ? WHERE public_id = ? AND owner = ?`,
		value, time.Now().UTC(), publicID, owner)
	if err != nil {
		return fmt.Errorf("updating %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row and reconstructs its exercise. A payload that
// no longer decodes leaves Exercise nil; the summary columns keep the
// record usable.
func scanRecord(row rowScanner) (model.Record, error) {
	var rec model.Record
	var payload string
	var isPublic, isCompleted int
	err := row.Scan(&rec.ID, &rec.PublicID, &rec.Owner, &payload, &rec.Type, &rec.CreatedText,
		&rec.QuestionsCount, &isPublic, &isCompleted, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return model.Record{}, err
	}
	rec.Payload = []byte(payload)
	rec.IsPublic = isPublic != 0
	rec.IsCompleted = isCompleted != 0
	if ex, ok := exercise.Unmarshal(rec.Payload); ok {
		rec.Exercise = ex
	} else {
		slog.Warn("serving degraded exercise record", "public_id", rec.PublicID)
	}
	return rec, nil
}
