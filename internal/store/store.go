package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/presentbetter/coach-engine/internal/record"
)

// ErrNotFound is returned when a record ID is unknown.
var ErrNotFound = errors.New("record not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS score_records (
	seq                   INTEGER PRIMARY KEY AUTOINCREMENT,
	id                    TEXT NOT NULL UNIQUE,
	user_id               TEXT NOT NULL,
	mode                  TEXT NOT NULL,
	facial_score          INTEGER NOT NULL,
	gesture_score         INTEGER NOT NULL,
	eye_contact_score     INTEGER,
	eye_contact_supported INTEGER NOT NULL,
	verbal_rate           REAL NOT NULL,
	verbal_rating         TEXT NOT NULL,
	composite_score       INTEGER NOT NULL,
	total_smiles          INTEGER NOT NULL,
	total_hand_moves      INTEGER NOT NULL,
	total_looks           INTEGER NOT NULL,
	timestamp             INTEGER NOT NULL,
	created_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_records_user ON score_records(user_id, timestamp);

CREATE TABLE IF NOT EXISTS session_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	user_id       TEXT,
	mode          TEXT NOT NULL,
	event_type    TEXT NOT NULL,
	modality      TEXT,
	from_state    TEXT,
	to_state      TEXT,
	tick          INTEGER,
	record_id     TEXT,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
`
// #endregion schema

// #region store-struct
// Store persists score records in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for the session event log.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region save
// Save inserts a record. Records are never updated.
func (s *Store) Save(rec record.ScoreRecord) error {
	var eye any
	if rec.EyeContactScore != nil {
		eye = *rec.EyeContactScore
	}
	_, err := s.db.Exec(
		`INSERT INTO score_records (id, user_id, mode, facial_score, gesture_score, eye_contact_score,
		 eye_contact_supported, verbal_rate, verbal_rating, composite_score, total_smiles,
		 total_hand_moves, total_looks, timestamp, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Mode, rec.FacialScore, rec.GestureScore, eye,
		boolToInt(rec.EyeContactSupported), rec.VerbalRate, rec.VerbalRating, rec.CompositeScore,
		rec.TotalSmiles, rec.TotalHandMoves, rec.TotalLooks, rec.Timestamp,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}
// #endregion save

// #region get
const selectColumns = `SELECT id, user_id, mode, facial_score, gesture_score, eye_contact_score,
	eye_contact_supported, verbal_rate, verbal_rating, composite_score, total_smiles,
	total_hand_moves, total_looks, timestamp FROM score_records`

// Get loads a record by ID.
func (s *Store) Get(id string) (record.ScoreRecord, error) {
	row := s.db.QueryRow(selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.ScoreRecord{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return record.ScoreRecord{}, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, nil
}
// #endregion get

// #region query-history
// QueryHistory returns a user's records, newest first. limit <= 0 returns
// all of them.
func (s *Store) QueryHistory(userID string, limit int) ([]record.ScoreRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		selectColumns+` WHERE user_id = ? ORDER BY timestamp DESC, seq DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []record.ScoreRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion query-history

// #region summary
// Summary is the per-user score overview shown on the history screen.
type Summary struct {
	UserID    string `json:"uid"`
	Count     int    `json:"count"`
	HighScore int    `json:"highScore"`
	LastScore int    `json:"lastScore"`
}

// Summary aggregates a user's history. A user without records gets zeros.
func (s *Store) Summary(userID string) (Summary, error) {
	sum := Summary{UserID: userID}
	var high sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COUNT(*), MAX(composite_score) FROM score_records WHERE user_id = ?`, userID,
	).Scan(&sum.Count, &high)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	if sum.Count == 0 {
		return sum, nil
	}
	sum.HighScore = int(high.Int64)

	err = s.db.QueryRow(
		`SELECT composite_score FROM score_records WHERE user_id = ?
		 ORDER BY timestamp DESC, seq DESC LIMIT 1`, userID,
	).Scan(&sum.LastScore)
	if err != nil {
		return Summary{}, fmt.Errorf("last score: %w", err)
	}
	return sum, nil
}
// #endregion summary

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (record.ScoreRecord, error) {
	var rec record.ScoreRecord
	var eye sql.NullInt64
	var supported int
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Mode, &rec.FacialScore, &rec.GestureScore, &eye,
		&supported, &rec.VerbalRate, &rec.VerbalRating, &rec.CompositeScore, &rec.TotalSmiles,
		&rec.TotalHandMoves, &rec.TotalLooks, &rec.Timestamp,
	)
	if err != nil {
		return record.ScoreRecord{}, err
	}
	if eye.Valid {
		v := int(eye.Int64)
		rec.EyeContactScore = &v
	}
	rec.EyeContactSupported = supported != 0
	rec.WordsPerMinute = rec.VerbalRate
	rec.TotalScore = fmt.Sprintf("%d%%", rec.CompositeScore)
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
// #endregion scan
