// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists profile versions and session history in SQLite.
// Profiles are append-only: every version ever produced is kept and the
// highest one is current. Runs keep the ranked set they displayed so
// feedback given in a later invocation resolves against the same list.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperpal/pkg/types"
)

const dbFile = "paperpal.db"

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MaxRuns is how many sessions the history keeps.
const MaxRuns = 50

// ErrNoRuns is returned by LastRun when the history is empty.
var ErrNoRuns = errors.New("no previous session")

// Store manages the SQLite database under the data directory.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates dataDir/paperpal.db and its schema.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			version INTEGER PRIMARY KEY,
			text TEXT NOT NULL,
			exclusions TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			topic TEXT,
			mode TEXT,
			time_window TEXT,
			candidates INTEGER,
			scored INTEGER,
			failed INTEGER,
			canceled INTEGER,
			interrupted INTEGER,
			profile_version INTEGER,
			summary TEXT,
			report_path TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS run_papers (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			paper TEXT NOT NULL,
			score REAL,
			rationale TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT REFERENCES runs(id) ON DELETE SET NULL,
			text TEXT NOT NULL,
			at TEXT NOT NULL,
			profile_version INTEGER
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveProfile stores p as a new version. Saving a version that already
// exists is an error; profiles are never rewritten in place.
func (s *Store) SaveProfile(ctx context.Context, p types.InterestProfile) error {
	exclusions, _ := json.Marshal(p.Exclusions)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (version, text, exclusions, updated_at) VALUES (?, ?, ?, ?)`,
		p.Version, p.Text, string(exclusions), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving profile version %d: %w", p.Version, err)
	}
	return nil
}

// LatestProfile returns the highest stored version, or the empty version-0
// profile when none has been saved.
func (s *Store) LatestProfile(ctx context.Context) (types.InterestProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version, text, exclusions, updated_at FROM profiles ORDER BY version DESC LIMIT 1`)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.InterestProfile{}, nil
	}
	if err != nil {
		return types.InterestProfile{}, fmt.Errorf("%w: %w", types.ErrProfileLoad, err)
	}
	return p, nil
}

// Profile returns one stored version.
func (s *Store) Profile(ctx context.Context, version int) (types.InterestProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version, text, exclusions, updated_at FROM profiles WHERE version = ?`, version)
	p, err := scanProfile(row)
	if err != nil {
		return types.InterestProfile{}, fmt.Errorf("%w: version %d: %w", types.ErrProfileLoad, version, err)
	}
	return p, nil
}

// ProfileVersions lists stored versions, newest first.
func (s *Store) ProfileVersions(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM profiles ORDER BY version DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (types.InterestProfile, error) {
	var (
		p          types.InterestProfile
		exclusions sql.NullString
		updated    sql.NullString
	)
	if err := row.Scan(&p.Version, &p.Text, &exclusions, &updated); err != nil {
		return p, err
	}
	if exclusions.Valid && exclusions.String != "" && exclusions.String != "null" {
		if err := json.Unmarshal([]byte(exclusions.String), &p.Exclusions); err != nil {
			return p, fmt.Errorf("decoding exclusions: %w", err)
		}
	}
	p.UpdatedAt = parseTime(updated.String)
	return p, nil
}

// Run is one recorded session.
type Run struct {
	ID             string          `json:"id" yaml:"id"`
	StartedAt      time.Time       `json:"started_at" yaml:"started_at"`
	Topic          string          `json:"topic,omitempty" yaml:"topic,omitempty"`
	Mode           types.Mode      `json:"mode" yaml:"mode"`
	Window         string          `json:"window" yaml:"window"`
	Candidates     int             `json:"candidates" yaml:"candidates"`
	Scored         int             `json:"scored" yaml:"scored"`
	Failed         int             `json:"failed" yaml:"failed"`
	Canceled       int             `json:"canceled" yaml:"canceled"`
	Interrupted    bool            `json:"interrupted" yaml:"interrupted"`
	ProfileVersion int             `json:"profile_version" yaml:"profile_version"`
	Summary        string          `json:"summary,omitempty" yaml:"summary,omitempty"`
	ReportPath     string          `json:"report_path,omitempty" yaml:"report_path,omitempty"`
	Ranked         types.RankedSet `json:"ranked,omitempty" yaml:"ranked,omitempty"`
}

// RecordRun stores r with its ranked papers and prunes the history to
// MaxRuns. An empty ID is filled with a new UUID, which is returned.
func (s *Store) RecordRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, topic, mode, time_window, candidates, scored, failed,
			canceled, interrupted, profile_version, summary, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, formatTime(r.StartedAt), r.Topic, string(r.Mode), r.Window, r.Candidates, r.Scored,
		r.Failed, r.Canceled, r.Interrupted, r.ProfileVersion, r.Summary, r.ReportPath,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_papers (run_id, position, paper, score, rationale) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range r.Ranked {
		paper, err := json.Marshal(e.Paper)
		if err != nil {
			return "", fmt.Errorf("encoding paper %s: %w", e.Paper.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, i+1, string(paper), e.Result.Score, e.Result.Rationale); err != nil {
			return "", fmt.Errorf("inserting paper %s: %w", e.Paper.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?)`,
		MaxRuns,
	)
	if err != nil {
		return "", fmt.Errorf("pruning history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return r.ID, nil
}

// Runs lists recorded sessions, newest first, without their ranked papers.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > MaxRuns {
		limit = MaxRuns
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, topic, mode, time_window, candidates, scored, failed, canceled,
			interrupted, profile_version, summary, report_path
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastRun returns the newest session with its ranked papers.
func (s *Store) LastRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, topic, mode, time_window, candidates, scored, failed, canceled,
			interrupted, profile_version, summary, report_path
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	if err != nil {
		return Run{}, err
	}
	r.Ranked, err = s.rankedPapers(ctx, r.ID)
	return r, err
}

func (s *Store) rankedPapers(ctx context.Context, runID string) (types.RankedSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper, score, rationale FROM run_papers WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading ranked papers: %w", err)
	}
	defer rows.Close()

	var out types.RankedSet
	for rows.Next() {
		var (
			raw       string
			score     float64
			rationale sql.NullString
		)
		if err := rows.Scan(&raw, &score, &rationale); err != nil {
			return nil, err
		}
		var p types.Paper
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decoding paper: %w", err)
		}
		out = append(out, types.RankedEntry{
			Paper:  p,
			Result: types.ScoreResult{PaperID: p.ID, Score: score, Rationale: rationale.String, Status: types.ScoreOK},
		})
	}
	return out, rows.Err()
}

func scanRun(row scanner) (Run, error) {
	var (
		r                              Run
		started, mode                  string
		topic, window, summary, report sql.NullString
	)
	err := row.Scan(&r.ID, &started, &topic, &mode, &window, &r.Candidates, &r.Scored, &r.Failed,
		&r.Canceled, &r.Interrupted, &r.ProfileVersion, &summary, &report)
	if err != nil {
		return r, err
	}
	r.StartedAt = parseTime(started)
	r.Topic = topic.String
	r.Mode = types.Mode(mode)
	r.Window = window.String
	r.Summary = summary.String
	r.ReportPath = report.String
	return r, nil
}

// RecordFeedback stores a feedback event against the run it was given on
// and the profile version it produced.
func (s *Store) RecordFeedback(ctx context.Context, runID string, ev types.FeedbackEvent, profileVersion int) error {
	var run any
	if runID != "" {
		run = runID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (run_id, text, at, profile_version) VALUES (?, ?, ?, ?)`,
		run, ev.Text, formatTime(ev.At), profileVersion,
	)
	if err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}
	return nil
}

// Feedback lists recorded feedback, newest first.
func (s *Store) Feedback(ctx context.Context, limit int) ([]types.FeedbackEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT text, at FROM feedback ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	defer rows.Close()

	var out []types.FeedbackEvent
	for rows.Next() {
		var ev types.FeedbackEvent
		var at string
		if err := rows.Scan(&ev.Text, &at); err != nil {
			return nil, err
		}
		ev.At = parseTime(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ClearHistory removes every run and feedback record. Profiles are kept.
func (s *Store) ClearHistory(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM feedback`, `DELETE FROM runs`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
