// Package profile persists threshold profiles and success patterns for the
// adaptive prompt engine.
//
// It uses SQLite as a durable key-value layer: one row per user profile and
// one row per (task type, strategy) pattern, written through on every
// update. Enum fields are validated on read; a row that fails to decode is
// reported as not-found so the engine recreates it instead of crashing.
package profile

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/HendryAvila/johny/internal/engine"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds profile store configuration.
type Config struct {
	DataDir       string
	MaxAdjustLog  int // adjustment rows kept per user, 0 = unlimited
	HistoryWindow time.Duration
}

// DefaultConfig returns the default configuration for the profile store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:       filepath.Join(home, ".johny"),
		MaxAdjustLog:  100,
		HistoryWindow: 30 * 24 * time.Hour,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed persistence layer. It implements engine.Store.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New creates a new Store with the given configuration.
// It creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("profile: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "profiles.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("profile: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("profile: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("profile: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS threshold_profiles (
			user_id            TEXT PRIMARY KEY,
			base_threshold     REAL NOT NULL,
			current_threshold  REAL NOT NULL,
			user_style         TEXT NOT NULL,
			adjustment_history TEXT NOT NULL DEFAULT '[]',
			last_adjusted      TEXT NOT NULL,
			success_rate       REAL NOT NULL DEFAULT 0.7,
			total_adjustments  INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS threshold_adjustments (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id       TEXT NOT NULL,
			old_threshold REAL NOT NULL,
			new_threshold REAL NOT NULL,
			reason        TEXT,
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (user_id) REFERENCES threshold_profiles(user_id)
		);

		CREATE INDEX IF NOT EXISTS idx_adjust_user    ON threshold_adjustments(user_id);
		CREATE INDEX IF NOT EXISTS idx_adjust_created ON threshold_adjustments(created_at DESC);

		CREATE TABLE IF NOT EXISTS success_patterns (
			pattern_key         TEXT PRIMARY KEY,
			task_type           TEXT NOT NULL,
			strategy            TEXT NOT NULL,
			user_feedback       REAL NOT NULL,
			response_quality    REAL NOT NULL,
			execution_time      REAL NOT NULL,
			token_efficiency    REAL NOT NULL,
			success_count       INTEGER NOT NULL DEFAULT 1,
			last_used           TEXT NOT NULL,
			effectiveness_score REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_patterns_task ON success_patterns(task_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Profiles ────────────────────────────────────────────────────────────────

// Profile loads a user's threshold profile. Returns engine.ErrNotFound when
// the user has no profile or the stored row fails to decode.
func (s *Store) Profile(userID string) (engine.ThresholdProfile, error) {
	row := s.db.QueryRow(
		`SELECT user_id, base_threshold, current_threshold, user_style,
		        adjustment_history, last_adjusted, success_rate, total_adjustments
		 FROM threshold_profiles WHERE user_id = ?`, userID,
	)

	var p engine.ThresholdProfile
	var style, historyJSON, lastAdjusted string
	err := row.Scan(&p.UserID, &p.BaseThreshold, &p.CurrentThreshold, &style,
		&historyJSON, &lastAdjusted, &p.SuccessRate, &p.TotalAdjustments)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ThresholdProfile{}, engine.ErrNotFound
	}
	if err != nil {
		return engine.ThresholdProfile{}, fmt.Errorf("profile: load %s: %w", userID, err)
	}

	p.Style = engine.ParseUserStyle(style)
	p.LastAdjusted, err = time.Parse(time.RFC3339, lastAdjusted)
	if err != nil {
		// Corrupt row: treat as missing so the engine rebuilds the profile.
		return engine.ThresholdProfile{}, engine.ErrNotFound
	}
	if err := json.Unmarshal([]byte(historyJSON), &p.AdjustmentHistory); err != nil {
		return engine.ThresholdProfile{}, engine.ErrNotFound
	}
	if p.CurrentThreshold < engine.ThresholdMin || p.CurrentThreshold > engine.ThresholdMax {
		return engine.ThresholdProfile{}, engine.ErrNotFound
	}
	return p, nil
}

// SaveProfile writes a profile through, replacing any existing row.
func (s *Store) SaveProfile(p engine.ThresholdProfile) error {
	historyJSON, err := json.Marshal(p.AdjustmentHistory)
	if err != nil {
		return fmt.Errorf("profile: encode history for %s: %w", p.UserID, err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO threshold_profiles
		 (user_id, base_threshold, current_threshold, user_style,
		  adjustment_history, last_adjusted, success_rate, total_adjustments)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.BaseThreshold, p.CurrentThreshold, string(p.Style),
		string(historyJSON), p.LastAdjusted.UTC().Format(time.RFC3339),
		p.SuccessRate, p.TotalAdjustments,
	)
	if err != nil {
		return fmt.Errorf("profile: save %s: %w", p.UserID, err)
	}
	return nil
}

// RecordAdjustment appends one adjustment to the audit log and prunes
// entries past the configured count cap and age window.
func (s *Store) RecordAdjustment(userID string, adj engine.Adjustment) error {
	_, err := s.db.Exec(
		`INSERT INTO threshold_adjustments (user_id, old_threshold, new_threshold, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, adj.OldThreshold, adj.NewThreshold, adj.Reason,
		adj.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("profile: record adjustment for %s: %w", userID, err)
	}

	if s.cfg.MaxAdjustLog > 0 {
		_, _ = s.db.Exec(
			`DELETE FROM threshold_adjustments
			 WHERE user_id = ? AND id NOT IN (
			 	SELECT id FROM threshold_adjustments
			 	WHERE user_id = ? ORDER BY id DESC LIMIT ?
			 )`,
			userID, userID, s.cfg.MaxAdjustLog,
		) // best-effort pruning
	}
	if s.cfg.HistoryWindow > 0 {
		// RFC3339 UTC strings compare lexicographically in time order.
		cutoff := adj.Timestamp.UTC().Add(-s.cfg.HistoryWindow).Format(time.RFC3339)
		_, _ = s.db.Exec(
			`DELETE FROM threshold_adjustments WHERE user_id = ? AND created_at < ?`,
			userID, cutoff,
		)
	}
	return nil
}

// Adjustments returns a user's adjustment log, newest first.
func (s *Store) Adjustments(userID string, limit int) ([]engine.Adjustment, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT old_threshold, new_threshold, COALESCE(reason, ''), created_at
		 FROM threshold_adjustments
		 WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("profile: adjustments for %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var result []engine.Adjustment
	for rows.Next() {
		var adj engine.Adjustment
		var created string
		if err := rows.Scan(&adj.OldThreshold, &adj.NewThreshold, &adj.Reason, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			adj.Timestamp = ts
		}
		result = append(result, adj)
	}
	return result, rows.Err()
}

// ─── Patterns ────────────────────────────────────────────────────────────────

// Pattern loads one success pattern by its composite key. engine.ErrNotFound
// when absent or undecodable.
func (s *Store) Pattern(key string) (engine.SuccessPattern, error) {
	row := s.db.QueryRow(
		`SELECT task_type, strategy, user_feedback, response_quality, execution_time,
		        token_efficiency, success_count, last_used, effectiveness_score
		 FROM success_patterns WHERE pattern_key = ?`, key,
	)
	return scanPattern(row)
}

// SavePattern writes a pattern through, replacing any existing row.
func (s *Store) SavePattern(p engine.SuccessPattern) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO success_patterns
		 (pattern_key, task_type, strategy, user_feedback, response_quality,
		  execution_time, token_efficiency, success_count, last_used, effectiveness_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		engine.PatternKey(p.TaskType, p.Strategy),
		string(p.TaskType), string(p.Strategy),
		p.UserFeedback, p.ResponseQuality, p.ExecutionTime, p.TokenEfficiency,
		p.SuccessCount, p.LastUsed.UTC().Format(time.RFC3339), p.EffectivenessScore,
	)
	if err != nil {
		return fmt.Errorf("profile: save pattern %s: %w", engine.PatternKey(p.TaskType, p.Strategy), err)
	}
	return nil
}

// PatternsForTask returns every pattern recorded for a task type, ordered by
// strategy so results are stable.
func (s *Store) PatternsForTask(task engine.TaskType) ([]engine.SuccessPattern, error) {
	return s.queryPatterns(
		`SELECT task_type, strategy, user_feedback, response_quality, execution_time,
		        token_efficiency, success_count, last_used, effectiveness_score
		 FROM success_patterns WHERE task_type = ? ORDER BY strategy`,
		string(task),
	)
}

// Patterns returns every recorded pattern.
func (s *Store) Patterns() ([]engine.SuccessPattern, error) {
	return s.queryPatterns(
		`SELECT task_type, strategy, user_feedback, response_quality, execution_time,
		        token_efficiency, success_count, last_used, effectiveness_score
		 FROM success_patterns ORDER BY pattern_key`,
	)
}

func (s *Store) queryPatterns(query string, args ...any) ([]engine.SuccessPattern, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("profile: query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []engine.SuccessPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if errors.Is(err, engine.ErrNotFound) {
			continue // skip rows that no longer decode
		}
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPattern(row scanner) (engine.SuccessPattern, error) {
	var p engine.SuccessPattern
	var task, strategy, lastUsed string
	err := row.Scan(&task, &strategy, &p.UserFeedback, &p.ResponseQuality,
		&p.ExecutionTime, &p.TokenEfficiency, &p.SuccessCount, &lastUsed,
		&p.EffectivenessScore)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.SuccessPattern{}, engine.ErrNotFound
	}
	if err != nil {
		return engine.SuccessPattern{}, fmt.Errorf("profile: scan pattern: %w", err)
	}

	p.TaskType = engine.ParseTaskType(task)
	if p.TaskType == engine.TaskUnknown && task != string(engine.TaskUnknown) {
		return engine.SuccessPattern{}, engine.ErrNotFound
	}
	p.Strategy = engine.ParseStrategy(strategy)
	if ts, err := time.Parse(time.RFC3339, lastUsed); err == nil {
		p.LastUsed = ts
	} else {
		return engine.SuccessPattern{}, engine.ErrNotFound
	}
	return p, nil
}
