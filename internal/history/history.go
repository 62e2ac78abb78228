// Package history records finished sessions in a small SQLite database.
// One row per session that reached a terminal state; raw recordings stay
// with the external tooling, this is orchestrator bookkeeping only.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mi-lab/backend/internal/session"
)

type Entry struct {
	ID             int64   `json:"id"`
	ParticipantID  string  `json:"participant_id"`
	SessionNumber  int     `json:"session_number"`
	RunNumber      int     `json:"run_number"`
	State          string  `json:"state"`
	CurrentTrial   int     `json:"current_trial"`
	TotalTrials    int     `json:"total_trials"`
	CurrentBlock   int     `json:"current_block"`
	TotalBlocks    int     `json:"total_blocks"`
	BadTrials      int     `json:"bad_trials"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	OutputFile     string  `json:"output_file"`
	EndedAt        string  `json:"ended_at"`
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			participant_id  TEXT NOT NULL,
			session_number  INTEGER NOT NULL,
			run_number      INTEGER NOT NULL,
			state           TEXT NOT NULL,
			current_trial   INTEGER NOT NULL,
			total_trials    INTEGER NOT NULL,
			current_block   INTEGER NOT NULL,
			total_blocks    INTEGER NOT NULL,
			bad_trials      INTEGER NOT NULL,
			elapsed_seconds REAL NOT NULL,
			output_file     TEXT NOT NULL,
			ended_at        TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts the final document of a finished session. Failures are
// logged and swallowed: bookkeeping must never gate the session
// lifecycle.
func (s *Store) Record(cfg session.Config, st session.Status) {
	_, err := s.db.Exec(`
		INSERT INTO sessions (
			participant_id, session_number, run_number, state,
			current_trial, total_trials, current_block, total_blocks,
			bad_trials, elapsed_seconds, output_file, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ParticipantID, cfg.SessionNumber, cfg.RunNumber, string(st.State),
		st.CurrentTrial, st.TotalTrials, st.CurrentBlock, st.TotalBlocks,
		st.BadTrials, st.ElapsedSeconds, st.OutputFile,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		log.Printf("history: recording session: %v", err)
	}
}

// Recent returns up to n most recently finished sessions, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.Query(`
		SELECT id, participant_id, session_number, run_number, state,
		       current_trial, total_trials, current_block, total_blocks,
		       bad_trials, elapsed_seconds, output_file, ended_at
		FROM sessions ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.ParticipantID, &e.SessionNumber, &e.RunNumber, &e.State,
			&e.CurrentTrial, &e.TotalTrials, &e.CurrentBlock, &e.TotalBlocks,
			&e.BadTrials, &e.ElapsedSeconds, &e.OutputFile, &e.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
