package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveCheckpoint inserts a new checkpoint row; multiple rows may exist per
// (session, path) pair.
func (s *Store) SaveCheckpoint(sessionID, transcriptPath string, lineNo int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO checkpoints (session_id, transcript_path, last_line_number, created_at)
		 VALUES (?, ?, ?, ?)`,
		sessionID, transcriptPath, lineNo, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint returns the row with the greatest id for (session, path);
// different paths maintain independent checkpoints. A missing
// checkpoint returns (nil, nil).
func (s *Store) GetCheckpoint(sessionID, transcriptPath string) (*Checkpoint, error) {
	var cp Checkpoint
	err := s.db.QueryRow(
		`SELECT id, session_id, transcript_path, last_line_number, created_at
		 FROM checkpoints WHERE session_id = ? AND transcript_path = ?
		 ORDER BY id DESC LIMIT 1`,
		sessionID, transcriptPath,
	).Scan(&cp.ID, &cp.SessionID, &cp.TranscriptPath, &cp.LastLineNumber, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return &cp, nil
}
