package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertSession inserts a new session row or, if session_id already
// exists, updates its project. Re-upserting an ended session brings it
// back to Active with the same row.
func (s *Store) UpsertSession(sessionID, project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, project, started_at, ended_at, memories_created, compactions)
		 VALUES (?, ?, ?, NULL, 0, 0)
		 ON CONFLICT(session_id) DO UPDATE SET project = excluded.project, ended_at = NULL`,
		sessionID, project, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// IncrSessionMemories adds n to the session's memories_created counter.
func (s *Store) IncrSessionMemories(sessionID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`UPDATE sessions SET memories_created = memories_created + ? WHERE session_id = ?`,
		n, sessionID,
	)
	return err
}

// IncrSessionCompactions increments the session's compactions counter.
func (s *Store) IncrSessionCompactions(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`UPDATE sessions SET compactions = compactions + 1 WHERE session_id = ?`,
		sessionID,
	)
	return err
}

// EndSession marks a session ended at now; ended_at is null while live.
func (s *Store) EndSession(sessionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE session_id = ?`,
		now, sessionID,
	)
	return err
}

// AllSessions returns every session ordered by started_at descending.
func (s *Store) AllSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT session_id, project, started_at, ended_at, memories_created, compactions
		 FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var endedAt sql.NullTime
		if err := rows.Scan(&sess.SessionID, &sess.Project, &sess.StartedAt, &endedAt, &sess.MemoriesCreated, &sess.Compactions); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if endedAt.Valid {
			t := endedAt.Time
			sess.EndedAt = &t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
