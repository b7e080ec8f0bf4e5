package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Elizarfish/infinite-context/internal/logging"
)

// defaultTopMemoriesLimit mirrors the default maxMemoriesPerRestore;
// callers in the restorer/orchestrate layers normally pass an explicit,
// config-derived limit instead of relying on this fallback.
const defaultTopMemoriesLimit = 20

// defaultSearchLimit is Search's default result count.
const defaultSearchLimit = 10

// InsertMemory inserts m and returns its assigned id, or nil if m.SourceHash
// is set and a row with that hash already exists. Metadata is serialized
// exactly once here; callers must pass a structured value, not a
// pre-stringified one.
func (s *Store) InsertMemory(m Memory) (*int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.SourceHash != nil {
		var exists int64
		err := s.db.QueryRow(`SELECT id FROM memories WHERE source_hash = ?`, *m.SourceHash).Scan(&exists)
		if err == nil {
			return nil, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("check source_hash: %w", err)
		}
	}

	id, err := s.insertMemoryLocked(s.db, m)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (s *Store) insertMemoryLocked(e execer, m Memory) (int64, error) {
	now := m.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	lastAccessed := m.LastAccessed
	if lastAccessed.IsZero() {
		lastAccessed = now
	}

	// m.Metadata is already a structured value encoded exactly once by the
	// caller (extractor/orchestrate); write its bytes verbatim so nothing
	// gets re-stringified at the storage boundary.
	var metadataText *string
	if len(m.Metadata) > 0 {
		if !json.Valid(m.Metadata) {
			return 0, fmt.Errorf("metadata is not valid JSON")
		}
		text := string(m.Metadata)
		metadataText = &text
	}

	result, err := e.Exec(
		`INSERT INTO memories
			(project, session_id, category, content, keywords, score, created_at, last_accessed, access_count, source_hash, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Project, m.SessionID, m.Category, m.Content, m.Keywords, m.Score,
		now, lastAccessed, m.AccessCount, m.SourceHash, metadataText,
	)
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	return result.LastInsertId()
}

// InsertMany inserts ms in a single transaction and returns the count
// actually inserted; duplicates (by source_hash) count as 0. A failed row
// rolls back the whole batch.
func (s *Store) InsertMany(ms []Memory) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ms) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, m := range ms {
		if m.SourceHash != nil {
			var exists int64
			err := tx.QueryRow(`SELECT id FROM memories WHERE source_hash = ?`, *m.SourceHash).Scan(&exists)
			if err == nil {
				continue // duplicate, counted as 0
			}
			if err != sql.ErrNoRows {
				return 0, fmt.Errorf("check source_hash: %w", err)
			}
		}
		if _, err := s.insertMemoryLocked(tx, m); err != nil {
			return 0, err
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch insert: %w", err)
	}
	return inserted, nil
}

// GetTopMemories returns project's memories ordered by score descending,
// limited by limit (or the built-in default when limit <= 0).
func (s *Store) GetTopMemories(project string, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = defaultTopMemoriesLimit
	}
	rows, err := s.db.Query(
		`SELECT id, project, session_id, category, content, keywords, score, created_at, last_accessed, access_count, source_hash, metadata
		 FROM memories WHERE project = ? ORDER BY score DESC LIMIT ?`,
		project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// ftsMetacharacters are the FTS5 query-syntax operators the search
// sanitizer strips before building a query.
var ftsMetacharacters = regexp.MustCompile(`[*^{}\[\]():~!]`)

// sanitizeFTSQuery turns arbitrary user text into a safe FTS5 query: split
// on whitespace, drop tokens <= 1 char, strip metacharacters, double any
// embedded quote, wrap each surviving token in quotes, join with OR.
func sanitizeFTSQuery(query string) string {
	var clauses []string
	for _, tok := range strings.Fields(query) {
		cleaned := ftsMetacharacters.ReplaceAllString(tok, "")
		if len([]rune(cleaned)) <= 1 {
			continue
		}
		doubled := strings.ReplaceAll(cleaned, `"`, `""`)
		clauses = append(clauses, fmt.Sprintf(`"%s"`, doubled))
	}
	return strings.Join(clauses, " OR ")
}

// Search runs a sanitized full-text query, optionally restricted to
// project, returning at most limit results. A sanitized-empty query or an
// index parse error both yield an empty slice, never an error.
func (s *Store) Search(query, project string, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT m.id, m.project, m.session_id, m.category, m.content, m.keywords, m.score,
		       m.created_at, m.last_accessed, m.access_count, m.source_hash, m.metadata
		FROM memories_fts
		JOIN memories m ON m.id = memories_fts.rowid
		WHERE memories_fts MATCH ?`
	args := []interface{}{sanitized}
	if project != "" {
		sqlQuery += ` AND m.project = ?`
		args = append(args, project)
	}
	sqlQuery += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		logging.Get(logging.CategoryStore).Debug("fts query error (returning empty): %v", err)
		return nil, nil
	}
	defer rows.Close()
	results, err := scanMemories(rows)
	if err != nil {
		logging.Get(logging.CategoryStore).Debug("fts scan error (returning empty): %v", err)
		return nil, nil
	}
	return results, nil
}

// TouchMemories bumps access bookkeeping for ids in one transaction: each
// row's access_count increments, last_accessed becomes now, and score makes
// an asymptotic step toward 1 (min(1, score + 0.02*(1-score))). Missing ids
// are silent no-ops.
func (s *Store) TouchMemories(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin touch transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := tx.Exec(
			`UPDATE memories
			 SET access_count = access_count + 1,
			     last_accessed = ?,
			     score = MIN(1.0, score + 0.02 * (1.0 - score))
			 WHERE id = ?`,
			now, id,
		); err != nil {
			return fmt.Errorf("touch memory %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// DecayAndPrune applies score decay to rows idle past the configured
// interval, then deletes rows below the prune threshold, returning the
// delete count.
func (s *Store) DecayAndPrune(decayFactor, scoreFloor float64, decayIntervalDays int, pruneThreshold float64) (int, error) {
	if decayIntervalDays < 1 {
		decayIntervalDays = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin decay transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE memories
		 SET score = MAX(?, score * ?)
		 WHERE datetime(last_accessed) < datetime('now', '-' || ? || ' days')`,
		scoreFloor, decayFactor, decayIntervalDays,
	); err != nil {
		return 0, fmt.Errorf("apply decay: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM memories WHERE score < ?`, pruneThreshold)
	if err != nil {
		return 0, fmt.Errorf("prune below threshold: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit decay/prune: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

// PruneOld deletes never-touched rows (access_count = 0) older than
// max(1, round(days or 30)) days, returning the delete count.
func (s *Store) PruneOld(days int) (int, error) {
	if days == 0 {
		days = 30
	} else if days < 1 {
		days = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(
		`DELETE FROM memories
		 WHERE access_count = 0 AND datetime(created_at) < datetime('now', '-' || ? || ' days')`,
		days,
	)
	if err != nil {
		return 0, fmt.Errorf("prune old: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

// PruneBelowScore deletes rows with score < threshold, returning the delete
// count.
func (s *Store) PruneBelowScore(threshold float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM memories WHERE score < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune below score: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

// CountBelowScore is PruneBelowScore's dry-run counterpart used by the CLI.
func (s *Store) CountBelowScore(threshold float64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE score < ?`, threshold).Scan(&count)
	return count, err
}

// CountOld is PruneOld's dry-run counterpart used by the CLI.
func (s *Store) CountOld(days int) (int, error) {
	if days == 0 {
		days = 30
	} else if days < 1 {
		days = 1
	}
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM memories
		 WHERE access_count = 0 AND datetime(created_at) < datetime('now', '-' || ? || ' days')`,
		days,
	).Scan(&count)
	return count, err
}

// EnforceProjectLimit deletes lowest-score rows in project until its count
// is at most maxPerProject, returning the delete count.
func (s *Store) EnforceProjectLimit(project string, maxPerProject int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE project = ?`, project).Scan(&total); err != nil {
		return 0, fmt.Errorf("count project memories: %w", err)
	}
	if total <= maxPerProject {
		return 0, nil
	}
	excess := total - maxPerProject

	result, err := s.db.Exec(
		`DELETE FROM memories WHERE id IN (
			SELECT id FROM memories WHERE project = ? ORDER BY score ASC LIMIT ?
		)`,
		project, excess,
	)
	if err != nil {
		return 0, fmt.Errorf("enforce project limit: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

func scanMemories(rows *sql.Rows) ([]Memory, error) {
	var out []Memory
	for rows.Next() {
		var m Memory
		var sourceHash sql.NullString
		var metadataText sql.NullString
		if err := rows.Scan(
			&m.ID, &m.Project, &m.SessionID, &m.Category, &m.Content, &m.Keywords, &m.Score,
			&m.CreatedAt, &m.LastAccessed, &m.AccessCount, &sourceHash, &metadataText,
		); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if sourceHash.Valid {
			v := sourceHash.String
			m.SourceHash = &v
		}
		if metadataText.Valid && metadataText.String != "" {
			m.Metadata = json.RawMessage(metadataText.String)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
