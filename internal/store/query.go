package store

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

var sortColumns = map[string]string{
	"score":        "score",
	"created":      "created_at",
	"accessed":     "last_accessed",
	"access_count": "access_count",
	"id":           "id",
}

// List implements the dashboard's paginated memory listing: filters
// (project?, category?, search?), sort, order, page, limit<=200.
func (s *Store) List(q ListQuery) ([]Memory, error) {
	col, ok := sortColumns[q.Sort]
	if !ok {
		col = "score"
	}
	order := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		order = "ASC"
	}
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var where []string
	var args []interface{}
	if q.Project != "" {
		where = append(where, "project = ?")
		args = append(args, q.Project)
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		where = append(where, "(content LIKE ? OR keywords LIKE ?)")
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT id, project, session_id, category, content, keywords, score, created_at, last_accessed, access_count, source_hash, metadata FROM memories`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT ? OFFSET ?", col, order)
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// GetMemory returns a single memory by id, or (nil, nil) if not found.
func (s *Store) GetMemory(id int64) (*Memory, error) {
	rows, err := s.db.Query(
		`SELECT id, project, session_id, category, content, keywords, score, created_at, last_accessed, access_count, source_hash, metadata
		 FROM memories WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	defer rows.Close()
	memories, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}
	if len(memories) == 0 {
		return nil, nil
	}
	return &memories[0], nil
}

// DeleteMemory removes a single memory row by id.
func (s *Store) DeleteMemory(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	return err
}

// DeleteMemories removes multiple memory rows in one transaction.
func (s *Store) DeleteMemories(ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin bulk delete: %w", err)
	}
	defer tx.Rollback()

	deleted := 0
	for _, id := range ids {
		result, err := tx.Exec(`DELETE FROM memories WHERE id = ?`, id)
		if err != nil {
			return 0, fmt.Errorf("delete memory %d: %w", id, err)
		}
		n, _ := result.RowsAffected()
		deleted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk delete: %w", err)
	}
	return deleted, nil
}

// ListProjects returns the distinct set of projects that own at least one
// memory.
func (s *Store) ListProjects() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT project FROM memories ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetStats computes the dashboard's aggregate statistics (category counts,
// average score, a 10-bucket score histogram, and a 30-day timeline). The
// four independent read-only aggregations run concurrently via errgroup
// since they share no mutable state.
func (s *Store) GetStats(project string) (*Stats, error) {
	stats := &Stats{CategoryCounts: map[string]int64{}, Timeline: map[string]int64{}}

	where := ""
	var args []interface{}
	if project != "" {
		where = " WHERE project = ?"
		args = []interface{}{project}
	}

	var g errgroup.Group

	g.Go(func() error {
		if err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(AVG(score), 0) FROM memories`+where, args...).
			Scan(&stats.Total, &stats.AverageScore); err != nil {
			return fmt.Errorf("total/average: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := s.db.Query(`SELECT category, COUNT(*) FROM memories`+where+` GROUP BY category`, args...)
		if err != nil {
			return fmt.Errorf("category counts: %w", err)
		}
		defer rows.Close()
		counts := map[string]int64{}
		for rows.Next() {
			var cat string
			var n int64
			if err := rows.Scan(&cat, &n); err != nil {
				return err
			}
			counts[cat] = n
		}
		stats.CategoryCounts = counts
		return rows.Err()
	})

	g.Go(func() error {
		rows, err := s.db.Query(`SELECT score FROM memories`+where, args...)
		if err != nil {
			return fmt.Errorf("score histogram: %w", err)
		}
		defer rows.Close()
		var hist [10]int64
		for rows.Next() {
			var score float64
			if err := rows.Scan(&score); err != nil {
				return err
			}
			bucket := int(score * 10)
			if bucket > 9 {
				bucket = 9
			}
			if bucket < 0 {
				bucket = 0
			}
			hist[bucket]++
		}
		stats.ScoreHistogram = hist
		return rows.Err()
	})

	g.Go(func() error {
		timelineWhere := " WHERE datetime(created_at) >= datetime('now', '-30 days')"
		timelineArgs := []interface{}{}
		if project != "" {
			timelineWhere += " AND project = ?"
			timelineArgs = append(timelineArgs, project)
		}
		rows, err := s.db.Query(
			`SELECT date(created_at) AS day, COUNT(*) FROM memories`+timelineWhere+` GROUP BY day`,
			timelineArgs...,
		)
		if err != nil {
			return fmt.Errorf("timeline: %w", err)
		}
		defer rows.Close()
		timeline := map[string]int64{}
		for rows.Next() {
			var day string
			var n int64
			if err := rows.Scan(&day, &n); err != nil {
				return err
			}
			timeline[day] = n
		}
		stats.Timeline = timeline
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
