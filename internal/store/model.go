package store

import (
	"encoding/json"
	"time"
)

// Recognized memory categories. Any other value is accepted by
// storage but routes into the "note" bucket on restore.
const (
	CategoryArchitecture = "architecture"
	CategoryDecision     = "decision"
	CategoryError        = "error"
	CategoryFinding      = "finding"
	CategoryFileChange   = "file_change"
	CategoryNote         = "note"
)

// Memory is a single remembered fact.
type Memory struct {
	ID           int64
	Project      string
	SessionID    string
	Category     string
	Content      string
	Keywords     string
	Score        float64
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int
	SourceHash   *string
	// Metadata is a parsed structured value on read; nil when absent. It is
	// serialized exactly once at the storage boundary and must
	// never be an already-JSON-encoded string.
	Metadata json.RawMessage
}

// Checkpoint is a parser resumption cursor.
type Checkpoint struct {
	ID             int64
	SessionID      string
	TranscriptPath string
	LastLineNumber int
	CreatedAt      time.Time
}

// Session tracks one conversation's lifecycle.
type Session struct {
	SessionID       string
	Project         string
	StartedAt       time.Time
	EndedAt         *time.Time
	MemoriesCreated int
	Compactions     int
}

// Stats aggregates the dashboard's read-only metrics.
type Stats struct {
	Total            int64
	CategoryCounts   map[string]int64
	AverageScore     float64
	ScoreHistogram   [10]int64
	Timeline         map[string]int64 // day (YYYY-MM-DD) -> count, last 30 days
}

// ListQuery parameterizes the dashboard's paginated memory listing.
type ListQuery struct {
	Project  string
	Category string
	Search   string
	Sort     string // score|created|accessed|access_count|id
	Order    string // asc|desc
	Page     int
	Limit    int
}
