// Package scoring implements the importance formulas: base score, live
// importance, keyword extraction, and token estimation.
package scoring

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/Elizarfish/infinite-context/internal/config"
)

// ScoreMemory computes the persistent base importance of a memory from its
// category and content: categoryWeight + min(len(content)/500, 0.1),
// capped at 1.0.
func ScoreMemory(cfg *config.Config, category, content string) float64 {
	weight := cfg.CategoryWeight(category)
	lengthBonus := math.Min(float64(len(content))/500.0, 0.1)
	score := weight + lengthBonus
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ImportanceInput is the subset of a stored memory needed to compute live
// importance, decoupled from the store package to avoid an import cycle.
type ImportanceInput struct {
	Score        *float64 // nil means "absent"; a present 0 is preserved
	LastAccessed time.Time
	AccessCount  int
}

// ComputeImportance returns base * recency * frequency, where recency uses a
// 7-day half-life and frequency is log2(access_count+1)+1. If the timestamp
// does not produce a finite freshness value, base is returned unchanged so
// NaN never propagates.
func ComputeImportance(m ImportanceInput, now time.Time) float64 {
	base := 0.5
	if m.Score != nil {
		base = *m.Score
	}

	if m.LastAccessed.IsZero() {
		return base
	}

	freshnessDays := now.Sub(m.LastAccessed).Hours() / 24.0
	if math.IsNaN(freshnessDays) || math.IsInf(freshnessDays, 0) {
		return base
	}
	if freshnessDays < 0.01 {
		freshnessDays = 0.01
	}

	recency := math.Exp(-math.Ln2 * freshnessDays / 7.0)
	frequency := math.Log2(float64(m.AccessCount)+1) + 1

	result := base * recency * frequency
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return base
	}
	return result
}

// keywordCharset matches allowed character class:
// [a-z 0-9 а-я ё _ - . /] (lowercased first).
var keywordCharset = regexp.MustCompile(`[^a-z0-9а-яё_\-./ ]`)

// ExtractKeywords lowercases text, strips characters outside the allowed
// set, splits on whitespace, drops short/stopword tokens, dedupes
// preserving insertion order, and keeps at most 30 tokens.
func ExtractKeywords(cfg *config.Config, text string) string {
	lower := strings.ToLower(text)
	cleaned := keywordCharset.ReplaceAllString(lower, " ")

	stop := cfg.StopwordSet()
	seen := make(map[string]struct{})
	var kept []string

	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if _, isStop := stop[tok]; isStop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		kept = append(kept, tok)
		if len(kept) >= 30 {
			break
		}
	}

	return strings.Join(kept, " ")
}

// EstimateTokens approximates token count as ceil(len(text)/3.5).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / 3.5))
}
