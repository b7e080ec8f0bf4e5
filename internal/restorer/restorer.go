// Package restorer implements importance ranking and token-budgeted
// context assembly grouped by category, plus the simpler keyword-recall
// formatting used for per-prompt results.
package restorer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Elizarfish/infinite-context/internal/config"
	"github.com/Elizarfish/infinite-context/internal/scoring"
	"github.com/Elizarfish/infinite-context/internal/store"
)

// Result is the output shape shared by RestoreContext and RecallForPrompt.
type Result struct {
	Text string
	IDs  []int64
}

const topHeader = "## Prior Context (restored from archive)\n\n"

// sectionOrder fixes the emission order of restored-context sections.
var sectionOrder = []string{
	store.CategoryArchitecture,
	store.CategoryDecision,
	store.CategoryError,
	store.CategoryFinding,
	store.CategoryFileChange,
	store.CategoryNote,
}

var sectionTitle = map[string]string{
	store.CategoryArchitecture: "Architecture & Design",
	store.CategoryDecision:     "Key Decisions",
	store.CategoryError:        "Known Issues",
	store.CategoryFinding:      "Findings",
	store.CategoryFileChange:   "Files Modified",
	store.CategoryNote:         "Notes",
}

// bucketCategory routes unrecognized categories into "note".
func bucketCategory(category string) string {
	if _, ok := sectionTitle[category]; ok {
		return category
	}
	return store.CategoryNote
}

// RestoreContext ranks memories by computeImportance descending and walks
// them in rank order, admitting each only if its line (plus any new
// section header it would introduce) keeps the running token total within
// budget. budget == nil uses cfg.MaxRestoreTokens; budget pointing at 0
// means "restore nothing"; a nil memories slice yields an empty result.
func RestoreContext(cfg *config.Config, memories []store.Memory, budget *int, now time.Time) Result {
	if len(memories) == 0 {
		return Result{}
	}

	effectiveBudget := cfg.MaxRestoreTokens
	if budget != nil {
		effectiveBudget = *budget
	}
	if effectiveBudget <= 0 && budget != nil && *budget == 0 {
		return Result{}
	}

	ranked := make([]store.Memory, len(memories))
	copy(ranked, memories)
	sort.SliceStable(ranked, func(i, j int) bool {
		return importanceOf(ranked[i], now) > importanceOf(ranked[j], now)
	})

	tokens := scoring.EstimateTokens(topHeader)
	seenSections := map[string]bool{}
	grouped := map[string][]store.Memory{}
	var ids []int64

	for _, m := range ranked {
		bucket := bucketCategory(m.Category)

		extra := 0
		if !seenSections[bucket] {
			extra += scoring.EstimateTokens(fmt.Sprintf("### %s\n", sectionTitle[bucket]))
		}
		line := fmt.Sprintf("- %s\n", m.Content)
		extra += scoring.EstimateTokens(line)

		if tokens+extra > effectiveBudget {
			break
		}

		tokens += extra
		seenSections[bucket] = true
		grouped[bucket] = append(grouped[bucket], m)
		ids = append(ids, m.ID)
	}

	if len(ids) == 0 {
		return Result{}
	}

	var b strings.Builder
	b.WriteString(topHeader)
	for _, cat := range sectionOrder {
		items := grouped[cat]
		if len(items) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("### %s\n", sectionTitle[cat]))
		for _, m := range items {
			b.WriteString(fmt.Sprintf("- %s\n", m.Content))
		}
	}

	return Result{Text: b.String(), IDs: ids}
}

func importanceOf(m store.Memory, now time.Time) float64 {
	score := m.Score
	return scoring.ComputeImportance(scoring.ImportanceInput{
		Score:        &score,
		LastAccessed: m.LastAccessed,
		AccessCount:  m.AccessCount,
	}, now)
}

// RecallForPrompt formats search results for UserPromptSubmit.
// Empty/null input yields an empty result.
func RecallForPrompt(results []store.Memory) Result {
	if len(results) == 0 {
		return Result{}
	}

	var b strings.Builder
	b.WriteString("## Relevant prior context\n")
	var ids []int64
	for _, m := range results {
		b.WriteString(fmt.Sprintf("- [%s] %s\n", m.Category, m.Content))
		ids = append(ids, m.ID)
	}

	return Result{Text: b.String(), IDs: ids}
}
