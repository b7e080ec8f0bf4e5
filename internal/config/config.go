// Package config loads, validates, and caches infinite-context's
// configuration. A single process-wide value is lazily initialized from
// config.json plus built-in defaults; a reset primitive exists for test
// determinism.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/Elizarfish/infinite-context/internal/logging"
)

// CategoryWeights maps a memory category to its base score weight.
type CategoryWeights map[string]float64

// DefaultCategoryWeight is used for any category not present in
// CategoryWeights.
const DefaultCategoryWeight = 0.4

func defaultCategoryWeights() CategoryWeights {
	return CategoryWeights{
		"architecture": 0.7,
		"decision":     0.6,
		"error":        0.65,
		"finding":      0.55,
		"file_change":  0.5,
		"note":         0.4,
	}
}

// Config holds all recognized options, each with a built-in default.
type Config struct {
	MaxRestoreTokens      int             `json:"maxRestoreTokens"`
	MaxMemoriesPerRestore int             `json:"maxMemoriesPerRestore"`
	MaxPromptRecallResults int            `json:"maxPromptRecallResults"`
	DecayFactor           float64         `json:"decayFactor"`
	DecayIntervalDays     int             `json:"decayIntervalDays"`
	PruneThreshold        float64         `json:"pruneThreshold"`
	ScoreFloor            float64         `json:"scoreFloor"`
	MaxMemoriesPerProject int             `json:"maxMemoriesPerProject"`
	CategoryWeights       CategoryWeights `json:"categoryWeights"`
	Stopwords             []string        `json:"stopwords"`
	Projects              map[string]*ProjectOverride `json:"projects"`
}

// ProjectOverride is the same shape as Config, but every field is a pointer
// or nil-map so "unset" is distinguishable from "zero" during the merge.
type ProjectOverride struct {
	MaxRestoreTokens       *int             `json:"maxRestoreTokens,omitempty"`
	MaxMemoriesPerRestore  *int             `json:"maxMemoriesPerRestore,omitempty"`
	MaxPromptRecallResults *int             `json:"maxPromptRecallResults,omitempty"`
	DecayFactor            *float64         `json:"decayFactor,omitempty"`
	DecayIntervalDays      *int             `json:"decayIntervalDays,omitempty"`
	PruneThreshold         *float64         `json:"pruneThreshold,omitempty"`
	ScoreFloor             *float64         `json:"scoreFloor,omitempty"`
	MaxMemoriesPerProject  *int             `json:"maxMemoriesPerProject,omitempty"`
	CategoryWeights        CategoryWeights  `json:"categoryWeights,omitempty"`
	Stopwords              []string         `json:"stopwords,omitempty"`
	// ExtractionMode selects the project's extractor; "rules" (default) is
	// the only mode implemented in-core. Non-default values are accepted
	// and stored but fall back to rule-based extraction; an LLM-driven
	// extractor is not implemented.
	ExtractionMode *string `json:"extractionMode,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRestoreTokens:       4000,
		MaxMemoriesPerRestore:  20,
		MaxPromptRecallResults: 5,
		DecayFactor:            0.95,
		DecayIntervalDays:      1,
		PruneThreshold:         0.05,
		ScoreFloor:             0.01,
		MaxMemoriesPerProject:  5000,
		CategoryWeights:        defaultCategoryWeights(),
		Stopwords:              defaultStopwords(),
		Projects:               map[string]*ProjectOverride{},
	}
}

var (
	cacheMu sync.Mutex
	cached  *Config
)

// Load returns the process-wide cached config, reading path on first call.
// A missing file is not an error: defaults are used, falling back silently
// when config.json is absent.
func Load(path string) (*Config, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cached != nil {
		return cached, nil
	}
	cfg, err := loadFresh(path)
	if err != nil {
		return nil, err
	}
	cached = cfg
	return cached, nil
}

// ResetConfig discards the cached value; the next Load re-reads disk. Exists
// purely for test isolation.
func ResetConfig() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cached = nil
}

func loadFresh(path string) (*Config, error) {
	cfg := DefaultConfig()

	if override := os.Getenv("INFINITE_CONTEXT_DIR"); override != "" && path == "" {
		path = filepath.Join(override, "config.json")
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryConfig).Debug("config file not found, using defaults: %s", path)
			return cfg, nil
		}
		logging.Get(logging.CategoryConfig).Warn("failed to read config %s: %v", path, err)
		return cfg, nil
	}

	var onDisk Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		logging.Get(logging.CategoryConfig).Warn("failed to parse config %s: %v, using defaults", path, err)
		return cfg, nil
	}

	merge(cfg, &onDisk)
	sanitize(cfg)
	return cfg, nil
}

// merge overlays any recognized field present in onDisk onto cfg. Unknown
// keys in the JSON document are ignored by encoding/json already.
func merge(cfg, onDisk *Config) {
	if onDisk.MaxRestoreTokens != 0 {
		cfg.MaxRestoreTokens = onDisk.MaxRestoreTokens
	}
	if onDisk.MaxMemoriesPerRestore != 0 {
		cfg.MaxMemoriesPerRestore = onDisk.MaxMemoriesPerRestore
	}
	if onDisk.MaxPromptRecallResults != 0 {
		cfg.MaxPromptRecallResults = onDisk.MaxPromptRecallResults
	}
	if onDisk.DecayFactor != 0 {
		cfg.DecayFactor = onDisk.DecayFactor
	}
	if onDisk.DecayIntervalDays != 0 {
		cfg.DecayIntervalDays = onDisk.DecayIntervalDays
	}
	if onDisk.PruneThreshold != 0 {
		cfg.PruneThreshold = onDisk.PruneThreshold
	}
	if onDisk.ScoreFloor != 0 {
		cfg.ScoreFloor = onDisk.ScoreFloor
	}
	if onDisk.MaxMemoriesPerProject != 0 {
		cfg.MaxMemoriesPerProject = onDisk.MaxMemoriesPerProject
	}
	if len(onDisk.CategoryWeights) > 0 {
		for k, v := range onDisk.CategoryWeights {
			cfg.CategoryWeights[k] = v
		}
	}
	if len(onDisk.Stopwords) > 0 {
		cfg.Stopwords = onDisk.Stopwords
	}
	if len(onDisk.Projects) > 0 {
		cfg.Projects = onDisk.Projects
	}
}

// sanitize applies validation rules: integer fields must be finite and
// >= 1, fraction fields must lie in [0,1], else fall back to default.
func sanitize(cfg *Config) {
	def := DefaultConfig()

	fixInt := func(v *int, fallback int) {
		if *v < 1 {
			*v = fallback
		}
	}
	fixFrac := func(v *float64, fallback float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 || *v > 1 {
			*v = fallback
		}
	}

	fixInt(&cfg.MaxRestoreTokens, def.MaxRestoreTokens)
	fixInt(&cfg.MaxMemoriesPerRestore, def.MaxMemoriesPerRestore)
	fixInt(&cfg.MaxPromptRecallResults, def.MaxPromptRecallResults)
	fixInt(&cfg.MaxMemoriesPerProject, def.MaxMemoriesPerProject)
	if cfg.DecayIntervalDays < 1 {
		cfg.DecayIntervalDays = 1
	}
	fixFrac(&cfg.DecayFactor, def.DecayFactor)
	fixFrac(&cfg.PruneThreshold, def.PruneThreshold)
	fixFrac(&cfg.ScoreFloor, def.ScoreFloor)
}

// Save writes cfg to path atomically via temp-file + rename.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config into place: %w", err)
	}
	return nil
}

// GetProjectConfig returns the global config shallow-merged with the
// per-project override (category weights deep-merged).
func GetProjectConfig(cfg *Config, project string) *Config {
	override, ok := cfg.Projects[project]
	if !ok || override == nil {
		return cfg
	}

	merged := *cfg
	merged.CategoryWeights = make(CategoryWeights, len(cfg.CategoryWeights))
	for k, v := range cfg.CategoryWeights {
		merged.CategoryWeights[k] = v
	}

	if override.MaxRestoreTokens != nil {
		merged.MaxRestoreTokens = *override.MaxRestoreTokens
	}
	if override.MaxMemoriesPerRestore != nil {
		merged.MaxMemoriesPerRestore = *override.MaxMemoriesPerRestore
	}
	if override.MaxPromptRecallResults != nil {
		merged.MaxPromptRecallResults = *override.MaxPromptRecallResults
	}
	if override.DecayFactor != nil {
		merged.DecayFactor = *override.DecayFactor
	}
	if override.DecayIntervalDays != nil {
		merged.DecayIntervalDays = *override.DecayIntervalDays
	}
	if override.PruneThreshold != nil {
		merged.PruneThreshold = *override.PruneThreshold
	}
	if override.ScoreFloor != nil {
		merged.ScoreFloor = *override.ScoreFloor
	}
	if override.MaxMemoriesPerProject != nil {
		merged.MaxMemoriesPerProject = *override.MaxMemoriesPerProject
	}
	for k, v := range override.CategoryWeights {
		merged.CategoryWeights[k] = v
	}
	if len(override.Stopwords) > 0 {
		merged.Stopwords = override.Stopwords
	}
	return &merged
}

// SetProjectExtractionMode records project's extraction mode override on
// cfg in place. Callers must Save cfg afterward to persist it.
func SetProjectExtractionMode(cfg *Config, project, mode string) {
	if cfg.Projects == nil {
		cfg.Projects = map[string]*ProjectOverride{}
	}
	override, ok := cfg.Projects[project]
	if !ok || override == nil {
		override = &ProjectOverride{}
		cfg.Projects[project] = override
	}
	override.ExtractionMode = &mode
}

// CategoryWeight returns the configured weight for category, or the default
// weight when category is unrecognized.
func (c *Config) CategoryWeight(category string) float64 {
	if w, ok := c.CategoryWeights[category]; ok {
		return w
	}
	return DefaultCategoryWeight
}

// StopwordSet returns the configured stopwords as a lookup set.
func (c *Config) StopwordSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Stopwords))
	for _, w := range c.Stopwords {
		set[w] = struct{}{}
	}
	return set
}

func defaultStopwords() []string {
	return []string{
		"the", "and", "for", "that", "this", "with", "from", "have", "has",
		"had", "was", "were", "are", "you", "your", "our", "but", "not",
		"can", "will", "would", "should", "could", "about", "into", "then",
		"than", "them", "they", "their", "there", "here", "what", "when",
		"where", "which", "while", "been", "being", "does", "did", "doing",
	}
}
