// Package ratelimit implements an advisory per-key recall limiter: at most
// one keyword recall per key per interval, where the caller picks the key
// (UserPromptSubmit uses the project path, since the event carries no
// session id). State lives in a small JSON file; any failure to read or
// write it is treated as "allow" rather than an error, since losing
// rate-limit state costs nothing but an extra recall (the same
// atomic-write discipline as internal/config, applied to a file that is
// allowed to be lossy).
package ratelimit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Interval is the minimum spacing between recalls for a single key.
const Interval = 60 * time.Second

type fileState struct {
	Sessions map[string]time.Time `json:"sessions"`
}

// Limiter tracks the last-recall timestamp per key, backed by a JSON
// file at path.
type Limiter struct {
	path string
}

// New returns a limiter backed by the file at path.
func New(path string) *Limiter {
	return &Limiter{path: path}
}

// Allow reports whether a recall for the key sessionID (UserPromptSubmit
// passes the project path) may proceed at now, and if so records now as
// that key's last-recall time. On any I/O error it
// fails open (returns true) rather than blocking a recall on a broken
// state file.
func (l *Limiter) Allow(sessionID string, now time.Time) bool {
	state, err := l.load()
	if err != nil {
		return true
	}

	if last, ok := state.Sessions[sessionID]; ok {
		if now.Sub(last) < Interval {
			return false
		}
	}

	state.Sessions[sessionID] = now
	_ = l.save(state)
	return true
}

func (l *Limiter) load() (fileState, error) {
	state := fileState{Sessions: map[string]time.Time{}}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, err
	}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return fileState{Sessions: map[string]time.Time{}}, nil
	}
	if state.Sessions == nil {
		state.Sessions = map[string]time.Time{}
	}
	return state, nil
}

func (l *Limiter) save(state fileState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "prompt-state-*.json")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, l.path)
}
