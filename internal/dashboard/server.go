// Package dashboard implements the minimal read/write HTTP surface:
// paginated memories, memory detail, project/session listings, stats, and
// config get/update/reset, plus a handful of write endpoints (delete,
// bulk delete, per-project extraction-mode override, prune).
//
// No router dependency is pulled in for this; it uses the standard
// library's http.ServeMux (see DESIGN.md).
package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Elizarfish/infinite-context/internal/config"
	"github.com/Elizarfish/infinite-context/internal/logging"
	"github.com/Elizarfish/infinite-context/internal/paths"
	"github.com/Elizarfish/infinite-context/internal/store"
)

// Server is a thin HTTP caller of the store and config layers; it owns no
// storage logic of its own.
type Server struct {
	store *store.Store
	mux   *http.ServeMux
}

// New builds a dashboard server backed by st.
func New(st *store.Store) *Server {
	s := &Server{store: st, mux: http.NewServeMux()}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/memories", s.handleMemories)
	s.mux.HandleFunc("/api/memories/", s.handleMemoryDetail)
	s.mux.HandleFunc("/api/projects", s.handleProjects)
	s.mux.HandleFunc("/api/sessions", s.handleSessions)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	s.mux.HandleFunc("/api/projects/extraction-mode", s.handleExtractionMode)
	s.mux.HandleFunc("/api/prune", s.handlePrune)
	s.mux.HandleFunc("/api/prune/preview", s.handlePrunePreview)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryDashboard).Error("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleMemories serves GET (paginated listing) and is the landing point
// for bulk delete via DELETE with a JSON body of ids.
func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		memories, err := s.store.List(store.ListQuery{
			Project:  q.Get("project"),
			Category: q.Get("category"),
			Search:   q.Get("search"),
			Sort:     q.Get("sort"),
			Order:    q.Get("order"),
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, memories)

	case http.MethodDelete:
		var body struct {
			IDs []int64 `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		deleted, err := s.store.DeleteMemories(body.IDs)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})

	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

// handleMemoryDetail serves GET and DELETE for /api/memories/{id}.
func (s *Server) handleMemoryDetail(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/memories/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		m, err := s.store.GetMemory(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if m == nil {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		writeJSON(w, http.StatusOK, m)

	case http.MethodDelete:
		if err := s.store.DeleteMemory(id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, nil)

	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.AllSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	stats, err := s.store.GetStats(project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleConfig serves GET (current config) and PUT (update, with an
// optional {"reset": true} to restore defaults).
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, err := config.Load(paths.ConfigPath())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	case http.MethodPut:
		var body struct {
			Reset bool           `json:"reset"`
			Config *config.Config `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		var next *config.Config
		if body.Reset || body.Config == nil {
			next = config.DefaultConfig()
		} else {
			next = body.Config
		}
		if err := config.Save(next, paths.ConfigPath()); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		config.ResetConfig()
		writeJSON(w, http.StatusOK, next)

	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

// handleExtractionMode sets a per-project extraction mode override.
func (s *Server) handleExtractionMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}
	var body struct {
		Project string `json:"project"`
		Mode    string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Project == "" || body.Mode == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := config.Load(paths.ConfigPath())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	config.SetProjectExtractionMode(cfg, body.Project, body.Mode)
	if err := config.Save(cfg, paths.ConfigPath()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	config.ResetConfig()
	writeJSON(w, http.StatusOK, nil)
}

// handlePrune runs a write prune pass: by score, by age, or the default
// decay+prune.
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}
	var body pruneRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	count, err := s.runPrune(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pruned": count})
}

func (s *Server) handlePrunePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}
	var body pruneRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var count int
	var err error
	switch {
	case body.OlderThanDays > 0:
		count, err = s.store.CountOld(body.OlderThanDays)
	case body.BelowScore > 0:
		count, err = s.store.CountBelowScore(body.BelowScore)
	default:
		writeError(w, http.StatusBadRequest, "preview requires olderThanDays or belowScore")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"wouldPrune": count})
}

type pruneRequest struct {
	OlderThanDays int     `json:"olderThanDays"`
	BelowScore    float64 `json:"belowScore"`
}

func (s *Server) runPrune(req pruneRequest) (int, error) {
	switch {
	case req.OlderThanDays > 0:
		return s.store.PruneOld(req.OlderThanDays)
	case req.BelowScore > 0:
		return s.store.PruneBelowScore(req.BelowScore)
	default:
		cfg, err := config.Load(paths.ConfigPath())
		if err != nil {
			return 0, err
		}
		return s.store.DecayAndPrune(cfg.DecayFactor, cfg.ScoreFloor, cfg.DecayIntervalDays, cfg.PruneThreshold)
	}
}
