//go:build sqlite_fts5

package dashboard_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elizarfish/infinite-context/internal/config"
	"github.com/Elizarfish/infinite-context/internal/dashboard"
	"github.com/Elizarfish/infinite-context/internal/store"
)

func newTestServer(t *testing.T) (*dashboard.Server, *store.Store) {
	t.Helper()
	t.Setenv("INFINITE_CONTEXT_DIR", t.TempDir())
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return dashboard.New(st), st
}

func doRequest(t *testing.T, s *dashboard.Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, target, bytes.NewReader(raw))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, r)
	return w
}

func TestHandleMemoriesListsAndFilters(t *testing.T) {
	s, st := newTestServer(t)
	_, err := st.InsertMemory(store.Memory{Project: "proj", SessionID: "s", Category: store.CategoryDecision, Content: "chose sqlite for storage", Score: 0.8})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, "/api/memories?project=proj", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var memories []store.Memory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &memories))
	require.Len(t, memories, 1)
	assert.Equal(t, "chose sqlite for storage", memories[0].Content)
}

func TestHandleMemoriesBulkDelete(t *testing.T) {
	s, st := newTestServer(t)
	id, err := st.InsertMemory(store.Memory{Project: "proj", SessionID: "s", Category: store.CategoryNote, Content: "a note", Score: 0.5})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodDelete, "/api/memories", map[string][]int64{"ids": {*id}})
	assert.Equal(t, http.StatusOK, w.Code)

	var out map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out["deleted"])

	remaining, err := st.GetMemory(*id)
	require.NoError(t, err)
	assert.Nil(t, remaining)
}

func TestHandleMemoryDetailNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/memories/999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleMemoryDetailInvalidID(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/memories/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleConfigGetAndPut(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/config", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var cfg config.Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, config.DefaultConfig().MaxRestoreTokens, cfg.MaxRestoreTokens)

	cfg.MaxRestoreTokens = 12345
	w = doRequest(t, s, http.MethodPut, "/api/config", map[string]interface{}{"config": &cfg})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/config", nil)
	var after config.Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	assert.Equal(t, 12345, after.MaxRestoreTokens)
}

func TestHandleConfigResetRestoresDefaults(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(t, s, http.MethodPut, "/api/config", map[string]interface{}{
		"config": &config.Config{MaxRestoreTokens: 1},
	})
	w := doRequest(t, s, http.MethodPut, "/api/config", map[string]interface{}{"reset": true})
	assert.Equal(t, http.StatusOK, w.Code)

	var after config.Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	assert.Equal(t, config.DefaultConfig().MaxRestoreTokens, after.MaxRestoreTokens)
}

func TestHandleExtractionModeSetsProjectOverride(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPut, "/api/projects/extraction-mode", map[string]string{
		"project": "proj", "mode": "rules",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg.Projects["proj"])
	require.NotNil(t, cfg.Projects["proj"].ExtractionMode)
	assert.Equal(t, "rules", *cfg.Projects["proj"].ExtractionMode)
}

func TestHandleExtractionModeRejectsMissingFields(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodPut, "/api/projects/extraction-mode", map[string]string{"project": "proj"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePrunePreviewRequiresACriterion(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodPost, "/api/prune/preview", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePrunePreviewCountsBelowScore(t *testing.T) {
	s, st := newTestServer(t)
	_, err := st.InsertMemory(store.Memory{Project: "proj", SessionID: "s", Category: store.CategoryNote, Content: "low score note", Score: 0.1})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodPost, "/api/prune/preview", map[string]float64{"belowScore": 0.5})
	assert.Equal(t, http.StatusOK, w.Code)

	var out map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out["wouldPrune"])
}

func TestHandlePruneByScoreDeletesMatchingRows(t *testing.T) {
	s, st := newTestServer(t)
	id, err := st.InsertMemory(store.Memory{Project: "proj", SessionID: "s", Category: store.CategoryNote, Content: "low score note", Score: 0.1})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodPost, "/api/prune", map[string]float64{"belowScore": 0.5})
	assert.Equal(t, http.StatusOK, w.Code)

	var out map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out["pruned"])

	remaining, err := st.GetMemory(*id)
	require.NoError(t, err)
	assert.Nil(t, remaining)
}

func TestHandleProjectsAndSessionsAndStats(t *testing.T) {
	s, st := newTestServer(t)
	require.NoError(t, st.UpsertSession("sess-1", "proj"))
	_, err := st.InsertMemory(store.Memory{Project: "proj", SessionID: "sess-1", Category: store.CategoryNote, Content: "a note", Score: 0.5})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var projects []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	assert.Contains(t, projects, "proj")

	w = doRequest(t, s, http.MethodGet, "/api/sessions", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/stats?project=proj", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var stats store.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Total)
}

func TestUnsupportedMethodsRejected(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodPost, "/api/memories", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
