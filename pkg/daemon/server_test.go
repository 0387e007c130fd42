package daemon

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listingwire/scrapegate/pkg/gate"
	"github.com/listingwire/scrapegate/pkg/journal"
	"github.com/listingwire/scrapegate/pkg/source"
	"github.com/listingwire/scrapegate/pkg/timegate"
)

// newTestServer wires an engine into a daemon and returns its HTTP handler
// without binding a port or starting background loops.
func newTestServer(t *testing.T) (http.Handler, *Daemon) {
	t.Helper()

	profiles := []source.Profile{
		{
			ID:                "brampton",
			RequestsPerMinute: 6,
			RequestsPerHour:   60,
			RequestsPerDay:    300,
			MaxRetries:        3,
			BackoffBase:       time.Second,
			StartHour:         0,
			EndHour:           24,
			Timezone:          "UTC",
			AllowWeekends:     true,
		},
	}
	reg, err := source.NewRegistry(profiles)
	require.NoError(t, err)
	engine := gate.New(reg, timegate.New(nil), gate.Config{})

	cfg := DefaultConfig()
	cfg.PidFile = ""
	cfg.EnableHTTP = false
	cfg.LogLevel = "error"
	cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")

	d, err := New(engine, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { d.journal.Close() })

	srv := NewServer(d, 0, NewLogger("http", LogLevelError))
	return srv.Handler(), d
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleAdmit(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := postJSON(t, handler, "/api/admit", map[string]string{"source": "brampton"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp admitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Allowed)
	assert.Equal(t, "none", resp.Reason)
	assert.Zero(t, resp.WaitMs)
}

func TestHandleAdmit_UnknownSource(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := postJSON(t, handler, "/api/admit", map[string]string{"source": "atlantis"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "atlantis")
}

func TestHandleAdmit_MethodAndBody(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := get(handler, "/api/admit")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admit", bytes.NewReader([]byte("{not json")))
	bad := httptest.NewRecorder()
	handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestHandleReport_DeniesAfterErrors(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := postJSON(t, handler, "/api/report", reportRequest{
		Source:  "brampton",
		Success: false,
		Error:   "429 too many requests",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, handler, "/api/admit", map[string]string{"source": "brampton"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp admitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Allowed)
	assert.Equal(t, "error_cooldown", resp.Reason)
	assert.Positive(t, resp.WaitMs)
}

func TestHandleReport_SuccessAdvancesCounters(t *testing.T) {
	handler, d := newTestServer(t)

	rec := postJSON(t, handler, "/api/report", reportRequest{Source: "brampton", Success: true})
	require.Equal(t, http.StatusOK, rec.Code)

	snap := d.Status()
	require.Len(t, snap.Sources, 1)
	assert.Equal(t, 1, snap.Sources[0].Minute.Count)
	assert.Equal(t, 1, snap.Global.Minute.Count)
}

func TestHandleStatus(t *testing.T) {
	handler, d := newTestServer(t)
	require.NoError(t, d.Report("brampton", true, ""))

	rec := get(handler, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap gate.StatusSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Sources, 1)
	assert.Equal(t, "brampton", snap.Sources[0].ID)
	assert.Equal(t, 1, snap.Sources[0].Minute.Count)
	assert.Equal(t, 6, snap.Sources[0].Minute.Limit)
}

func TestHandleStatus_SourceFilter(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := get(handler, "/api/status?source=brampton")
	require.Equal(t, http.StatusOK, rec.Code)

	var src gate.SourceStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &src))
	assert.Equal(t, "brampton", src.ID)
	assert.True(t, src.GateOpen)

	rec = get(handler, "/api/status?source=atlantis")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRecentDecisions(t *testing.T) {
	handler, d := newTestServer(t)

	for i := 0; i < 3; i++ {
		_, err := d.Admit("brampton")
		require.NoError(t, err)
	}

	rec := get(handler, "/api/journal/recent?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []journal.DecisionEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "brampton", entries[0].SourceID)
	assert.True(t, entries[0].Allowed)
}

func TestHandleHealth(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := get(handler, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	handler, d := newTestServer(t)
	_, err := d.Admit("brampton")
	require.NoError(t, err)

	rec := get(handler, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scrapegate_decisions_total")
}
