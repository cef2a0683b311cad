package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/lock"
	"git.home.luguber.info/inful/ddd/internal/metrics"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHTTPServer_Endpoints(t *testing.T) {
	layout := config.NewLayout(t.TempDir())
	require.NoError(t, layout.EnsureRunDir())
	lm := lock.New(layout.LockPath(), 0)
	reg := metrics.NewRegistry()
	metrics.NewPrometheusRecorder(reg).IncTrigger(true)

	h := NewHTTPServer("127.0.0.1:0", layout, lm, reg, nil).Handler()

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = get(t, h, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Busy)
	assert.Nil(t, st.Last)

	require.NoError(t, lm.Acquire())
	res := sampleResult("r9", false)
	require.NoError(t, pipeline.WriteArtifacts(layout.ResultPath(), layout.ExitPath(), res))

	rec = get(t, h, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Busy)
	assert.NotNil(t, st.BusySince)
	require.NotNil(t, st.Last)
	assert.Equal(t, "r9", st.Last.RunID)

	rec = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ddd_triggers_total{decision="accepted"} 1`)
}

func TestHTTPServer_StartStop(t *testing.T) {
	layout := config.NewLayout(t.TempDir())
	srv := NewHTTPServer("127.0.0.1:0", layout, lock.New(layout.LockPath(), 0), metrics.NewRegistry(), nil)
	require.NoError(t, srv.Start(t.Context()))

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(t.Context()))
}
