package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artycalc/artycalc/internal/ballistics"
	"github.com/artycalc/artycalc/internal/config"
	"github.com/artycalc/artycalc/internal/correction"
	"github.com/artycalc/artycalc/internal/storage"
	filestore "github.com/artycalc/artycalc/internal/storage/file"
	"github.com/artycalc/artycalc/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	backend := filestore.New(config.FileStoreConfig{Dir: t.TempDir()})
	require.NoError(t, backend.Init())
	return NewServer(Dependencies{Backend: backend, Margin: 10}).Router()
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthcheck(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGuns(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/guns", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var specs []ballistics.GunSpec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &specs))
	assert.Equal(t, ballistics.Models(), specs)
}

func TestSolve(t *testing.T) {
	h := newTestServer(t)

	t.Run("scene only", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/solve", northPreset())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SolveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Scene.Valid)
		assert.Equal(t, "Dist 100.0m Azim 0.0deg", resp.Scene.Guns[0].Solution.Text)
		assert.Nil(t, resp.Viewport)
	})

	t.Run("with viewport", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/solve?width=200&height=600", northPreset())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SolveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Viewport)
		assert.InDelta(t, 5.0, resp.Viewport.Scale, 1e-9)
	})

	t.Run("bad viewport", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/solve?width=abc&height=600", northPreset())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/solve", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/solve", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("non-finite strings are missing input", func(t *testing.T) {
		body := `{"targets":[{"dist":"NaN","angle":"inf"}],` +
			`"guns":[{"model":"mortar","target":1,"ref":"spotter","dist":0,"angle":0}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/solve", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SolveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Scene.Valid)
		assert.NotContains(t, rec.Body.String(), "NaN")
	})
}

func TestWriteJSON_Unencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"dist": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"response not encodable"}`, rec.Body.String())
}

func TestCalibrate(t *testing.T) {
	h := newTestServer(t)

	p := northPreset()
	p.Guns[0].LastHitDist = core.Num(120)
	p.Guns[0].LastHitAzimAngle = core.Num(0)

	rec := do(t, h, http.MethodPost, "/api/calibrate?gun=1", p)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CalibrateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, correction.Full, resp.Correction.Verdict)
	assert.Equal(t, core.Num(20), resp.Preset.Guns[0].CorrectionY)

	rec = do(t, h, http.MethodPost, "/api/calibrate?gun=2", p)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/calibrate", p)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresets(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/presets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/presets/ridge", northPreset())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/presets", nil)
	var list []storage.PresetInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "ridge", list[0].Name)

	rec = do(t, h, http.MethodGet, "/api/presets/ridge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p core.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "ridge", p.Name)
	assert.Equal(t, core.Num(100), p.Targets[0].Dist)

	rec = do(t, h, http.MethodDelete, "/api/presets/ridge", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/presets/ridge", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/presets/ridge", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresets_NoBackend(t *testing.T) {
	h := NewServer(Dependencies{}).Router()
	rec := do(t, h, http.MethodGet, "/api/presets", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
