package introspect

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/auth"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/monitor"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/frame"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/testutil/testlog"
)

func serve(t *testing.T, s *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	log.Debug().Str("path", path).Int("status", rr.Code).Msg("served")
	return rr.Code, out
}

func TestHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	s := New("test", ":0", nil, nil, nil)

	code, body := serve(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, schema.Default().Len(), body["commands"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "arcmd_http_requests_total")
}

func TestCommandsListingAndFilter(t *testing.T) {
	testlog.Start(t)
	s := New("test", ":0", nil, nil, nil)

	code, body := serve(t, s, http.MethodGet, "/commands", nil)
	require.Equal(t, http.StatusOK, code)
	all := body["commands"].([]any)
	assert.Len(t, all, schema.Default().Len())

	_, body = serve(t, s, http.MethodGet, "/commands?project=ARDrone3", nil)
	filtered := body["commands"].([]any)
	require.NotEmpty(t, filtered)
	assert.Less(t, len(filtered), len(all))
	for _, c := range filtered {
		assert.Equal(t, "1.", c.(map[string]any)["id"].(string)[:2])
	}
}

func TestCommandLookupByNumberAndName(t *testing.T) {
	testlog.Start(t)
	tr := monitor.NewTracker(10)
	s := New("test", ":0", nil, nil, tr)

	code, body := serve(t, s, http.MethodGet, "/commands/2/5/3", nil)
	require.Equal(t, http.StatusOK, code)
	cmd := body["command"].(map[string]any)
	assert.Equal(t, "minidrone.SensorsState.MagnetoAxisStateChanged", cmd["name"])
	assert.NotContains(t, body, "last")

	battery, err := frame.BuildByName(schema.Default(), "common", "CommonState", "BatteryStateChanged", protocol.NewU8(42))
	require.NoError(t, err)
	tr.Observe(battery)

	code, body = serve(t, s, http.MethodGet, "/commands/common/CommonState/BatteryStateChanged", nil)
	require.Equal(t, http.StatusOK, code)
	last := body["last"].(map[string]any)
	assert.EqualValues(t, 42, last["args"].(map[string]any)["percent"])

	code, _ = serve(t, s, http.MethodGet, "/commands/9/9/9", nil)
	assert.Equal(t, http.StatusNotFound, code)

	_, body = serve(t, s, http.MethodGet, "/state", nil)
	assert.Len(t, body["commands"].([]any), 1)
}

func TestStateSurvivesNonFiniteFloats(t *testing.T) {
	testlog.Start(t)
	tr := monitor.NewTracker(10)
	s := New("test", ":0", nil, nil, tr)

	battery, err := frame.BuildByName(schema.Default(), "common", "CommonState", "BatteryStateChanged", protocol.NewU8(42))
	require.NoError(t, err)
	tr.Observe(battery)
	attitude, err := frame.BuildByName(schema.Default(), "ardrone3", "PilotingState", "AttitudeChanged",
		protocol.NewFloat(float32(math.NaN())), protocol.NewFloat(0), protocol.NewFloat(0))
	require.NoError(t, err)
	tr.Observe(attitude)

	for i := 0; i < 2; i++ {
		code, body := serve(t, s, http.MethodGet, "/state", nil)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, body["commands"].([]any), 2)
	}
	_, body := serve(t, s, http.MethodGet, "/commands/ardrone3/PilotingState/AttitudeChanged", nil)
	last := body["last"].(map[string]any)
	assert.Equal(t, "NaN", last["args"].(map[string]any)["roll"])
}

func TestDecodeRoute(t *testing.T) {
	testlog.Start(t)
	s := New("test", ":0", nil, nil, nil)

	code, body := serve(t, s, http.MethodPost, "/decode", map[string]string{"hex": "00 05 01 00 59"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0.5.1", body["id"])
	assert.EqualValues(t, 89, body["args"].(map[string]any)["percent"])

	code, body = serve(t, s, http.MethodPost, "/decode", map[string]string{"hex": "0909090000"})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, protocol.KindUnknownCommand.String(), body["kind"])

	code, _ = serve(t, s, http.MethodPost, "/decode", map[string]string{"hex": "zz"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEncodeRoute(t *testing.T) {
	testlog.Start(t)
	s := New("test", ":0", nil, nil, nil)

	code, body := serve(t, s, http.MethodPost, "/encode", map[string]any{
		"command": "common.CommonState.BatteryStateChanged",
		"args":    []string{"89"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0005010059", body["hex"])

	code, _ = serve(t, s, http.MethodPost, "/encode", map[string]any{
		"command": "common.CommonState.BatteryStateChanged",
		"args":    []string{"300"},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(t, s, http.MethodPost, "/encode", map[string]any{"command": "nope.nope.nope"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBuildFromTextEnumByName(t *testing.T) {
	testlog.Start(t)
	cmd, err := frame.BuildFromText(schema.Default(), "ardrone3.PilotingState.FlyingStateChanged", []string{"Hovering"})
	require.NoError(t, err)
	v, ok := cmd.Arg("state")
	require.True(t, ok)
	assert.Equal(t, int32(2), v.Enum())

	_, err = frame.BuildFromText(schema.Default(), "ardrone3.PilotingState.FlyingStateChanged", nil)
	assert.ErrorIs(t, err, protocol.ErrArgumentMismatch)
}

func TestPostRoutesRequireTokenWhenConfigured(t *testing.T) {
	testlog.Start(t)
	s := New("test", ":0", nil, nil, nil, WithAuth(auth.StaticToken{Token: "s3cret"}))

	code, _ := serve(t, s, http.MethodPost, "/decode", map[string]string{"hex": "0005010059"})
	assert.Equal(t, http.StatusUnauthorized, code)

	raw, err := json.Marshal(map[string]string{"hex": "0005010059"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/decode", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	code, _ = serve(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code, "read routes stay open")
}
