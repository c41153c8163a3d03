package monitor

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livevision/internal/models"
	"livevision/internal/state"
)

func intPtr(n int) *int { return &n }

func TestHandleStatus(t *testing.T) {
	st := state.New()
	st.Started("session-1")
	st.ApplyResponse(&models.VisionResponse{FaceCount: intPtr(2)}, 15*time.Millisecond)

	srv := New(st)

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	assert.Equal(t, true, payload["active"])
	assert.Equal(t, "session-1", payload["session_id"])
	assert.Equal(t, float64(1), payload["frame_count"])
	assert.Equal(t, float64(0), payload["ws_clients"])

	result, ok := payload["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), result["face_count"])
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	New(state.New()).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestWebsocketReceivesSnapshots(t *testing.T) {
	st := state.New()
	srv := New(st)

	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var initial state.Snapshot
	require.NoError(t, conn.ReadJSON(&initial))
	assert.False(t, initial.Active)
	assert.Equal(t, 1, srv.ClientCount())

	st.ApplyResponse(&models.VisionResponse{FaceCount: intPtr(5)}, 0)

	var next state.Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	require.NotNil(t, next.Result.FaceCount)
	assert.Equal(t, 5, *next.Result.FaceCount)
	assert.Equal(t, 1, next.FrameCount)
}
