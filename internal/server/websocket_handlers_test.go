package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConn captures messages written by the handler.
type recordingConn struct {
	messages [][]byte
	err      error
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *recordingConn) last(t *testing.T) DetectResponse {
	t.Helper()
	require.NotEmpty(t, c.messages)
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(c.messages[len(c.messages)-1], &resp))
	return resp
}

func TestHandleWebSocketMessage(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		message   string
		wantOK    bool
		wantFound bool
		wantErr   string
	}{
		{"found", `{"image":"` + pngBase64(t, yellowScene()) + `"}`, true, true, ""},
		{"not found", `{"image":"` + pngBase64(t, blueScene()) + `"}`, true, false, ""},
		{"invalid json", `not json`, false, false, "Invalid JSON"},
		{"missing image", `{}`, false, false, "image data is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &recordingConn{}
			s.handleWebSocketMessage(context.Background(), conn, "127.0.0.1", []byte(tt.message))

			require.Len(t, conn.messages, 1)
			resp := conn.last(t)
			assert.Equal(t, tt.wantOK, resp.Success)
			assert.Equal(t, tt.wantFound, resp.Found)
			if tt.wantErr != "" {
				assert.Contains(t, resp.Error, tt.wantErr)
			}
		})
	}
}

func TestSendWebSocketResponse_WriteError(t *testing.T) {
	s := newTestServer(t)
	conn := &recordingConn{err: errors.New("closed")}

	s.sendWebSocketResponse(conn, &DetectResponse{Success: true})
	assert.Empty(t, conn.messages)
}

func TestDetectWebSocket_RoundTrip(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/detect"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	for _, tc := range []struct {
		img   string
		found bool
	}{
		{pngBase64(t, yellowScene()), true},
		{pngBase64(t, blueScene()), false},
	} {
		msg, err := json.Marshal(DetectRequest{Image: tc.img})
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(30*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var out DetectResponse
		require.NoError(t, json.Unmarshal(data, &out))
		assert.True(t, out.Success)
		assert.Equal(t, tc.found, out.Found)
	}
}

func TestHandleWebSocketMessage_RateLimited(t *testing.T) {
	msg := []byte(`{"image":"` + pngBase64(t, blueScene()) + `"}`)

	tests := []struct {
		name      string
		limits    RateLimitConfig
		wantErr string
	}{
		{"requests per minute", RateLimitConfig{Enabled: true, RequestsPerMinute: 1}, "rate limit exceeded for minute"},
		{"daily data quota", RateLimitConfig{Enabled: true, MaxDataPerDay: int64(len(msg)) + 10}, "quota exceeded for data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, func(c *Config) { c.RateLimit = tt.limits })
			conn := &recordingConn{}

			s.handleWebSocketMessage(context.Background(), conn, "10.0.0.1", msg)
			first := conn.last(t)
			assert.True(t, first.Success, first.Error)

			s.handleWebSocketMessage(context.Background(), conn, "10.0.0.1", msg)
			second := conn.last(t)
			assert.False(t, second.Success)
			assert.Contains(t, second.Error, tt.wantErr)

			// other clients keep their own budget
			s.handleWebSocketMessage(context.Background(), conn, "10.0.0.2", msg)
			assert.True(t, conn.last(t).Success)
		})
	}
}

func TestDetectWebSocket_MessageAboveUploadLimit(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.MaxUploadMB = 1 })
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/detect"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	big := `{"image":"` + strings.Repeat("A", 1024*1024+512) + `"}`
	// the server may close before the whole frame is written
	_ = conn.WriteMessage(websocket.TextMessage, []byte(big))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "expected the connection to close, got %s", data)
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		assert.Equal(t, websocket.CloseMessageTooBig, closeErr.Code)
	}
}
