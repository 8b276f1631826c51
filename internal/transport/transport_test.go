// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"shaderfx/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingTransport struct {
	frames []any
	err    error
	closed bool
}

func (r *recordingTransport) Send(data any) error {
	r.frames = append(r.frames, data)
	return r.err
}

func (r *recordingTransport) Close() error {
	r.closed = true
	return r.err
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	failure := errors.New("boom")
	a := &recordingTransport{}
	b := &recordingTransport{err: failure}
	c := &recordingTransport{}
	multi := Multi{a, b, c}

	err := multi.Send("frame")
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, []any{"frame"}, a.frames)
	assert.Equal(t, []any{"frame"}, c.frames, "a failing transport must not stop the others")

	assert.ErrorIs(t, multi.Close(), failure)
	assert.True(t, a.closed)
	assert.True(t, c.closed)
}

func TestLoggingTransport(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetLevel(log.LevelDebug)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.LevelInfo)
	})

	lt := NewLoggingTransport()
	require.NoError(t, lt.Send(map[string]int{"frame": 7}))
	assert.Contains(t, buf.String(), `{"frame":7}`)
	assert.Equal(t, uint64(1), lt.Sent())

	require.NoError(t, lt.Close())
	require.NoError(t, lt.Close())
	assert.ErrorIs(t, lt.Send("late"), ErrClosed)
}

func startWebSocket(t *testing.T) *WebSocketTransport {
	t.Helper()
	wst := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, wst.Start())
	t.Cleanup(func() { wst.Close() })
	return wst
}

func dial(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+WebSocketPath, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := startWebSocket(t)
	first := dial(t, wst)
	second := dial(t, wst)
	require.Eventually(t, func() bool { return wst.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, wst.Send(map[string]any{"frame": 1, "uniforms": map[string]float64{"gain": 0.5}}))

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got struct {
			Frame    int                `json:"frame"`
			Uniforms map[string]float64 `json:"uniforms"`
		}
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, 1, got.Frame)
		assert.Equal(t, 0.5, got.Uniforms["gain"])
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst := startWebSocket(t)
	conn := dial(t, wst)
	require.Eventually(t, func() bool { return wst.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return wst.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "shaderfx_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	wst := NewWebSocketTransport("127.0.0.1:0")
	wst.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	require.NoError(t, wst.Start())
	defer wst.Close()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + wst.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "shaderfx_test_total 3")
}

func TestWebSocketDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	// Not started: nothing drains the queue.
	wst := NewWebSocketTransport("127.0.0.1:0")
	defer wst.Close()

	for i := 0; i < broadcastQueue+10; i++ {
		require.NoError(t, wst.Send(i))
	}
	assert.Equal(t, uint64(10), wst.Dropped())
}

func TestWebSocketClose(t *testing.T) {
	t.Parallel()

	wst := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, wst.Start())
	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close())

	assert.ErrorIs(t, wst.Send("late"), ErrClosed)
	assert.ErrorIs(t, wst.Start(), ErrClosed)
}

func TestWebSocketStartFailure(t *testing.T) {
	t.Parallel()

	wst := NewWebSocketTransport("256.0.0.1:bad")
	defer wst.Close()
	assert.Error(t, wst.Start())
}
