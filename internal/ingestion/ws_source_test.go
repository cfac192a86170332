package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"channel-trust-lab/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testWSConfig() *WSConfig {
	return &WSConfig{
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 50 * time.Millisecond,
		PingInterval:      time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      time.Second,
		Buffer:            10,
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestWSSource_SubscribeSendsFilterAndStreams(t *testing.T) {
	subscribed := make(chan subscribeRequest, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		var req subscribeRequest
		if err := c.ReadJSON(&req); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		subscribed <- req

		for _, msg := range []string{`{"channel_id":"a"}`, `{"channel_id":"b"}`} {
			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewWSSource(WSSourceOptions{
		Endpoint: wsURL(server),
		Channels: []string{"a", "b"},
		Config:   testWSConfig(),
		Logger:   zaptest.NewLogger(t),
	})
	ch, err := source.Subscribe(ctx)
	require.NoError(t, err)

	req := <-subscribed
	assert.Equal(t, "subscribe", req.Type)
	assert.Equal(t, []string{"a", "b"}, req.Channels)

	assert.JSONEq(t, `{"channel_id":"a"}`, string(receive(t, ch)))
	assert.JSONEq(t, `{"channel_id":"b"}`, string(receive(t, ch)))

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestWSSource_Reconnects(t *testing.T) {
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := connections.Add(1)

		payload, _ := json.Marshal(map[string]int32{"connection": n})
		_ = c.WriteMessage(websocket.TextMessage, payload)

		if n == 1 {
			// Drop the first connection abruptly.
			c.Close()
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewWSSource(WSSourceOptions{
		Endpoint: wsURL(server),
		Config:   testWSConfig(),
		Logger:   zaptest.NewLogger(t),
		Metrics:  metrics,
	})
	ch, err := source.Subscribe(ctx)
	require.NoError(t, err)

	assert.JSONEq(t, `{"connection":1}`, string(receive(t, ch)))
	assert.JSONEq(t, `{"connection":2}`, string(receive(t, ch)))

	families, err := reg.Gather()
	require.NoError(t, err)
	var reconnects float64
	for _, mf := range families {
		if mf.GetName() == "test_ingestion_feed_reconnects_total" {
			reconnects = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, reconnects)
}

func TestWSSource_DialError(t *testing.T) {
	source := NewWSSource(WSSourceOptions{Endpoint: "ws://127.0.0.1:1/feed", Config: testWSConfig()})

	_, err := source.Subscribe(context.Background())
	assert.Error(t, err)
}
