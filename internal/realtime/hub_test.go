package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestShouldSend_RoutesByReviewer(t *testing.T) {
	h := NewHub(testLogger())

	florian := &Client{reviewer: "florian"}
	vincent := &Client{reviewer: "vincent"}

	scoped := &Event{Type: EventNotification, Receiver: "florian"}
	assert.True(t, h.shouldSend(florian, scoped))
	assert.False(t, h.shouldSend(vincent, scoped))

	global := &Event{Type: EventThresholdChange}
	assert.True(t, h.shouldSend(florian, global))
	assert.True(t, h.shouldSend(vincent, global))
}

func TestSerialize(t *testing.T) {
	h := NewHub(testLogger())

	raw := h.serialize(&Event{
		Type:      EventNotification,
		Receiver:  "florian",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"id": "ntf_1"},
	})

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, EventNotification, decoded.Type)
	assert.Equal(t, "florian", decoded.Receiver)
}

func TestBroadcast_NonBlockingWhenFull(t *testing.T) {
	h := NewHub(testLogger())

	// Fill the channel without a running hub; further broadcasts must not block.
	for i := 0; i < cap(h.broadcast)+10; i++ {
		h.Broadcast(&Event{Type: EventThresholdChange})
	}
	assert.Equal(t, cap(h.broadcast), len(h.broadcast))
}

func TestStats(t *testing.T) {
	h := NewHub(testLogger())

	stats := h.Stats()
	assert.Equal(t, 0, stats["connectedClients"])
	assert.Equal(t, int64(0), stats["totalClients"])
}
