package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroguard/aeroguard-api/internal/model"
)

func newLocalClient(hub *Hub, filter string) *Client {
	return &Client{hub: hub, send: make(chan []byte, 8), DeviceFilter: filter}
}

func recvEvent(t *testing.T, c *Client) model.WSEvent {
	t.Helper()
	select {
	case data := <-c.send:
		var event model.WSEvent
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return model.WSEvent{}
	}
}

func TestHubLocalBroadcast(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	all := newLocalClient(hub, "")
	filtered := newLocalClient(hub, "AERO-NODE-002")
	hub.Register(all)
	hub.Register(filtered)

	aqiVal := 42
	require.NoError(t, hub.PublishMeasurement(model.MeasurementEvent{
		MeasurementID: "m-1",
		DeviceID:      "AERO-NODE-001",
		AQI:           &aqiVal,
	}))

	event := recvEvent(t, all)
	assert.Equal(t, model.WSEventNewMeasurement, event.Type)

	// The filtered client watches a different device and must stay silent.
	select {
	case data := <-filtered.send:
		t.Fatalf("filtered client received %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubDeviceFilterMatch(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	filtered := newLocalClient(hub, "AERO-NODE-002")
	hub.Register(filtered)

	require.NoError(t, hub.PublishMeasurement(model.MeasurementEvent{
		MeasurementID: "m-2",
		DeviceID:      "AERO-NODE-002",
	}))

	event := recvEvent(t, filtered)
	assert.Equal(t, model.WSEventNewMeasurement, event.Type)

	payload, err := json.Marshal(event.Payload)
	require.NoError(t, err)
	var me model.MeasurementEvent
	require.NoError(t, json.Unmarshal(payload, &me))
	assert.Equal(t, "AERO-NODE-002", me.DeviceID)
}
