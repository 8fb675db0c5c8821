package web

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricEvent(t *testing.T) {
	e := NewMetricEvent("latency", "falcon-7b", 112.5, "ms")
	assert.Equal(t, EventTypeMetric, e.Type)
	assert.Equal(t, "latency", e.Widget)
	assert.Equal(t, "falcon-7b", e.Model)
	assert.InDelta(t, 112.5, e.Value, 0.0001)
	assert.Equal(t, "ms", e.Unit)
	assert.False(t, e.Timestamp.IsZero())
}

func TestNewModelEvent(t *testing.T) {
	e := NewModelEvent("hermes-13b", "training")
	assert.Equal(t, EventTypeModel, e.Type)
	assert.Equal(t, "hermes-13b", e.Model)
	assert.Equal(t, "training", e.Status)
	assert.Empty(t, e.Widget)
}

func TestEvent_JSON(t *testing.T) {
	e := NewMetricEvent("latency", "falcon-7b", 112, "ms")

	data, err := e.JSON()
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, e.Type, decoded.Type)
	assert.Equal(t, e.Model, decoded.Model)

	// empty optional fields stay out of the payload
	reload, err := NewReloadEvent().JSON()
	require.NoError(t, err)
	assert.NotContains(t, string(reload), "widget")
	assert.NotContains(t, string(reload), "status")
}
