package web

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	assert.NotNil(t, hub)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Subscribe(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe()
	require.NotNil(t, ch)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 256, cap(ch))
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	hub.Unsubscribe(ch)
	assert.Equal(t, 0, hub.ClientCount())

	// channel should be closed
	_, ok := <-ch
	assert.False(t, ok)
}

func TestHub_Unsubscribe_SafeForMultipleCalls(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	hub.Unsubscribe(ch)
	assert.NotPanics(t, func() { hub.Unsubscribe(ch) })
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	ch1 := hub.Subscribe()
	ch2 := hub.Subscribe()

	e := NewMetricEvent("latency", "falcon-7b", 112.5, "ms")
	hub.Broadcast(e)

	select {
	case got := <-ch1:
		assert.Equal(t, e.Model, got.Model)
		assert.Equal(t, e.Value, got.Value) //nolint:testifylint // exact copy, not a computation
	case <-time.After(time.Second):
		t.Fatal("client 1 did not receive event")
	}

	select {
	case got := <-ch2:
		assert.Equal(t, EventTypeMetric, got.Type)
	case <-time.After(time.Second):
		t.Fatal("client 2 did not receive event")
	}
}

func TestHub_Broadcast_DropsForFullClient(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	// fill the client buffer completely
	for i := 0; i < cap(ch)+10; i++ {
		hub.Broadcast(NewPingEvent())
	}

	// broadcast must not have blocked, and the buffer holds exactly cap events
	assert.Len(t, ch, cap(ch))
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	ch1 := hub.Subscribe()
	ch2 := hub.Subscribe()

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)
}

func TestHub_Concurrency(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := hub.Subscribe()
			for j := 0; j < 50; j++ {
				hub.Broadcast(NewPingEvent())
			}
			hub.Unsubscribe(ch)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
}
