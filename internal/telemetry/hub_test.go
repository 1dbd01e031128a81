package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SubscribeUnique(t *testing.T) {
	h := NewHub(4)
	a := h.Subscribe()
	b := h.Subscribe()

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, h.Subscribers())
}

func TestHub_PublishPreservesOrder(t *testing.T) {
	h := NewHub(16)
	sub := h.Subscribe()

	for i := 0; i < 10; i++ {
		h.Publish(ParsedUpdate{Index: SensorIndex(i % NumSensors), Sample: Sample{XMM: float64(i)}})
	}
	for i := 0; i < 10; i++ {
		u := <-sub.Updates
		assert.Equal(t, float64(i), u.Sample.XMM)
	}
}

func TestHub_FullQueueDropsWithoutBlocking(t *testing.T) {
	h := NewHub(2)
	sub := h.Subscribe()

	for i := 0; i < 5; i++ {
		h.Publish(ParsedUpdate{Sample: Sample{XMM: float64(i)}})
	}
	assert.Equal(t, uint64(3), h.Overflow())

	assert.Equal(t, 0.0, (<-sub.Updates).Sample.XMM)
	assert.Equal(t, 1.0, (<-sub.Updates).Sample.XMM)
	select {
	case u := <-sub.Updates:
		t.Fatalf("unexpected extra update %+v", u)
	default:
	}
}

func TestHub_StatusDelivery(t *testing.T) {
	h := NewHub(4)
	sub := h.Subscribe()
	h.PublishStatus(Status{Kind: StatusConnected, Message: "Connected to /dev/ttyACM0"})

	st := <-sub.Statuses
	assert.Equal(t, StatusConnected, st.Kind)
	assert.Equal(t, "Connected to /dev/ttyACM0", st.String())
}

func TestHub_UnsubscribeClosesChannels(t *testing.T) {
	h := NewHub(4)
	sub := h.Subscribe()
	h.Unsubscribe(sub.ID)
	h.Unsubscribe(sub.ID)

	_, ok := <-sub.Updates
	assert.False(t, ok)
	_, ok = <-sub.Statuses
	assert.False(t, ok)
	assert.Zero(t, h.Subscribers())
}

func TestHub_Close(t *testing.T) {
	h := NewHub(4)
	sub := h.Subscribe()
	h.Close()
	h.Close()

	_, ok := <-sub.Updates
	require.False(t, ok)

	// publishing after close is a no-op
	h.Publish(ParsedUpdate{})

	late := h.Subscribe()
	_, ok = <-late.Updates
	assert.False(t, ok, "subscribing to a closed hub yields closed channels")
}
