package serialstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/handsense/internal/timeutil"
)

func readAll(t *testing.T, p *ReplayPort, reads int, size int) string {
	t.Helper()
	var out []byte
	buf := make([]byte, size)
	for i := 0; i < reads; i++ {
		n, err := p.Read(buf)
		require.NoError(t, err)
		out = append(out, buf[:n]...)
	}
	return string(out)
}

func TestReplayPort_PlaysLinesAtInterval(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	data := []byte("1,2,3\r\n\n4,5,6\n7,8,9")
	p := NewReplayPort(data, 10*time.Millisecond, false, clock)

	got := readAll(t, p, 3, 64)
	assert.Equal(t, "1,2,3\n4,5,6\n7,8,9\n", got)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}, clock.Sleeps())
	assert.Equal(t, "1,2,3\r\n\n4,5,6\n7,8,9", string(data), "input is not modified")

	n, err := p.Read(make([]byte, 64))
	require.NoError(t, err)
	assert.Zero(t, n, "exhausted replay goes quiet")
}

func TestReplayPort_SmallBuffer(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p := NewReplayPort([]byte("10,20,30\n"), time.Millisecond, false, clock)

	got := readAll(t, p, 5, 2)
	assert.Equal(t, "10,20,30\n", got)
	assert.Len(t, clock.Sleeps(), 1, "rest of a line is returned without waiting")
}

func TestReplayPort_Loop(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p := NewReplayPort([]byte("a\nb\n"), time.Millisecond, true, clock)

	assert.Equal(t, "a\nb\na\nb\n", readAll(t, p, 4, 16))
}

func TestReplayPort_Close(t *testing.T) {
	p := NewReplayPort([]byte("a\n"), time.Millisecond, true, timeutil.NewMockClock(time.Unix(0, 0)))
	require.NoError(t, p.Close())

	_, err := p.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrPortClosed)
}

func TestReplayFactory_DrivesStreamReader(t *testing.T) {
	rec := &lineRecorder{}
	r, err := NewStreamReader(Config{
		Factory: ReplayFactory{Data: []byte("1,2,3\nSensor 2: 4,5,6\n"), Interval: time.Millisecond},
		Lines:   rec,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	require.Eventually(t, func() bool { return len(rec.Lines()) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, []string{"1,2,3", "Sensor 2: 4,5,6"}, rec.Lines())
}
