package shake

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return epoch.Add(time.Duration(ms) * time.Millisecond) }

func TestDetector_FiresOnceAboveThreshold(t *testing.T) {
	d := NewDetector(3.0, 100*time.Millisecond)

	assert.False(t, d.Observe(Sample{X: 0, Y: 0, Z: 0, At: at(0)}), "first sample has nothing to compare against")
	assert.True(t, d.Observe(Sample{X: 2, Y: 1.5, Z: -0.5, At: at(150)}))
	// 50ms after the shake: inside the debounce window even with a large delta.
	assert.False(t, d.Observe(Sample{X: -5, Y: -5, Z: 5, At: at(200)}))
}

func TestDetector_Observe(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    []bool
	}{
		{
			name: "delta equal to threshold does not fire",
			samples: []Sample{
				{X: 0, At: at(0)},
				{X: 1, Y: 1, Z: 1, At: at(100)},
			},
			want: []bool{false, false},
		},
		{
			name: "negative deltas count by magnitude",
			samples: []Sample{
				{X: 1, Y: 1, Z: 1, At: at(0)},
				{X: -1, Y: -1, Z: 1, At: at(120)},
			},
			want: []bool{false, true},
		},
		{
			name: "ignored samples do not move the baseline",
			samples: []Sample{
				{At: at(0)},
				{X: 10, At: at(40)},
				{X: 0.5, At: at(110)},
			},
			want: []bool{false, false, false},
		},
		{
			name: "separate shakes beyond the interval both fire",
			samples: []Sample{
				{At: at(0)},
				{X: 4, At: at(100)},
				{X: 0, At: at(200)},
			},
			want: []bool{false, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(DefaultThreshold, DefaultInterval)
			for i, s := range tt.samples {
				assert.Equal(t, tt.want[i], d.Observe(s), "sample %d", i)
			}
		})
	}
}

func TestDetector_Reset(t *testing.T) {
	d := NewDetector(0, 0)
	assert.Equal(t, DefaultThreshold, d.Threshold)
	assert.Equal(t, DefaultInterval, d.Interval)

	d.Observe(Sample{At: at(0)})
	d.Reset()
	assert.False(t, d.Observe(Sample{X: 9, At: at(500)}))
}

func TestWatch_ReplaySensor(t *testing.T) {
	input := strings.Join([]string{
		`{"x":0,"y":0,"z":0,"t_ms":0}`,
		`not json`,
		``,
		`{"x":2,"y":1.5,"z":-0.5,"t_ms":150}`,
		`{"x":-5,"y":-5,"z":5,"t_ms":200}`,
	}, "\n")

	var shakes atomic.Int32
	sub, err := Watch(context.Background(), &ReplaySensor{R: strings.NewReader(input), Start: epoch},
		NewDetector(DefaultThreshold, DefaultInterval), func() { shakes.Add(1) })
	require.NoError(t, err)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after the stream ended")
	}
	require.NoError(t, sub.Close())
	assert.Equal(t, int32(1), shakes.Load())
}

func TestWatch_CloseReleasesSensor(t *testing.T) {
	ch := make(chan Sample)
	var shakes atomic.Int32
	sub, err := Watch(context.Background(), ChanSensor(ch), nil, func() { shakes.Add(1) })
	require.NoError(t, err)

	ch <- Sample{At: at(0)}
	ch <- Sample{X: 5, At: at(150)}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "second close is a no-op")

	select {
	case ch <- Sample{X: -5, At: at(300)}:
		t.Fatal("sample delivered after close")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, int32(1), shakes.Load())
}

func TestWatch_Errors(t *testing.T) {
	_, err := Watch(context.Background(), nil, nil, func() {})
	assert.Error(t, err)

	_, err = Watch(context.Background(), &ReplaySensor{}, nil, func() {})
	assert.Error(t, err)
}
