package shake

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pders01/headlines/internal/debuglog"
)

// Sensor delivers acceleration samples until ctx is cancelled or the
// underlying source is exhausted, then closes the channel.
type Sensor interface {
	Samples(ctx context.Context) (<-chan Sample, error)
}

// Subscription is the handle returned by Watch. Close stops delivery and
// waits for the watcher goroutine to exit.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}

// Done is closed once the watcher has stopped, either through Close or
// because the sensor ran dry.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Watch runs d over the samples of sensor and calls onShake for every
// detected shake. onShake runs on the watcher goroutine.
func Watch(ctx context.Context, sensor Sensor, d *Detector, onShake func()) (*Subscription, error) {
	if sensor == nil {
		return nil, errors.New("shake: nil sensor")
	}
	if d == nil {
		d = NewDetector(DefaultThreshold, DefaultInterval)
	}

	ctx, cancel := context.WithCancel(ctx)
	samples, err := sensor.Samples(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("starting sensor: %w", err)
	}

	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-samples:
				if !ok {
					return
				}
				if d.Observe(s) {
					debuglog.Debugf("shake detected at %s", s.At.Format(time.RFC3339Nano))
					onShake()
				}
			}
		}
	}()
	return sub, nil
}

// ReplaySensor reads JSON lines of the form
//
//	{"x":0.1,"y":9.8,"z":0.2,"t_ms":1500}
//
// from R. t_ms is milliseconds since the start of the stream; when it is
// absent the arrival time is used. Terminals have no accelerometer, so a
// phone or a script feeding a FIFO stands in for one.
type ReplaySensor struct {
	R io.Reader
	// Start anchors t_ms. Zero means the time Samples is called.
	Start time.Time
}

type replayLine struct {
	X  float64  `json:"x"`
	Y  float64  `json:"y"`
	Z  float64  `json:"z"`
	TS *float64 `json:"t_ms"`
}

func (r *ReplaySensor) Samples(ctx context.Context) (<-chan Sample, error) {
	if r.R == nil {
		return nil, errors.New("shake: replay sensor has no reader")
	}
	start := r.Start
	if start.IsZero() {
		start = time.Now()
	}

	out := make(chan Sample)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r.R)
		line := 0
		for scanner.Scan() {
			line++
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}
			var l replayLine
			if err := json.Unmarshal(raw, &l); err != nil {
				debuglog.Warnf("shake: skipping malformed sample on line %d: %v", line, err)
				continue
			}
			at := time.Now()
			if l.TS != nil {
				at = start.Add(time.Duration(*l.TS * float64(time.Millisecond)))
			}
			select {
			case out <- Sample{X: l.X, Y: l.Y, Z: l.Z, At: at}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			debuglog.Warnf("shake: reading samples: %v", err)
		}
	}()
	return out, nil
}

// ChanSensor adapts an existing channel to Sensor.
type ChanSensor <-chan Sample

func (c ChanSensor) Samples(context.Context) (<-chan Sample, error) {
	return c, nil
}
