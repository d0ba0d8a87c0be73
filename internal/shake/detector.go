// Package shake turns a stream of accelerometer samples into shake events.
package shake

import (
	"math"
	"time"
)

const (
	DefaultThreshold = 3.0
	DefaultInterval  = 100 * time.Millisecond
)

// Sample is one 3-axis acceleration reading.
type Sample struct {
	X  float64
	Y  float64
	Z  float64
	At time.Time
}

// Detector reports a shake when the summed absolute change across the three
// axes between two accepted samples exceeds Threshold. Samples arriving
// less than Interval after the last accepted one are ignored, so at most
// one shake is reported per Interval.
//
// A Detector is not safe for concurrent use.
type Detector struct {
	Threshold float64
	Interval  time.Duration

	last    Sample
	hasLast bool
}

func NewDetector(threshold float64, interval time.Duration) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Detector{Threshold: threshold, Interval: interval}
}

// Observe feeds one sample and reports whether it completes a shake.
func (d *Detector) Observe(s Sample) bool {
	if d.hasLast && s.At.Sub(d.last.At) < d.Interval {
		return false
	}

	shook := false
	if d.hasLast {
		delta := math.Abs(s.X-d.last.X) + math.Abs(s.Y-d.last.Y) + math.Abs(s.Z-d.last.Z)
		shook = delta > d.Threshold
	}
	d.last = s
	d.hasLast = true
	return shook
}

// Reset forgets the previous sample.
func (d *Detector) Reset() {
	d.last = Sample{}
	d.hasLast = false
}
