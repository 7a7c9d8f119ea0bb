package latency

import (
	"fmt"
	"math"
	"time"
)

// DefaultSamples is how many ping/pong round trips a probe collects
// before the connection is considered measured.
const DefaultSamples = 3

// Sample records one completed round trip.
type Sample struct {
	SentAt     time.Time
	ReceivedAt time.Time
	RoundTrip  time.Duration
}

// Probe accumulates round-trip samples for a single connection and derives
// the tick compensation the scheduler applies to that player. The session
// drives it: Begin when a ping frame goes out, Observe when the matching
// pong arrives.
type Probe struct {
	want    int
	pending bool
	sentAt  time.Time
	samples []Sample
}

// New creates a probe that completes after the given number of samples.
func New(samples int) *Probe {
	if samples <= 0 {
		samples = DefaultSamples
	}
	return &Probe{want: samples, samples: make([]Sample, 0, samples)}
}

// Begin marks a ping as sent.
func (p *Probe) Begin(now time.Time) {
	p.pending = true
	p.sentAt = now
}

// Observe records the pong for the outstanding ping.
func (p *Probe) Observe(now time.Time) error {
	if !p.pending {
		return fmt.Errorf("latency pong without outstanding ping")
	}
	p.pending = false
	rtt := now.Sub(p.sentAt)
	if rtt < 0 {
		rtt = 0
	}
	p.samples = append(p.samples, Sample{SentAt: p.sentAt, ReceivedAt: now, RoundTrip: rtt})
	return nil
}

// Done reports whether enough samples have been collected.
func (p *Probe) Done() bool {
	return len(p.samples) >= p.want
}

// Average returns the mean one-way latency estimate (half the round trip)
// across the collected samples.
func (p *Probe) Average() time.Duration {
	if len(p.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range p.samples {
		total += s.RoundTrip / 2
	}
	return total / time.Duration(len(p.samples))
}

// TickLag converts the average latency into whole scheduler ticks:
// round(avgMs * 2 / 100) + 1. The +1 guarantees at least one tick of
// slack even on a loopback connection.
func (p *Probe) TickLag() uint64 {
	avgMs := float64(p.Average().Microseconds()) / 1000.0
	return uint64(math.Round(avgMs*2/100)) + 1
}
