package server

import "sync/atomic"

// telemetryCounters tracks relay activity for the diagnostics endpoint.
type telemetryCounters struct {
	tickBroadcasts   atomic.Uint64
	tickStalls       atomic.Uint64
	ordersRelayed    atomic.Uint64
	bytesSent        atomic.Uint64
	malformedDropped atomic.Uint64
	forfeits         atomic.Uint64
	chatRelayed      atomic.Uint64
}

type telemetrySnapshot struct {
	TickBroadcasts   uint64 `json:"tickBroadcasts"`
	TickStalls       uint64 `json:"tickStalls"`
	OrdersRelayed    uint64 `json:"ordersRelayed"`
	BytesSent        uint64 `json:"bytesSent"`
	MalformedDropped uint64 `json:"malformedDropped"`
	Forfeits         uint64 `json:"forfeits"`
	ChatRelayed      uint64 `json:"chatRelayed"`
}

func newTelemetryCounters() *telemetryCounters {
	return &telemetryCounters{}
}

// RecordTickBroadcast implements room.Metrics. Orders count toward the
// relay total at the moment they actually go out.
func (t *telemetryCounters) RecordTickBroadcast(orders int) {
	t.tickBroadcasts.Add(1)
	if orders > 0 {
		t.ordersRelayed.Add(uint64(orders))
	}
}

// RecordTickStall implements room.Metrics.
func (t *telemetryCounters) RecordTickStall() {
	t.tickStalls.Add(1)
}

func (t *telemetryCounters) RecordBytesSent(n int) {
	if n > 0 {
		t.bytesSent.Add(uint64(n))
	}
}

func (t *telemetryCounters) RecordMalformed() {
	t.malformedDropped.Add(1)
}

func (t *telemetryCounters) RecordForfeit() {
	t.forfeits.Add(1)
}

func (t *telemetryCounters) RecordChat() {
	t.chatRelayed.Add(1)
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		TickBroadcasts:   t.tickBroadcasts.Load(),
		TickStalls:       t.tickStalls.Load(),
		OrdersRelayed:    t.ordersRelayed.Load(),
		BytesSent:        t.bytesSent.Load(),
		MalformedDropped: t.malformedDropped.Load(),
		Forfeits:         t.forfeits.Load(),
		ChatRelayed:      t.chatRelayed.Load(),
	}
}
