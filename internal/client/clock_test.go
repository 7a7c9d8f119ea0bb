package client

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ore-and-order/server/internal/order"
	"ore-and-order/server/internal/proto"
)

type stubUnit struct {
	uid uint64
}

func (u stubUnit) UID() uint64 { return u.uid }

type appliedOrder struct {
	uids []uint64
	o    *order.Live
}

type recordingSim struct {
	units   map[uint64]order.Entity
	applied []appliedOrder
	updates []int
}

func newRecordingSim(uids ...uint64) *recordingSim {
	units := make(map[uint64]order.Entity, len(uids))
	for _, uid := range uids {
		units[uid] = stubUnit{uid: uid}
	}
	return &recordingSim{units: units}
}

func (s *recordingSim) ProcessOrder(uids []uint64, o *order.Live) {
	s.applied = append(s.applied, appliedOrder{uids: uids, o: o})
}

func (s *recordingSim) HandleUpdate(deltaMS int) {
	s.updates = append(s.updates, deltaMS)
}

func (s *recordingSim) LookupUID(uid uint64) (order.Entity, bool) {
	e, ok := s.units[uid]
	return e, ok
}

type sendRecorder struct {
	mu   sync.Mutex
	sent []proto.Orders
}

func (r *sendRecorder) send(msg proto.Orders) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func TestClockWaitsForServerBatch(t *testing.T) {
	rec := &sendRecorder{}
	sim := newRecordingSim()
	clock := NewClock(NewOrderChannel(rec.send), sim, 16, nil)

	advanced, err := clock.Advance()
	require.NoError(t, err)
	require.False(t, advanced)
	require.Empty(t, rec.sent, "a waiting frame must not submit anything")
	require.Empty(t, sim.updates)
	require.Equal(t, uint64(0), clock.CurrentTick())
}

func TestClockAdvancesAndSendsKeepAlive(t *testing.T) {
	rec := &sendRecorder{}
	sim := newRecordingSim()
	ch := NewOrderChannel(rec.send)
	clock := NewClock(ch, sim, 16, nil)

	// The server released ticks 0..2 (empty batches, tick lag folded in).
	ch.Accept(proto.GameTick{Tick: 2, Orders: []proto.Assignment{}})

	for want := uint64(0); want <= 2; want++ {
		advanced, err := clock.Advance()
		require.NoError(t, err)
		require.True(t, advanced)
	}
	advanced, err := clock.Advance()
	require.NoError(t, err)
	require.False(t, advanced, "tick 3 has not been released yet")

	require.Equal(t, []int{16, 16, 16}, sim.updates)
	require.Len(t, rec.sent, 3)
	for i, msg := range rec.sent {
		require.Equal(t, uint64(i), msg.CurrentTick)
		require.Empty(t, msg.Orders, "idle ticks still confirm via empty submissions")
	}
}

func TestClockAppliesBatchOrders(t *testing.T) {
	rec := &sendRecorder{}
	sim := newRecordingSim(42)
	ch := NewOrderChannel(rec.send)
	clock := NewClock(ch, sim, 16, nil)

	// An attack against uid 42 as encoded by the opposing client.
	enemy := stubUnit{uid: 42}
	var target order.Entity = enemy
	wire := order.Encode(&order.Live{Kind: order.KindAttack, Target: &target})

	ch.Accept(proto.GameTick{Tick: 0, Orders: []proto.Assignment{{UIDs: []uint64{7}, Order: wire}}})

	advanced, err := clock.Advance()
	require.NoError(t, err)
	require.True(t, advanced)

	require.Len(t, sim.applied, 1)
	require.Equal(t, []uint64{7}, sim.applied[0].uids)
	require.NotNil(t, sim.applied[0].o.Target)
	require.Equal(t, uint64(42), (*sim.applied[0].o.Target).UID())
}

func TestClockDropsOrdersForVanishedUnits(t *testing.T) {
	rec := &sendRecorder{}
	sim := newRecordingSim() // uid 99 does not exist
	ch := NewOrderChannel(rec.send)
	clock := NewClock(ch, sim, 16, nil)

	uid := uint64(99)
	ch.Accept(proto.GameTick{Tick: 0, Orders: []proto.Assignment{{
		UIDs:  []uint64{1},
		Order: &order.Wire{Kind: order.KindFire, Target: &uid},
	}}})

	advanced, err := clock.Advance()
	require.NoError(t, err)
	require.True(t, advanced, "a vanished target pauses nothing")
	require.Empty(t, sim.applied)
	require.Equal(t, []int{16}, sim.updates)
}

func TestChannelFlushCarriesQueuedOrders(t *testing.T) {
	rec := &sendRecorder{}
	ch := NewOrderChannel(rec.send)

	var target order.Entity = stubUnit{uid: 5}
	ch.Queue([]uint64{1, 2}, &order.Live{Kind: order.KindGuard, Target: &target})

	require.NoError(t, ch.Flush(4))
	require.Len(t, rec.sent, 1)
	msg := rec.sent[0]
	require.Equal(t, uint64(4), msg.CurrentTick)
	require.Len(t, msg.Orders, 1)
	require.Equal(t, []uint64{1, 2}, msg.Orders[0].UIDs)
	require.Equal(t, uint64(5), *msg.Orders[0].Order.Target)

	// The queue drains on flush.
	require.NoError(t, ch.Flush(5))
	require.Empty(t, rec.sent[1].Orders)
}

func TestChannelHighWaterMark(t *testing.T) {
	ch := NewOrderChannel(func(proto.Orders) error { return nil })

	require.False(t, ch.Ready(0), "nothing received yet")
	ch.Accept(proto.GameTick{Tick: 3})
	require.True(t, ch.Ready(0))
	require.True(t, ch.Ready(3))
	require.False(t, ch.Ready(4))

	// An out-of-order older tick must not regress the mark.
	ch.Accept(proto.GameTick{Tick: 1})
	require.True(t, ch.Ready(3))
}
