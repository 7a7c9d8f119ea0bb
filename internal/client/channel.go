package client

import (
	"sync"

	"ore-and-order/server/internal/order"
	"ore-and-order/server/internal/proto"
)

// SendFunc transmits one orders submission to the server.
type SendFunc func(msg proto.Orders) error

// OrderChannel is the client-facing transport for the lockstep loop. It
// queues locally issued orders until the clock flushes them tagged with
// the current tick, and holds server batches until the clock consumes
// them in tick order.
type OrderChannel struct {
	send SendFunc

	mu           sync.Mutex
	pending      []proto.Assignment
	batches      map[uint64][]proto.Assignment
	lastReceived uint64
	seeded       bool
}

// NewOrderChannel wraps a transport send function.
func NewOrderChannel(send SendFunc) *OrderChannel {
	return &OrderChannel{
		send:    send,
		batches: make(map[uint64][]proto.Assignment),
	}
}

// Queue stages a locally issued order for the next flush, encoding it to
// wire form immediately so the live references cannot go stale in the
// queue.
func (c *OrderChannel) Queue(uids []uint64, o *order.Live) {
	wire := order.Encode(o)
	c.mu.Lock()
	c.pending = append(c.pending, proto.Assignment{UIDs: uids, Order: wire})
	c.mu.Unlock()
}

// Accept stores a server batch and advances the received-tick high-water
// mark.
func (c *OrderChannel) Accept(msg proto.GameTick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(msg.Orders) > 0 {
		c.batches[msg.Tick] = msg.Orders
	}
	if !c.seeded || msg.Tick > c.lastReceived {
		c.lastReceived = msg.Tick
		c.seeded = true
	}
}

// Ready reports whether the server has released the given tick yet.
func (c *OrderChannel) Ready(tick uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seeded && tick <= c.lastReceived
}

// Take pops the batch for the given tick. Most ticks have none.
func (c *OrderChannel) Take(tick uint64) []proto.Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.batches[tick]
	delete(c.batches, tick)
	return batch
}

// Flush submits everything queued for the given tick. An empty submission
// still goes out: it is the keep-alive that lets the server advance the
// sender's confirmation counter while the player is idle.
func (c *OrderChannel) Flush(tick uint64) error {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	return c.send(proto.Orders{CurrentTick: tick, Orders: pending})
}
