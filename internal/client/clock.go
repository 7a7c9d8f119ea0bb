package client

import (
	"errors"

	"go.uber.org/zap"

	"ore-and-order/server/internal/order"
)

// Clock paces the local simulation in lockstep with the server: one tick
// per frame, and only once the server has released that tick. Waiting is
// a no-op skip, not a block; callers simply invoke Advance again on the
// next frame.
type Clock struct {
	channel *OrderChannel
	sim     Simulation
	log     *zap.SugaredLogger
	deltaMS int

	currentTick uint64
}

// NewClock binds a channel and simulation. deltaMS is the fixed time slice
// handed to the simulation per confirmed tick.
func NewClock(channel *OrderChannel, sim Simulation, deltaMS int, log *zap.SugaredLogger) *Clock {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Clock{channel: channel, sim: sim, log: log, deltaMS: deltaMS}
}

// CurrentTick reports the next tick the clock will run.
func (c *Clock) CurrentTick() uint64 {
	return c.currentTick
}

// Advance runs at most one tick. It reports whether the simulation moved;
// false means the server batch for the current tick has not arrived and
// the frame does nothing.
func (c *Clock) Advance() (bool, error) {
	if !c.channel.Ready(c.currentTick) {
		return false, nil
	}

	for _, a := range c.channel.Take(c.currentTick) {
		live, err := order.Decode(a.Order, c.sim.LookupUID)
		if err != nil {
			// A vanished target means the unit died before the order
			// arrived; drop the order and keep the tick moving.
			var unknown *order.UnknownUnitError
			if errors.As(err, &unknown) {
				c.log.Warnw("dropping order for vanished unit",
					"tick", c.currentTick, "uid", unknown.UID)
				continue
			}
			return false, err
		}
		c.sim.ProcessOrder(a.UIDs, live)
	}

	c.sim.HandleUpdate(c.deltaMS)

	if err := c.channel.Flush(c.currentTick); err != nil {
		return false, err
	}
	c.currentTick++
	return true, nil
}
