package client

import "ore-and-order/server/internal/order"

// Simulation is the surface the lockstep core consumes from the game. The
// rendering, movement, and combat layers live behind it; the core only
// applies decoded orders and advances time one confirmed tick at a time.
type Simulation interface {
	// ProcessOrder applies a decoded order to the named units.
	ProcessOrder(uids []uint64, o *order.Live)
	// HandleUpdate advances the simulation by one tick's worth of time.
	HandleUpdate(deltaMS int)
	// LookupUID resolves an entity reference from a wire order.
	LookupUID(uid uint64) (order.Entity, bool)
}
