package room

import (
	"time"

	"ore-and-order/server/internal/proto"
)

// MarkReady records one player's "level initialized" handshake. When both
// occupants of a starting room have signaled, the match begins and the
// scheduler starts; the return value reports that transition.
func (r *Room) MarkReady(id string) bool {
	r.mu.Lock()
	color, ok := r.memberColorLocked(id)
	if !ok || r.status != StatusStarting {
		r.mu.Unlock()
		return false
	}
	r.ready[color] = true
	if !r.ready[Blue] || !r.ready[Green] {
		r.mu.Unlock()
		return false
	}
	members := r.startLocked()
	r.mu.Unlock()

	for _, m := range members {
		if err := m.Send(proto.TypeStartGame, nil); err != nil {
			r.log.Debugw("start_game send failed", "room", r.id, "player", m.ID(), "err", err)
		}
	}
	return true
}

func (r *Room) memberColorLocked(id string) (Color, bool) {
	for color, m := range r.members {
		if m.ID() == id {
			return color, true
		}
	}
	return "", false
}

// startLocked resets the lockstep state and launches the tick loop. The
// room-wide tick lag is the slower player's compensation, so neither side
// ever waits on its own latency.
func (r *Room) startLocked() []Member {
	r.buffer = nil
	r.confirmed = map[Color]uint64{Blue: 0, Green: 0}
	r.currentTick = 0
	r.roomTickLag = 0
	for _, m := range r.members {
		if lag := m.TickLag(); lag > r.roomTickLag {
			r.roomTickLag = lag
		}
	}
	r.status = StatusRunning
	r.stop = make(chan struct{})
	go r.run(r.stop)

	r.log.Infow("match started",
		"room", r.id, "tickLag", r.roomTickLag, "interval", r.interval)

	members := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	return members
}

// run drives the fixed-interval scheduler until the match ends.
func (r *Room) run(stop <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// tick releases the buffered orders when both sides have confirmed the
// current tick; otherwise it stalls, pausing the match for both players
// until the lagging side catches up. A stall never aborts the room.
func (r *Room) tick() {
	r.mu.Lock()
	if r.status != StatusRunning {
		r.mu.Unlock()
		return
	}
	blue, green := r.confirmed[Blue], r.confirmed[Green]
	if blue < r.currentTick || green < r.currentTick {
		tick := r.currentTick
		r.mu.Unlock()
		r.metrics.RecordTickStall()
		if blue < tick {
			r.log.Debugw("tick stalled", "room", r.id, "color", Blue, "behind", tick-blue)
		}
		if green < tick {
			r.log.Debugw("tick stalled", "room", r.id, "color", Green, "behind", tick-green)
		}
		return
	}

	msg := proto.GameTick{
		Tick:   r.currentTick + r.roomTickLag,
		Orders: r.buffer,
	}
	if msg.Orders == nil {
		msg.Orders = []proto.Assignment{}
	}
	r.buffer = nil
	r.currentTick++
	members := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	r.mu.Unlock()

	r.metrics.RecordTickBroadcast(len(msg.Orders))
	for _, m := range members {
		if err := m.Send(proto.TypeGameTick, msg); err != nil {
			r.log.Debugw("game_tick send failed", "room", r.id, "player", m.ID(), "err", err)
		}
	}
}

// SubmitOrders buffers one player's submission for the tick it names. The
// sender's own latency is folded into the confirmation so the scheduler
// gates on when the orders could land, not when they were issued; the
// confirmation counter never moves backwards.
func (r *Room) SubmitOrders(id string, msg proto.Orders) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusRunning {
		return
	}
	color, ok := r.memberColorLocked(id)
	if !ok {
		return
	}
	if len(msg.Orders) > 0 {
		r.buffer = append(r.buffer, msg.Orders...)
	}
	confirmed := msg.CurrentTick + r.members[color].TickLag()
	if confirmed > r.confirmed[color] {
		r.confirmed[color] = confirmed
	}
}

// Confirmed reports the latest confirmed tick for a color; test hook.
func (r *Room) Confirmed(color Color) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confirmed[color]
}

// CurrentTick reports the scheduler's next unreleased tick.
func (r *Room) CurrentTick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentTick
}

// TickLag reports the shared room compensation chosen at match start.
func (r *Room) TickLag() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomTickLag
}

// End stops the scheduler, notifies both players of the result, and
// recycles the room to empty. Reasons name the departing color on forfeit.
func (r *Room) End(winnerID, reason string) {
	r.mu.Lock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	members := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	r.members = make(map[Color]Member)
	r.ready = make(map[Color]bool)
	r.buffer = nil
	r.confirmed = nil
	r.status = StatusEmpty
	r.mu.Unlock()

	msg := proto.EndGame{WonPlayerID: winnerID, Reason: reason}
	for _, m := range members {
		if err := m.Send(proto.TypeEndGame, msg); err != nil {
			r.log.Debugw("end_game send failed", "room", r.id, "player", m.ID(), "err", err)
		}
	}
	r.log.Infow("match ended", "room", r.id, "winner", winnerID, "reason", reason)
}
