package room

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"ore-and-order/server/internal/proto"
)

// Status is the lifecycle state of a match slot.
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusWaiting  Status = "waiting"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
)

// Color identifies a side. The first occupant is always blue.
type Color string

const (
	Blue  Color = "blue"
	Green Color = "green"
)

// ErrRoomFull rejects a third occupant.
var ErrRoomFull = errors.New("room already has two players")

// Member is the surface a room needs from a connected player.
type Member interface {
	ID() string
	TickLag() uint64
	Send(msgType string, payload any) error
}

// Metrics receives scheduler telemetry. All methods must be safe for
// concurrent use.
type Metrics interface {
	RecordTickBroadcast(orders int)
	RecordTickStall()
}

type nopMetrics struct{}

func (nopMetrics) RecordTickBroadcast(int) {}
func (nopMetrics) RecordTickStall()        {}

// Room is one slot of the fixed match pool. It owns the lockstep tick
// scheduler while a match runs: orders from both players are buffered and
// released together once both sides have confirmed the current tick.
type Room struct {
	id       int
	interval time.Duration
	log      *zap.SugaredLogger
	metrics  Metrics

	mu          sync.Mutex
	status      Status
	members     map[Color]Member
	ready       map[Color]bool
	buffer      []proto.Assignment
	confirmed   map[Color]uint64
	currentTick uint64
	roomTickLag uint64
	stop        chan struct{}
}

// New creates an empty room. Rooms are allocated once at startup and
// recycled; they are never destroyed.
func New(id int, interval time.Duration, log *zap.SugaredLogger, metrics Metrics) *Room {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Room{
		id:       id,
		interval: interval,
		log:      log,
		metrics:  metrics,
		status:   StatusEmpty,
		members:  make(map[Color]Member),
		ready:    make(map[Color]bool),
	}
}

// ID returns the slot number.
func (r *Room) ID() int {
	return r.id
}

// Status returns the current lifecycle state.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Info returns the lobby-visible summary.
func (r *Room) Info() proto.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return proto.RoomInfo{RoomID: r.id, Status: string(r.status)}
}

// deriveStatus recomputes the pre-game status from occupancy. Running and
// the post-game reset to empty are set explicitly by the scheduler.
func deriveStatus(occupants int) Status {
	switch occupants {
	case 0:
		return StatusEmpty
	case 1:
		return StatusWaiting
	default:
		return StatusStarting
	}
}

// Join adds a player and assigns its color: blue for the first occupant,
// green for the second. A replayed join from a seated player keeps the
// existing seat. A room that already seats two players is not joinable.
func (r *Room) Join(m Member) (Color, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if color, ok := r.memberColorLocked(m.ID()); ok {
		return color, nil
	}
	if len(r.members) >= 2 || r.status == StatusRunning {
		return "", ErrRoomFull
	}
	color := Blue
	if _, taken := r.members[Blue]; taken {
		color = Green
	}
	r.members[color] = m
	r.status = deriveStatus(len(r.members))
	return color, nil
}

// Leave removes a player before a match starts and re-derives the status.
// A departure mid-match goes through End instead.
func (r *Room) Leave(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for color, m := range r.members {
		if m.ID() == id {
			delete(r.members, color)
			delete(r.ready, color)
			r.status = deriveStatus(len(r.members))
			return true
		}
	}
	return false
}

// MemberColor reports which side the given connection plays.
func (r *Room) MemberColor(id string) (Color, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for color, m := range r.members {
		if m.ID() == id {
			return color, true
		}
	}
	return "", false
}

// Opponent returns the other occupant, if any.
func (r *Room) Opponent(id string) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.ID() != id {
			return m, true
		}
	}
	return nil, false
}

// Members returns a snapshot of the current occupants.
func (r *Room) Members() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out
}

// Side returns the occupant playing the given color.
func (r *Room) Side(color Color) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[color]
	return m, ok
}
