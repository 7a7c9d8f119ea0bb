package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ore-and-order/server/internal/latency"
	"ore-and-order/server/internal/proto"
	"ore-and-order/server/internal/room"
)

// Server owns the connected-player registry and the fixed room pool. It
// never simulates the game itself; it relays orders between the two
// clients of each match and keeps their tick schedulers honest.
type Server struct {
	cfg     Config
	log     *zap.SugaredLogger
	metrics *telemetryCounters

	mu       sync.Mutex
	sessions map[string]*session
	rooms    []*room.Room
}

// New allocates the server with its room pool. Rooms are numbered from 1
// and live for the process lifetime.
func New(cfg Config, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.RoomCount <= 0 {
		cfg.RoomCount = defaultRoomCount
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	metrics := newTelemetryCounters()
	rooms := make([]*room.Room, cfg.RoomCount)
	for i := range rooms {
		rooms[i] = room.New(i+1, cfg.TickInterval, log, metrics)
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		sessions: make(map[string]*session),
		rooms:    rooms,
	}
}

// ServeConn runs the session for one upgraded websocket connection and
// blocks until it disconnects.
func (s *Server) ServeConn(conn *websocket.Conn) {
	sess := &session{
		id:    uuid.NewString(),
		srv:   s,
		conn:  conn,
		log:   s.log,
		probe: latency.New(s.cfg.ProbeSamples),
	}
	sess.write = sess.writeConn
	sess.serve()
}

// RoomByID resolves a room number from the pool.
func (s *Server) RoomByID(id int) (*room.Room, bool) {
	if id < 1 || id > len(s.rooms) {
		return nil, false
	}
	return s.rooms[id-1], true
}

// RoomInfos snapshots the lobby list.
func (s *Server) RoomInfos() []proto.RoomInfo {
	infos := make([]proto.RoomInfo, 0, len(s.rooms))
	for _, r := range s.rooms {
		infos = append(infos, r.Info())
	}
	return infos
}

func (s *Server) register(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
}

func (s *Server) unregister(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

func (s *Server) sessionSnapshot() []*session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// broadcastRoomList pushes the current lobby state to every connected
// client, matched or not. Every membership or status change ends here.
func (s *Server) broadcastRoomList() {
	infos := s.RoomInfos()
	for _, sess := range s.sessionSnapshot() {
		msg := proto.RoomList{List: infos, PlayerID: sess.id}
		if err := sess.Send(proto.TypeRoomList, msg); err != nil {
			s.log.Debugw("room_list send failed", "player", sess.id, "err", err)
		}
	}
}

// TelemetrySnapshot exposes relay counters for diagnostics.
func (s *Server) TelemetrySnapshot() any {
	return s.metrics.Snapshot()
}

// DiagnosticsPlayer describes one connection for the diagnostics endpoint.
type DiagnosticsPlayer struct {
	ID             string  `json:"id"`
	AverageLatency float64 `json:"averageLatencyMs"`
	TickLag        uint64  `json:"tickLag"`
	RoomID         int     `json:"roomId,omitempty"`
	Color          string  `json:"color,omitempty"`
}

// DiagnosticsSnapshot lists every connection with its measured latency and
// room assignment.
func (s *Server) DiagnosticsSnapshot() []DiagnosticsPlayer {
	sessions := s.sessionSnapshot()
	players := make([]DiagnosticsPlayer, 0, len(sessions))
	for _, sess := range sessions {
		entry := DiagnosticsPlayer{
			ID:             sess.id,
			AverageLatency: float64(sess.probe.Average()) / float64(time.Millisecond),
			TickLag:        sess.TickLag(),
		}
		if rm, color := sess.Room(); rm != nil {
			entry.RoomID = rm.ID()
			entry.Color = string(color)
		}
		players = append(players, entry)
	}
	return players
}
