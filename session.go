package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ore-and-order/server/internal/latency"
	"ore-and-order/server/internal/order"
	"ore-and-order/server/internal/proto"
	"ore-and-order/server/internal/room"
)

// session is the server-side half of one player connection. It implements
// room.Member so rooms can address the player directly.
type session struct {
	id    string
	srv   *Server
	conn  *websocket.Conn
	log   *zap.SugaredLogger
	probe *latency.Probe
	write func([]byte) error

	writeMu sync.Mutex

	mu      sync.Mutex
	tickLag uint64
	room    *room.Room
	color   room.Color
}

// ID implements room.Member.
func (s *session) ID() string {
	return s.id
}

// TickLag implements room.Member.
func (s *session) TickLag() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLag
}

// Send implements room.Member: one envelope frame per message.
func (s *session) Send(msgType string, payload any) error {
	data, err := proto.Encode(msgType, payload)
	if err != nil {
		return err
	}
	if err := s.write(data); err != nil {
		return err
	}
	s.srv.metrics.RecordBytesSent(len(data))
	return nil
}

func (s *session) writeConn(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Room returns the current room assignment, if any.
func (s *session) Room() (*room.Room, room.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.color
}

func (s *session) setRoom(rm *room.Room, color room.Color) {
	s.mu.Lock()
	s.room = rm
	s.color = color
	s.mu.Unlock()
}

func (s *session) clearRoom() {
	s.setRoom(nil, "")
}

// serve runs the connection lifecycle: latency probe, lobby registration,
// then the dispatch loop until the peer goes away.
func (s *session) serve() {
	defer s.conn.Close()

	s.conn.SetReadLimit(maxMessageBytes)

	if err := s.runProbe(); err != nil {
		s.log.Infow("latency probe failed, dropping connection", "player", s.id, "err", err)
		return
	}

	s.srv.register(s)
	defer s.srv.dropSession(s)

	if err := s.Send(proto.TypeRoomList, proto.RoomList{List: s.srv.RoomInfos(), PlayerID: s.id}); err != nil {
		return
	}

	s.log.Infow("player connected", "player", s.id, "tickLag", s.TickLag())

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Infow("player disconnected", "player", s.id, "err", err)
			return
		}
		env, err := proto.DecodeEnvelope(payload)
		if err != nil {
			s.srv.metrics.RecordMalformed()
			s.log.Debugw("discarding malformed message", "player", s.id, "err", err)
			continue
		}
		s.dispatch(env)
	}
}

// runProbe measures the connection's round trip the configured number of
// times. The pong wait is bounded by a read deadline; an unresponsive peer
// is treated as disconnected rather than stalling measurement forever.
func (s *session) runProbe() error {
	defer s.conn.SetReadDeadline(time.Time{})

	for !s.probe.Done() {
		if err := s.Send(proto.TypeLatencyPing, nil); err != nil {
			return err
		}
		s.probe.Begin(time.Now())

		s.conn.SetReadDeadline(time.Now().Add(probeTimeout))
		for {
			_, payload, err := s.conn.ReadMessage()
			if err != nil {
				return err
			}
			env, err := proto.DecodeEnvelope(payload)
			if err != nil {
				continue
			}
			if env.Type == proto.TypeLatencyPong {
				break
			}
			// Anything else sent mid-probe is premature; drop it.
		}
		if err := s.probe.Observe(time.Now()); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.tickLag = s.probe.TickLag()
	s.mu.Unlock()
	return nil
}

func (s *session) dispatch(env proto.Envelope) {
	switch env.Type {
	case proto.TypeJoinRoom:
		var msg proto.JoinRoom
		if err := env.Decode(&msg); err != nil {
			s.srv.metrics.RecordMalformed()
			return
		}
		s.srv.joinRoom(s, msg.RoomID)

	case proto.TypeLeaveRoom:
		s.srv.leaveRoom(s)

	case proto.TypeInitializedLevel:
		if rm, _ := s.Room(); rm != nil && rm.MarkReady(s.id) {
			// The room just went running; show it in the lobby.
			s.srv.broadcastRoomList()
		}

	case proto.TypeOrders:
		var msg proto.Orders
		if err := env.Decode(&msg); err != nil {
			s.srv.metrics.RecordMalformed()
			return
		}
		s.submitOrders(msg)

	case proto.TypeLoseGame:
		s.srv.surrender(s)

	case proto.TypeChat:
		var msg proto.Chat
		if err := env.Decode(&msg); err != nil {
			s.srv.metrics.RecordMalformed()
			return
		}
		s.srv.relayChat(s, msg.Message)

	case proto.TypeLatencyPong:
		// Stray pong after the probe completed; ignore.

	default:
		s.log.Debugw("unknown message type", "player", s.id, "type", env.Type)
	}
}

// submitOrders drops structurally invalid assignments before handing the
// submission to the room. A missing orders array is a plain keep-alive.
func (s *session) submitOrders(msg proto.Orders) {
	rm, _ := s.Room()
	if rm == nil {
		return
	}
	if len(msg.Orders) > 0 {
		valid := msg.Orders[:0]
		for _, a := range msg.Orders {
			if err := order.Validate(a.Order); err != nil {
				s.srv.metrics.RecordMalformed()
				s.log.Debugw("dropping invalid order", "player", s.id, "err", err)
				continue
			}
			valid = append(valid, a)
		}
		msg.Orders = valid
	}
	rm.SubmitOrders(s.id, msg)
}
