package server

import (
	"errors"
	"fmt"

	"ore-and-order/server/internal/proto"
	"ore-and-order/server/internal/room"
)

// joinRoom moves a session into the requested room, pulling it out of any
// room it already occupies. Every membership change refreshes the lobby
// for all connected clients.
func (s *Server) joinRoom(sess *session, roomID int) {
	target, ok := s.RoomByID(roomID)
	if !ok {
		s.log.Debugw("join for unknown room", "player", sess.id, "room", roomID)
		return
	}

	changed := false
	if current, _ := sess.Room(); current != nil {
		if current == target {
			// Replayed join for the occupied room; the seat stands.
			return
		}
		if current.Leave(sess.id) {
			sess.clearRoom()
			changed = true
		}
	}

	color, err := target.Join(sess)
	if err != nil {
		if errors.Is(err, room.ErrRoomFull) {
			s.log.Debugw("join rejected, room full", "player", sess.id, "room", roomID)
		}
		if changed {
			s.broadcastRoomList()
		}
		return
	}
	sess.setRoom(target, color)

	if err := sess.Send(proto.TypeJoinedRoom, proto.JoinedRoom{Room: target.Info()}); err != nil {
		s.log.Debugw("joined_room send failed", "player", sess.id, "err", err)
	}

	if target.Status() == room.StatusStarting {
		s.startLevel(target)
	}
	s.broadcastRoomList()
}

// startLevel tells both occupants to load the match level. The clients
// answer with initialized_level, which is what actually starts the clock.
func (s *Server) startLevel(rm *room.Room) {
	blue, okB := rm.Side(room.Blue)
	green, okG := rm.Side(room.Green)
	if !okB || !okG {
		return
	}
	msg := proto.InitLevel{
		SpawnLocations: proto.SpawnLocations{Blue: blueSpawn, Green: greenSpawn},
		Players:        proto.SidePlayers{Blue: blue.ID(), Green: green.ID()},
	}
	for _, m := range []room.Member{blue, green} {
		if err := m.Send(proto.TypeInitLevel, msg); err != nil {
			s.log.Debugw("init_level send failed", "player", m.ID(), "err", err)
		}
	}
}

// leaveRoom handles an explicit leave_room request.
func (s *Server) leaveRoom(sess *session) {
	rm, _ := sess.Room()
	if rm == nil {
		return
	}
	if rm.Status() == room.StatusRunning {
		// Leaving a live match is a forfeit, same as a dropped connection.
		s.forfeit(sess, rm)
		return
	}
	if rm.Leave(sess.id) {
		sess.clearRoom()
		s.broadcastRoomList()
	}
}

// surrender handles an explicit lose_game signal: the opponent wins.
func (s *Server) surrender(sess *session) {
	rm, color := sess.Room()
	if rm == nil || rm.Status() != room.StatusRunning {
		return
	}
	winnerID := ""
	if opp, ok := rm.Opponent(sess.id); ok {
		winnerID = opp.ID()
	}
	s.endMatch(rm, winnerID, fmt.Sprintf("The %s player has surrendered", color))
}

// dropSession is the single exit path for a connection: a mid-match drop
// counts as a forfeit attributed to the departing color, anything else is
// a normal leave.
func (s *Server) dropSession(sess *session) {
	s.unregister(sess)
	rm, _ := sess.Room()
	if rm == nil {
		s.broadcastRoomList()
		return
	}
	if rm.Status() == room.StatusRunning {
		s.metrics.RecordForfeit()
		s.forfeit(sess, rm)
		return
	}
	if rm.Leave(sess.id) {
		sess.clearRoom()
	}
	s.broadcastRoomList()
}

func (s *Server) forfeit(sess *session, rm *room.Room) {
	color, _ := rm.MemberColor(sess.id)
	winnerID := ""
	if opp, ok := rm.Opponent(sess.id); ok {
		winnerID = opp.ID()
	}
	s.endMatch(rm, winnerID, fmt.Sprintf("The %s player has left the game", color))
}

// endMatch finishes a room and detaches every session that pointed at it,
// then refreshes the lobby so the slot shows empty again.
func (s *Server) endMatch(rm *room.Room, winnerID, reason string) {
	rm.End(winnerID, reason)
	for _, sess := range s.sessionSnapshot() {
		if current, _ := sess.Room(); current == rm {
			sess.clearRoom()
		}
	}
	s.broadcastRoomList()
}

// relayChat forwards a chat line to the sender's match, or to the whole
// lobby when the sender is unmatched.
func (s *Server) relayChat(sess *session, message string) {
	msg := proto.Chat{PlayerID: sess.id, Message: message}
	s.metrics.RecordChat()

	if rm, _ := sess.Room(); rm != nil {
		for _, m := range rm.Members() {
			if err := m.Send(proto.TypeChat, msg); err != nil {
				s.log.Debugw("chat send failed", "player", m.ID(), "err", err)
			}
		}
		return
	}
	for _, other := range s.sessionSnapshot() {
		if err := other.Send(proto.TypeChat, msg); err != nil {
			s.log.Debugw("chat send failed", "player", other.id, "err", err)
		}
	}
}
