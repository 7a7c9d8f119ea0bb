package server

import (
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"ore-and-order/server/internal/latency"
	"ore-and-order/server/internal/proto"
	"ore-and-order/server/internal/room"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames []proto.Envelope
}

func (r *frameRecorder) write(data []byte) error {
	env, err := proto.DecodeEnvelope(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.frames = append(r.frames, env)
	r.mu.Unlock()
	return nil
}

func (r *frameRecorder) byType(msgType string) []proto.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []proto.Envelope
	for _, env := range r.frames {
		if env.Type == msgType {
			out = append(out, env)
		}
	}
	return out
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	// Idle ticker: tests drive room state directly, not via the scheduler.
	cfg.TickInterval = time.Hour
	return New(cfg, zap.NewNop().Sugar())
}

func newTestSession(s *Server, id string, lag uint64) (*session, *frameRecorder) {
	rec := &frameRecorder{}
	sess := &session{
		id:      id,
		srv:     s,
		log:     zap.NewNop().Sugar(),
		probe:   latency.New(1),
		tickLag: lag,
	}
	sess.write = rec.write
	s.register(sess)
	return sess, rec
}

func roomInfo(t *testing.T, env proto.Envelope, roomID int) proto.RoomInfo {
	t.Helper()
	var msg proto.RoomList
	if err := env.Decode(&msg); err != nil {
		t.Fatalf("decode room_list failed: %v", err)
	}
	for _, info := range msg.List {
		if info.RoomID == roomID {
			return info
		}
	}
	t.Fatalf("room %d missing from room_list", roomID)
	return proto.RoomInfo{}
}

func TestJoinRoomAssignsSeatsAndBroadcasts(t *testing.T) {
	s := newTestServer(t)
	sess1, rec1 := newTestSession(s, "p1", 1)
	sess2, rec2 := newTestSession(s, "p2", 1)

	s.joinRoom(sess1, 3)

	joined := rec1.byType(proto.TypeJoinedRoom)
	if len(joined) != 1 {
		t.Fatalf("expected joined_room for p1, got %d", len(joined))
	}
	var ack proto.JoinedRoom
	if err := joined[0].Decode(&ack); err != nil {
		t.Fatalf("decode joined_room failed: %v", err)
	}
	if ack.Room.RoomID != 3 || ack.Room.Status != string(room.StatusWaiting) {
		t.Fatalf("unexpected joined_room payload: %+v", ack.Room)
	}

	// Everyone in the lobby sees the membership change.
	lists := rec2.byType(proto.TypeRoomList)
	if len(lists) == 0 {
		t.Fatalf("expected room_list broadcast to unmatched client")
	}
	if info := roomInfo(t, lists[len(lists)-1], 3); info.Status != string(room.StatusWaiting) {
		t.Fatalf("expected room 3 waiting, got %q", info.Status)
	}

	s.joinRoom(sess2, 3)

	for name, rec := range map[string]*frameRecorder{"p1": rec1, "p2": rec2} {
		inits := rec.byType(proto.TypeInitLevel)
		if len(inits) != 1 {
			t.Fatalf("expected init_level for %s, got %d", name, len(inits))
		}
		var init proto.InitLevel
		if err := inits[0].Decode(&init); err != nil {
			t.Fatalf("decode init_level failed: %v", err)
		}
		if init.Players.Blue != "p1" || init.Players.Green != "p2" {
			t.Fatalf("unexpected side assignment: %+v", init.Players)
		}
		if init.SpawnLocations.Blue == init.SpawnLocations.Green {
			t.Fatalf("spawn locations must differ: %+v", init.SpawnLocations)
		}
	}

	rm, _ := s.RoomByID(3)
	if rm.Status() != room.StatusStarting {
		t.Fatalf("expected starting, got %q", rm.Status())
	}
}

func TestRejoinSameRoomKeepsSingleSeat(t *testing.T) {
	s := newTestServer(t)
	sess, rec := newTestSession(s, "p1", 1)

	s.joinRoom(sess, 3)
	s.joinRoom(sess, 3)

	rm, _ := s.RoomByID(3)
	if got := len(rm.Members()); got != 1 {
		t.Fatalf("replayed join seated the same player %d times", got)
	}
	if rm.Status() != room.StatusWaiting {
		t.Fatalf("replayed join advanced the status to %q", rm.Status())
	}
	if current, color := sess.Room(); current != rm || color != room.Blue {
		t.Fatalf("session lost its seat: %v %q", current, color)
	}
	// No phantom one-player match: no second ack, no level init.
	if got := len(rec.byType(proto.TypeJoinedRoom)); got != 1 {
		t.Fatalf("expected a single joined_room ack, got %d", got)
	}
	if got := len(rec.byType(proto.TypeInitLevel)); got != 0 {
		t.Fatalf("replayed join started a level: %d init_level frames", got)
	}
}

func TestJoinFullRoomIsRejectedSilently(t *testing.T) {
	s := newTestServer(t)
	sess1, _ := newTestSession(s, "p1", 1)
	sess2, _ := newTestSession(s, "p2", 1)
	sess3, rec3 := newTestSession(s, "p3", 1)

	s.joinRoom(sess1, 1)
	s.joinRoom(sess2, 1)
	s.joinRoom(sess3, 1)

	if len(rec3.byType(proto.TypeJoinedRoom)) != 0 {
		t.Fatalf("third player must not receive joined_room")
	}
	if rm, _ := sess3.Room(); rm != nil {
		t.Fatalf("third player must stay unmatched")
	}
}

func TestJoinMovesPlayerBetweenRooms(t *testing.T) {
	s := newTestServer(t)
	sess, _ := newTestSession(s, "p1", 1)

	s.joinRoom(sess, 1)
	s.joinRoom(sess, 2)

	first, _ := s.RoomByID(1)
	second, _ := s.RoomByID(2)
	if first.Status() != room.StatusEmpty {
		t.Fatalf("expected vacated room to be empty, got %q", first.Status())
	}
	if second.Status() != room.StatusWaiting {
		t.Fatalf("expected new room waiting, got %q", second.Status())
	}
	if rm, color := sess.Room(); rm != second || color != room.Blue {
		t.Fatalf("session points at wrong room: %v %q", rm, color)
	}
}

func startTestMatch(t *testing.T, s *Server, sess1, sess2 *session, roomID int) *room.Room {
	t.Helper()
	s.joinRoom(sess1, roomID)
	s.joinRoom(sess2, roomID)
	rm, _ := s.RoomByID(roomID)
	rm.MarkReady(sess1.id)
	if !rm.MarkReady(sess2.id) {
		t.Fatalf("match failed to start")
	}
	if rm.Status() != room.StatusRunning {
		t.Fatalf("expected running, got %q", rm.Status())
	}
	return rm
}

func TestDisconnectForfeitsRunningMatch(t *testing.T) {
	s := newTestServer(t)
	sess1, _ := newTestSession(s, "p1", 1)
	sess2, rec2 := newTestSession(s, "p2", 2)
	rm := startTestMatch(t, s, sess1, sess2, 3)

	s.dropSession(sess1)

	ends := rec2.byType(proto.TypeEndGame)
	if len(ends) != 1 {
		t.Fatalf("expected end_game for the opponent, got %d", len(ends))
	}
	var msg proto.EndGame
	if err := ends[0].Decode(&msg); err != nil {
		t.Fatalf("decode end_game failed: %v", err)
	}
	if msg.WonPlayerID != "p2" {
		t.Fatalf("expected p2 to win, got %q", msg.WonPlayerID)
	}
	if !strings.Contains(msg.Reason, "blue") {
		t.Fatalf("expected reason to name the departing color, got %q", msg.Reason)
	}

	if rm.Status() != room.StatusEmpty {
		t.Fatalf("expected room recycled to empty, got %q", rm.Status())
	}
	if current, _ := sess2.Room(); current != nil {
		t.Fatalf("survivor still attached to the dead match")
	}
	lists := rec2.byType(proto.TypeRoomList)
	if info := roomInfo(t, lists[len(lists)-1], 3); info.Status != string(room.StatusEmpty) {
		t.Fatalf("lobby still shows the old match: %q", info.Status)
	}
	if got := s.metrics.Snapshot().Forfeits; got != 1 {
		t.Fatalf("expected one recorded forfeit, got %d", got)
	}
}

func TestLoseGameDeclaresOpponentWinner(t *testing.T) {
	s := newTestServer(t)
	sess1, rec1 := newTestSession(s, "p1", 1)
	sess2, _ := newTestSession(s, "p2", 1)
	startTestMatch(t, s, sess1, sess2, 2)

	s.surrender(sess2)

	ends := rec1.byType(proto.TypeEndGame)
	if len(ends) != 1 {
		t.Fatalf("expected end_game, got %d", len(ends))
	}
	var msg proto.EndGame
	if err := ends[0].Decode(&msg); err != nil {
		t.Fatalf("decode end_game failed: %v", err)
	}
	if msg.WonPlayerID != "p1" {
		t.Fatalf("expected p1 to win, got %q", msg.WonPlayerID)
	}
	if !strings.Contains(msg.Reason, "green") {
		t.Fatalf("expected reason to name the surrendering color, got %q", msg.Reason)
	}
}

func TestLeaveRoomBeforeMatch(t *testing.T) {
	s := newTestServer(t)
	sess, _ := newTestSession(s, "p1", 1)

	s.joinRoom(sess, 5)
	s.leaveRoom(sess)

	rm, _ := s.RoomByID(5)
	if rm.Status() != room.StatusEmpty {
		t.Fatalf("expected empty after leave, got %q", rm.Status())
	}
	if current, _ := sess.Room(); current != nil {
		t.Fatalf("session still attached after leave")
	}
}

func TestChatRoutesToMatchOrLobby(t *testing.T) {
	s := newTestServer(t)
	sess1, rec1 := newTestSession(s, "p1", 1)
	sess2, rec2 := newTestSession(s, "p2", 1)
	_, rec3 := newTestSession(s, "p3", 1)

	s.joinRoom(sess1, 1)
	s.joinRoom(sess2, 1)

	s.relayChat(sess1, "push north")
	if len(rec1.byType(proto.TypeChat)) != 1 || len(rec2.byType(proto.TypeChat)) != 1 {
		t.Fatalf("expected match chat to reach both players")
	}
	if len(rec3.byType(proto.TypeChat)) != 0 {
		t.Fatalf("match chat leaked to the lobby")
	}

	sess3 := s.sessions["p3"]
	s.relayChat(sess3, "anyone up for a game?")
	if len(rec1.byType(proto.TypeChat)) != 2 || len(rec3.byType(proto.TypeChat)) != 1 {
		t.Fatalf("expected lobby chat to reach everyone")
	}
}
