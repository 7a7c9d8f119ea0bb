package proto

import (
	"encoding/json"
	"fmt"

	"ore-and-order/server/internal/order"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeLatencyPong      = "latency_pong"
	TypeJoinRoom         = "join_room"
	TypeLeaveRoom        = "leave_room"
	TypeInitializedLevel = "initialized_level"
	TypeOrders           = "orders"
	TypeLoseGame         = "lose_game"
)

// Server message type identifiers.
const (
	TypeLatencyPing = "latency_ping"
	TypeRoomList    = "room_list"
	TypeJoinedRoom  = "joined_room"
	TypeInitLevel   = "init_level"
	TypeStartGame   = "start_game"
	TypeGameTick    = "game_tick"
	TypeEndGame     = "end_game"
)

// TypeChat flows in both directions.
const TypeChat = "chat_message"

// Envelope wraps every websocket frame: a type tag plus the payload for
// message types that carry one.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode renders a typed message, marshalling the payload when present.
func Encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// DecodeEnvelope parses the outer frame without touching the payload.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}

// Decode unmarshals the payload into the provided struct. An absent
// payload leaves the target at its zero value.
func (e Envelope) Decode(into any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, into); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// RoomInfo is the lobby-visible summary of a match slot.
type RoomInfo struct {
	RoomID int    `json:"roomId"`
	Status string `json:"status"`
}

// RoomList refreshes the lobby for one client and tells it its own id.
type RoomList struct {
	List     []RoomInfo `json:"list"`
	PlayerID string     `json:"playerId"`
}

// JoinRoom and LeaveRoom name the slot the client wants to enter or exit.
type JoinRoom struct {
	RoomID int `json:"roomId"`
}

type LeaveRoom struct {
	RoomID int `json:"roomId"`
}

// JoinedRoom confirms a join with the room's post-join state.
type JoinedRoom struct {
	Room RoomInfo `json:"room"`
}

// SpawnLocations carries the starting base location for each side.
type SpawnLocations struct {
	Blue  order.Point `json:"blue"`
	Green order.Point `json:"green"`
}

// SidePlayers maps each color to the connection id playing it.
type SidePlayers struct {
	Blue  string `json:"blue"`
	Green string `json:"green"`
}

// InitLevel instructs both clients to load the match level.
type InitLevel struct {
	SpawnLocations SpawnLocations `json:"spawnLocations"`
	Players        SidePlayers    `json:"players"`
}

// Assignment applies one wire order to a set of units.
type Assignment struct {
	UIDs  []uint64    `json:"uids"`
	Order *order.Wire `json:"order"`
}

// Orders is a client's submission for one tick. An empty order list is a
// keep-alive: it still confirms the tick.
type Orders struct {
	CurrentTick uint64       `json:"currentTick"`
	Orders      []Assignment `json:"orders,omitempty"`
}

// GameTick is the server's broadcast releasing one tick to both clients.
type GameTick struct {
	Tick   uint64       `json:"tick"`
	Orders []Assignment `json:"orders"`
}

// EndGame reports the match result and why it ended.
type EndGame struct {
	WonPlayerID string `json:"wonPlayerId"`
	Reason      string `json:"reason"`
}

// Chat relays a lobby or in-match chat line.
type Chat struct {
	PlayerID string `json:"playerId"`
	Message  string `json:"message"`
}
