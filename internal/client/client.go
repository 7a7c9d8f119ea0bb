package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ore-and-order/server/internal/proto"
)

const writeWait = 10 * time.Second

// Events are the callbacks a client consumer wires up; nil handlers are
// skipped.
type Events struct {
	RoomList   func(proto.RoomList)
	JoinedRoom func(proto.JoinedRoom)
	InitLevel  func(proto.InitLevel)
	StartGame  func()
	GameTick   func(proto.GameTick)
	EndGame    func(proto.EndGame)
	Chat       func(proto.Chat)
}

// Client is the websocket side of a game client: it answers latency pings
// automatically and fans inbound messages out to the event handlers.
type Client struct {
	conn *websocket.Conn
	log  *zap.SugaredLogger

	writeMu sync.Mutex
}

// Dial connects to the relay's /ws endpoint.
func Dial(ctx context.Context, url string, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, log: log}, nil
}

// Send writes one envelope frame.
func (c *Client) Send(msgType string, payload any) error {
	data, err := proto.Encode(msgType, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// JoinRoom asks for a seat in the given slot.
func (c *Client) JoinRoom(roomID int) error {
	return c.Send(proto.TypeJoinRoom, proto.JoinRoom{RoomID: roomID})
}

// LeaveRoom gives the seat back.
func (c *Client) LeaveRoom(roomID int) error {
	return c.Send(proto.TypeLeaveRoom, proto.LeaveRoom{RoomID: roomID})
}

// InitializedLevel signals the readiness handshake after init_level.
func (c *Client) InitializedLevel() error {
	return c.Send(proto.TypeInitializedLevel, nil)
}

// LoseGame concedes the match.
func (c *Client) LoseGame() error {
	return c.Send(proto.TypeLoseGame, nil)
}

// SendChat relays a chat line.
func (c *Client) SendChat(message string) error {
	return c.Send(proto.TypeChat, proto.Chat{Message: message})
}

// Close tears the connection down.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Run reads until the connection drops, dispatching each message. Latency
// pings are answered inline so the server's probe never waits on the
// consumer.
func (c *Client) Run(ev Events) error {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		env, err := proto.DecodeEnvelope(payload)
		if err != nil {
			c.log.Debugw("discarding malformed server message", "err", err)
			continue
		}
		if err := c.handle(env, ev); err != nil {
			return err
		}
	}
}

func (c *Client) handle(env proto.Envelope, ev Events) error {
	switch env.Type {
	case proto.TypeLatencyPing:
		return c.Send(proto.TypeLatencyPong, nil)

	case proto.TypeRoomList:
		var msg proto.RoomList
		if err := env.Decode(&msg); err != nil {
			return err
		}
		if ev.RoomList != nil {
			ev.RoomList(msg)
		}

	case proto.TypeJoinedRoom:
		var msg proto.JoinedRoom
		if err := env.Decode(&msg); err != nil {
			return err
		}
		if ev.JoinedRoom != nil {
			ev.JoinedRoom(msg)
		}

	case proto.TypeInitLevel:
		var msg proto.InitLevel
		if err := env.Decode(&msg); err != nil {
			return err
		}
		if ev.InitLevel != nil {
			ev.InitLevel(msg)
		}

	case proto.TypeStartGame:
		if ev.StartGame != nil {
			ev.StartGame()
		}

	case proto.TypeGameTick:
		var msg proto.GameTick
		if err := env.Decode(&msg); err != nil {
			return err
		}
		if ev.GameTick != nil {
			ev.GameTick(msg)
		}

	case proto.TypeEndGame:
		var msg proto.EndGame
		if err := env.Decode(&msg); err != nil {
			return err
		}
		if ev.EndGame != nil {
			ev.EndGame(msg)
		}

	case proto.TypeChat:
		var msg proto.Chat
		if err := env.Decode(&msg); err != nil {
			return err
		}
		if ev.Chat != nil {
			ev.Chat(msg)
		}

	default:
		c.log.Debugw("unknown server message type", "type", env.Type)
	}
	return nil
}
