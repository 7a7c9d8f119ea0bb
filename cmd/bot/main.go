package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"ore-and-order/server/internal/client"
	"ore-and-order/server/internal/order"
	"ore-and-order/server/internal/proto"
	"ore-and-order/server/logging"
)

// idleSimulation satisfies the lockstep core without running any game
// logic; the bot exists to keep a seat warm and the ticks flowing.
type idleSimulation struct{}

func (idleSimulation) ProcessOrder(uids []uint64, o *order.Live) {}
func (idleSimulation) HandleUpdate(deltaMS int)                  {}
func (idleSimulation) LookupUID(uid uint64) (order.Entity, bool) { return nil, false }

func main() {
	var (
		addr    string
		roomID  int
		deltaMS int
	)
	flag.StringVar(&addr, "addr", "ws://localhost:8080/ws", "relay websocket URL")
	flag.IntVar(&roomID, "room", 1, "room to join")
	flag.IntVar(&deltaMS, "delta", 16, "simulation frame interval in ms")
	flag.Parse()

	log, err := logging.New(logging.Options{Debug: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to construct logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	c, err := client.Dial(context.Background(), addr, log)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer c.Close()

	channel := client.NewOrderChannel(func(msg proto.Orders) error {
		return c.Send(proto.TypeOrders, msg)
	})
	clock := client.NewClock(channel, idleSimulation{}, deltaMS, log)

	started := make(chan struct{})
	finished := make(chan struct{})
	var joinOnce, startOnce, endOnce sync.Once

	go func() {
		select {
		case <-started:
		case <-finished:
			return
		}
		ticker := time.NewTicker(time.Duration(deltaMS) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-finished:
				return
			case <-ticker.C:
				if _, err := clock.Advance(); err != nil {
					log.Warnf("advance failed: %v", err)
					return
				}
			}
		}
	}()

	events := client.Events{
		RoomList: func(msg proto.RoomList) {
			joinOnce.Do(func() {
				log.Infof("joining room %d as %s", roomID, msg.PlayerID)
				if err := c.JoinRoom(roomID); err != nil {
					log.Warnf("join failed: %v", err)
				}
			})
		},
		InitLevel: func(msg proto.InitLevel) {
			if err := c.InitializedLevel(); err != nil {
				log.Warnf("readiness signal failed: %v", err)
			}
		},
		StartGame: func() {
			log.Infof("match started")
			startOnce.Do(func() { close(started) })
		},
		GameTick: func(msg proto.GameTick) {
			channel.Accept(msg)
		},
		EndGame: func(msg proto.EndGame) {
			log.Infof("match over: winner=%s reason=%q", msg.WonPlayerID, msg.Reason)
			endOnce.Do(func() { close(finished) })
			c.Close()
		},
	}

	if err := c.Run(events); err != nil {
		log.Infof("connection closed: %v", err)
	}
	endOnce.Do(func() { close(finished) })
}
