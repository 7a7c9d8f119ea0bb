package server

import (
	"time"

	"ore-and-order/server/internal/order"
)

const (
	ProtocolVersion = 1

	defaultListenAddr   = ":8080"
	defaultRoomCount    = 9
	defaultTickInterval = 16 * time.Millisecond

	writeWait       = 10 * time.Second
	probeTimeout    = 10 * time.Second
	maxMessageBytes = 1 << 16
)

// Starting base locations, mirrored corners of the level grid.
var (
	blueSpawn  = order.Point{X: 4, Y: 4}
	greenSpawn = order.Point{X: 56, Y: 36}
)
