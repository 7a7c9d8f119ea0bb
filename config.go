package server

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"ore-and-order/server/internal/latency"
)

// Config holds the tunables for a relay server process.
type Config struct {
	ListenAddr   string
	RoomCount    int
	TickInterval time.Duration
	ProbeSamples int
	LogFile      string
	Debug        bool
}

// DefaultConfig returns the stock configuration: nine match slots ticking
// every 16ms.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   defaultListenAddr,
		RoomCount:    defaultRoomCount,
		TickInterval: defaultTickInterval,
		ProbeSamples: latency.DefaultSamples,
		LogFile:      "relay.log",
	}
}

// LoadConfig reads configuration from the environment, honoring an
// optional .env file. Invalid values are logged and ignored.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := DefaultConfig()
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if raw := os.Getenv("ROOM_COUNT"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.RoomCount = v
		} else {
			log.Printf("invalid ROOM_COUNT=%q, keeping %d", raw, cfg.RoomCount)
		}
	}
	if raw := os.Getenv("TICK_INTERVAL_MS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.TickInterval = time.Duration(v) * time.Millisecond
		} else {
			log.Printf("invalid TICK_INTERVAL_MS=%q, keeping %s", raw, cfg.TickInterval)
		}
	}
	if raw := os.Getenv("PROBE_SAMPLES"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.ProbeSamples = v
		} else {
			log.Printf("invalid PROBE_SAMPLES=%q, keeping %d", raw, cfg.ProbeSamples)
		}
	}
	if raw := os.Getenv("DEBUG"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Debug = v
		}
	}
	return cfg
}
