package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"ore-and-order/server/internal/proto"
)

// wireMessages aggregates every payload so one reflection pass captures
// the full protocol, including the recursive wire-order union.
type wireMessages struct {
	Envelope   proto.Envelope   `json:"envelope"`
	RoomList   proto.RoomList   `json:"room_list"`
	JoinRoom   proto.JoinRoom   `json:"join_room"`
	LeaveRoom  proto.LeaveRoom  `json:"leave_room"`
	JoinedRoom proto.JoinedRoom `json:"joined_room"`
	InitLevel  proto.InitLevel  `json:"init_level"`
	Orders     proto.Orders     `json:"orders"`
	GameTick   proto.GameTick   `json:"game_tick"`
	EndGame    proto.EndGame    `json:"end_game"`
	Chat       proto.Chat       `json:"chat_message"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(wireMessages))
	schema.Title = "Ore & Order Wire Protocol"
	schema.Description = "Validates the websocket messages exchanged between relay and clients"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
