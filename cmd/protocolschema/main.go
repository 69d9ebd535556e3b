// Command protocolschema writes the JSON schema of every WebSocket message
// the server accepts or sends, for client code generation.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/lawnchairsociety/gridquest/internal/player"
	"github.com/lawnchairsociety/gridquest/internal/server"
	"github.com/lawnchairsociety/gridquest/internal/session"
)

type message struct {
	event   string
	payload any
}

type empty struct{}

var inbound = []message{
	{server.CmdCreateSession, server.CreateSessionRequest{}},
	{server.CmdCreateCharacter, server.CreateCharacterRequest{}},
	{server.CmdGetTakenAvatars, server.SessionRef{}},
	{server.CmdJoinSession, server.JoinSessionRequest{}},
	{server.CmdLeaveSession, empty{}},
	{server.CmdDeleteSession, empty{}},
	{server.CmdExcludePlayer, server.ExcludePlayerRequest{}},
	{server.CmdToggleLock, server.ToggleLockRequest{}},
	{server.CmdStartGame, empty{}},
	{server.CmdEndTurn, empty{}},
	{server.CmdGetAccessibleTiles, empty{}},
	{server.CmdMovePlayer, server.PositionRequest{}},
	{server.CmdToggleDoorState, server.PositionRequest{}},
	{server.CmdDiscardItem, server.DiscardItemRequest{}},
	{server.CmdToggleDebugMode, empty{}},
	{server.CmdDebugMove, server.PositionRequest{}},
	{server.CmdStartCombat, server.StartCombatRequest{}},
	{server.CmdAttack, empty{}},
	{server.CmdEvade, empty{}},
}

var outbound = []message{
	{session.EventSessionCreated, session.SessionInfo{}},
	{session.EventSessionJoined, session.SessionInfo{}},
	{session.EventTakenAvatars, session.TakenAvatarsPayload{}},
	{session.EventCharacterCreated, player.Player{}},
	{session.EventPlayerListUpdate, session.PlayerListPayload{}},
	{session.EventSessionDeleted, session.ExcludedPayload{}},
	{session.EventRoomLocked, session.RoomLockedPayload{}},
	{session.EventExcluded, session.ExcludedPayload{}},
	{session.EventGameStarted, session.GameStartedPayload{}},
	{session.EventGridArray, session.GridPayload{}},
	{session.EventDoorStateUpdated, session.DoorStatePayload{}},
	{session.EventAccessibleTiles, session.AccessibleTilesPayload{}},
	{session.EventPlayerMovement, session.MovementPayload{}},
	{session.EventNoMovementPossible, session.TurnPayload{}},
	{session.EventTurnStarted, session.TurnPayload{}},
	{session.EventTurnEnded, session.TurnPayload{}},
	{session.EventTimeLeft, session.TimeLeftPayload{}},
	{session.EventInventoryFull, session.InventoryFullPayload{}},
	{session.EventUpdateInventory, session.InventoryPayload{}},
	{session.EventDebugModeToggled, session.DebugModePayload{}},
	{session.EventDebugMoveFailed, session.DebugMoveFailedPayload{}},
	{session.EventCombatStarted, session.CombatStartedPayload{}},
	{session.EventCombatTurnStarted, session.CombatTurnPayload{}},
	{session.EventCombatTimeLeft, session.TimeLeftPayload{}},
	{session.EventAttackResult, session.AttackResultPayload{}},
	{session.EventEvasionResult, session.EvasionResultPayload{}},
	{session.EventCombatTurnEnded, session.TurnPayload{}},
	{session.EventCombatEnded, session.CombatEndedPayload{}},
	{session.EventDefeated, session.CombatantPayload{}},
	{session.EventOpponentDefeated, session.CombatantPayload{}},
	{session.EventEvasionSuccess, session.CombatantPayload{}},
	{session.EventOpponentEvaded, session.CombatantPayload{}},
	{session.EventGameEnded, session.GameEndedPayload{}},
	{session.EventError, session.ErrorPayload{}},
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchema()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

// buildSchema returns one definition per message, keyed "client/<event>"
// for commands and "server/<event>" for events. Each describes the data
// field of the {"event", "data"} envelope.
func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "GridQuest WebSocket protocol",
		Description: "Payloads of the data field of every {\"event\", \"data\"} message.",
		Definitions: jsonschema.Definitions{},
	}
	add := func(prefix string, msgs []message) {
		for _, m := range msgs {
			s := reflector.Reflect(m.payload)
			s.Version = ""
			s.Title = m.event
			root.Definitions[prefix+"/"+m.event] = s
		}
	}
	add("client", inbound)
	add("server", outbound)

	names := make([]string, 0, len(root.Definitions))
	for name := range root.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		root.OneOf = append(root.OneOf, &jsonschema.Schema{Ref: "#/$defs/" + name})
	}
	return root
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
