package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildSchemaCoversEveryMessage(t *testing.T) {
	schema := buildSchema()

	if got, want := len(schema.Definitions), len(inbound)+len(outbound); got != want {
		t.Errorf("definitions = %d, want %d", got, want)
	}
	if len(schema.OneOf) != len(schema.Definitions) {
		t.Errorf("oneOf = %d entries, want %d", len(schema.OneOf), len(schema.Definitions))
	}
	for _, key := range []string{"client/createSession", "client/movePlayer", "server/attackResult", "server/error"} {
		def, ok := schema.Definitions[key]
		if !ok {
			t.Errorf("missing definition %s", key)
			continue
		}
		if def.Version != "" {
			t.Errorf("%s: nested $schema should be cleared", key)
		}
	}
}

func TestBuildSchemaNoDuplicateEvents(t *testing.T) {
	for name, msgs := range map[string][]message{"inbound": inbound, "outbound": outbound} {
		seen := make(map[string]bool)
		for _, m := range msgs {
			if seen[m.event] {
				t.Errorf("%s lists %s twice", name, m.event)
			}
			seen[m.event] = true
		}
	}
}

func TestWriteSchema(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "protocol.schema.json")
	if err := writeSchema(out, buildSchema()); err != nil {
		t.Fatalf("writeSchema: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if doc["title"] != "GridQuest WebSocket protocol" {
		t.Errorf("title = %v", doc["title"])
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}
