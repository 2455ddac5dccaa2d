package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWritesJSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter("prod", "warn", &buf)

	l.Info().Msg("dropped")
	l.Warn().Str("event_id", "7").Msg("kept")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "kept" || entry["service"] != "seminars" || entry["event_id"] != "7" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter("prod", "loud", &buf)
	l.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at default level: %q", buf.String())
	}
}
