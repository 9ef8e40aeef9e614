package session

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"sitepanel.org/internal/obs"
	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/storage"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line not JSON: %v (%s)", err, line)
		}
		out = append(out, entry)
	}
	return out
}

func TestSessionEventsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	obs.Configure(&buf, "debug", "json")
	defer obs.Configure(os.Stderr, "info", "json")

	ctx := context.Background()
	api := &fakeAPI{loginResp: panelapi.AuthResponse{Token: "tok", User: &panelapi.User{Username: "ann", Role: panelapi.RoleAdmin}}}
	s := New(api, storage.NewMemory())
	s.Hydrate(ctx)
	s.Login(ctx, panelapi.Credentials{Username: "ann", Password: "pw"})
	s.Logout(ctx)

	seen := map[string]string{}
	for _, e := range logLines(t, &buf) {
		if e["type"] == "audit" {
			name, _ := e["event"].(string)
			actor, _ := e["actor"].(string)
			seen[name] = actor
		}
	}
	for _, name := range []string{"session.login", "session.logout"} {
		if actor, ok := seen[name]; !ok || actor != "ann" {
			t.Fatalf("event %s missing or without actor: %+v", name, seen)
		}
	}
}

func TestRejectedEventIsReportedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	obs.Configure(&buf, "debug", "json")
	defer obs.Configure(os.Stderr, "info", "json")

	logEvent(context.Background(), " ", nil)

	lines := logLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if lines[0]["level"] != "debug" || lines[0]["message"] != "session event not logged" {
		t.Fatalf("unexpected line %+v", lines[0])
	}
}
