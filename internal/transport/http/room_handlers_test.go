package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/peermeet/signal-server/internal/core"
	"github.com/peermeet/signal-server/internal/persist/sqlite"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t, nil)

	var body map[string]string
	resp := getJSON(t, env.ts.URL+"/healthz", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if body["status"] != "ok" || body["timestamp"] == "" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestIssueTokenEndpoint(t *testing.T) {
	env := startTestServer(t, nil)

	resp := postJSON(t, env.ts.URL+"/api/auth/token", map[string]string{"name": "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var body TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token == "" || body.ParticipantID == "" {
		t.Fatalf("incomplete token response: %+v", body)
	}

	resp = postJSON(t, env.ts.URL+"/api/auth/token", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing name should be 400, got %d", resp.StatusCode)
	}
}

func TestCreateAndFetchRoom(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	env := startTestServer(t, store)

	resp := postJSON(t, env.ts.URL+"/api/rooms", map[string]string{"name": "standup", "createdBy": "alice"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var created RoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.RoomID == "" || created.Name != "standup" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	var fetched RoomResponse
	resp = getJSON(t, env.ts.URL+"/api/rooms/"+created.RoomID, &fetched)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if fetched.RoomID != created.RoomID || fetched.InMemory {
		t.Fatalf("unexpected room record: %+v", fetched)
	}

	resp = getJSON(t, env.ts.URL+"/api/rooms/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown room with a reachable store should be 404, got %d", resp.StatusCode)
	}
}

func TestRoomLookupWithStoreDown(t *testing.T) {
	env := startTestServer(t, nil)

	// Store down, room not live anywhere: unavailable, not not-found.
	resp := getJSON(t, env.ts.URL+"/api/rooms/ghost", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	// A live room still resolves through the in-memory fallback.
	session := core.NewSession("a", "alice", 8)
	if err := env.registry.Join("live-room", session); err != nil {
		t.Fatalf("join: %v", err)
	}

	var room RoomResponse
	resp = getJSON(t, env.ts.URL+"/api/rooms/live-room", &room)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !room.InMemory || room.RoomID != "live-room" {
		t.Fatalf("expected in-memory fallback record, got %+v", room)
	}

	var participants []ParticipantResponse
	resp = getJSON(t, env.ts.URL+"/api/rooms/live-room/participants", &participants)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(participants) != 1 || participants[0].ID != "a" {
		t.Fatalf("unexpected fallback participants: %+v", participants)
	}
}

func TestParticipantsFromStore(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	env := startTestServer(t, store)

	// Run the gateway so join/leave events get mirrored.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.gateway.Run(ctx)

	alice := core.NewSession("a", "alice", 8)
	bob := core.NewSession("b", "bob", 8)
	if err := env.registry.Join("r1", alice); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if err := env.registry.Join("r1", bob); err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if err := env.registry.Leave("r1", "b"); err != nil {
		t.Fatalf("leave bob: %v", err)
	}

	// The mirror is eventual; poll until the worker catches up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var participants []ParticipantResponse
		resp := getJSON(t, env.ts.URL+"/api/rooms/r1/participants", &participants)
		if resp.StatusCode == http.StatusOK && len(participants) == 2 {
			if participants[0].ID != "a" || participants[0].LeftAt != "" {
				t.Fatalf("expected active alice first, got %+v", participants)
			}
			if participants[1].ID != "b" || participants[1].LeftAt == "" {
				t.Fatalf("expected departed bob last, got %+v", participants)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("mirror never caught up: status=%d participants=%+v", resp.StatusCode, participants)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
