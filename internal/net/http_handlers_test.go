package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snak8s/internal/game"
	"snak8s/internal/net/ws"
	"snak8s/internal/rooms"
	"snak8s/internal/session"
	"snak8s/internal/telemetry"
)

func newTestHandler(t *testing.T) (http.Handler, *rooms.Registry) {
	t.Helper()
	counters := telemetry.NewCounters(false, nil)
	roomCfg := game.DefaultConfig()
	roomCfg.Metrics = counters
	registry := rooms.NewRegistry(rooms.Config{Room: roomCfg, Seed: t.Name(), ManualTicks: true})
	t.Cleanup(registry.Close)

	socket := ws.NewHandler(session.NewRouter(registry, nil), ws.HandlerConfig{Metrics: counters})
	handler := NewHTTPHandler(registry, socket, HTTPHandlerConfig{
		TickInterval: 100 * time.Millisecond,
		Counters:     counters,
	})
	return handler, registry
}

func TestHealth(t *testing.T) {
	handler, _ := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != "ok" {
		t.Fatalf("expected body ok, got %q", body)
	}
}

func TestDiagnosticsListsRooms(t *testing.T) {
	handler, registry := newTestHandler(t)
	room, _, err := registry.Join("alpha", game.JoinRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	room.Step()
	room.Step()

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var payload struct {
		Status       string             `json:"status"`
		TickInterval int64              `json:"tickIntervalMillis"`
		Rooms        []game.Diagnostics `json:"rooms"`
		Telemetry    struct {
			Values map[string]uint64 `json:"values"`
		} `json:"telemetry"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if payload.Status != "ok" || payload.TickInterval != 100 {
		t.Fatalf("unexpected diagnostics header %+v", payload)
	}
	if len(payload.Rooms) != 1 || payload.Rooms[0].ID != "alpha" || payload.Rooms[0].Tick != 2 {
		t.Fatalf("unexpected rooms %+v", payload.Rooms)
	}
	if payload.Telemetry.Values[telemetry.MetricTicks] != 2 {
		t.Fatalf("expected 2 ticks in telemetry, got %+v", payload.Telemetry.Values)
	}
	if payload.Telemetry.Values[telemetry.MetricRoomsCreated] != 1 {
		t.Fatalf("expected rooms_created 1, got %+v", payload.Telemetry.Values)
	}
}

func TestThemesCatalog(t *testing.T) {
	handler, _ := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/themes", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}

	var payload struct {
		Themes []struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"themes"`
		Food []struct {
			Type   string `json:"type"`
			Points int    `json:"points"`
			Bonus  int    `json:"bonus"`
		} `json:"food"`
		CellSize int `json:"cellSize"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode themes: %v", err)
	}
	if len(payload.Themes) != len(game.Themes()) {
		t.Fatalf("expected %d themes, got %d", len(game.Themes()), len(payload.Themes))
	}
	if len(payload.Food) != len(game.FoodKinds()) {
		t.Fatalf("expected %d food kinds, got %d", len(game.FoodKinds()), len(payload.Food))
	}
	for _, entry := range payload.Food {
		info, ok := game.LookupFood(game.FoodKind(entry.Type))
		if !ok || info.Points != entry.Points || info.Bonus != entry.Bonus {
			t.Fatalf("unexpected food entry %+v", entry)
		}
	}
	if payload.CellSize != game.DefaultCellSize {
		t.Fatalf("expected cell size %d, got %d", game.DefaultCellSize, payload.CellSize)
	}

	post := httptest.NewRecorder()
	handler.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/themes", nil))
	if post.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", post.Code)
	}
}
