package rooms

import (
	"errors"
	"testing"
	"time"

	"snak8s/internal/game"
	"snak8s/internal/net/proto"
	"snak8s/internal/telemetry"
	"snak8s/logging/lifecycle"
	"snak8s/logging/sinks"
)

func newTestRegistry(t *testing.T) (*Registry, *sinks.MemorySink, *telemetry.Counters) {
	t.Helper()
	sink := sinks.NewMemorySink()
	counters := telemetry.NewCounters(false, nil)
	roomCfg := game.DefaultConfig()
	roomCfg.Publisher = sink
	roomCfg.Metrics = counters
	registry := NewRegistry(Config{Room: roomCfg, Seed: t.Name(), ManualTicks: true})
	t.Cleanup(registry.Close)
	return registry, sink, counters
}

func TestRegistryCreatesRoomOnFirstJoin(t *testing.T) {
	registry, sink, counters := newTestRegistry(t)

	room, player, err := registry.Join("alpha", game.JoinRequest{PlayerID: "p1", Name: "one"})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if room.ID() != "alpha" || player.ID != "p1" {
		t.Fatalf("unexpected room %q player %q", room.ID(), player.ID)
	}

	again, _, err := registry.Join("alpha", game.JoinRequest{PlayerID: "p2"})
	if err != nil {
		t.Fatalf("second join failed: %v", err)
	}
	if again != room {
		t.Fatalf("expected second join to reuse the room")
	}
	if registry.Len() != 1 || room.Len() != 2 {
		t.Fatalf("expected one room with two players, got %d rooms %d players", registry.Len(), room.Len())
	}
	if got := len(sink.EventsOfType(lifecycle.EventRoomCreated)); got != 1 {
		t.Fatalf("expected one room created event, got %d", got)
	}
	if got := counters.Value(telemetry.MetricRoomsActive); got != 1 {
		t.Fatalf("expected rooms_active 1, got %d", got)
	}
}

func TestRegistryDefaultsBlankRoomID(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	room, _, err := registry.Join("  ", game.JoinRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if room.ID() != proto.DefaultRoomID {
		t.Fatalf("expected default room, got %q", room.ID())
	}
	if _, ok := registry.Lookup(""); !ok {
		t.Fatalf("expected lookup of blank id to find the default room")
	}
}

func TestRegistryReleasesEmptyRoom(t *testing.T) {
	registry, sink, counters := newTestRegistry(t)

	first, _, _ := registry.Join("alpha", game.JoinRequest{PlayerID: "p1"})
	registry.Join("alpha", game.JoinRequest{PlayerID: "p2"})
	for i := 0; i < 3; i++ {
		first.Step()
	}

	if remaining, ok := registry.Leave("alpha", "p1"); !ok || remaining != 1 {
		t.Fatalf("expected one player to remain, got %d/%v", remaining, ok)
	}
	if _, ok := registry.Lookup("alpha"); !ok {
		t.Fatalf("expected room to survive while occupied")
	}

	if remaining, ok := registry.Leave("alpha", "p2"); !ok || remaining != 0 {
		t.Fatalf("expected room to empty, got %d/%v", remaining, ok)
	}
	if _, ok := registry.Lookup("alpha"); ok {
		t.Fatalf("expected empty room to be released")
	}

	destroyed := sink.EventsOfType(lifecycle.EventRoomDestroyed)
	if len(destroyed) != 1 {
		t.Fatalf("expected one room destroyed event, got %d", len(destroyed))
	}
	payload, ok := destroyed[0].Payload.(lifecycle.RoomPayload)
	if !ok || payload.Ticks != 3 {
		t.Fatalf("expected destroyed payload with 3 ticks, got %+v", destroyed[0].Payload)
	}
	if counters.Value(telemetry.MetricRoomsActive) != 0 || counters.Value(telemetry.MetricRoomsDestroyed) != 1 {
		t.Fatalf("unexpected room counters %+v", counters.Snapshot().Values)
	}

	// The next join builds a fresh room.
	fresh, _, err := registry.Join("alpha", game.JoinRequest{PlayerID: "p3"})
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if fresh == first {
		t.Fatalf("expected a new room instance")
	}
	if fresh.Tick() != 0 || fresh.Len() != 1 {
		t.Fatalf("expected fresh room state, got tick %d players %d", fresh.Tick(), fresh.Len())
	}
}

func TestRegistryLeaveUnknown(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	registry.Join("alpha", game.JoinRequest{PlayerID: "p1"})

	if _, ok := registry.Leave("beta", "p1"); ok {
		t.Fatalf("expected leave from unknown room to fail")
	}
	if _, ok := registry.Leave("alpha", "ghost"); ok {
		t.Fatalf("expected leave of unknown player to fail")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected room to remain, got %d rooms", registry.Len())
	}
}

func TestRegistryFailedJoinDoesNotLeakRoom(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	if _, _, err := registry.Join("alpha", game.JoinRequest{}); !errors.Is(err, game.ErrMissingPlayerID) {
		t.Fatalf("expected ErrMissingPlayerID, got %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected no rooms after a failed join, got %d", registry.Len())
	}

	registry.Join("alpha", game.JoinRequest{PlayerID: "p1"})
	if _, _, err := registry.Join("alpha", game.JoinRequest{PlayerID: "p1"}); !errors.Is(err, game.ErrDuplicatePlayer) {
		t.Fatalf("expected ErrDuplicatePlayer, got %v", err)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected existing room to survive a rejected join")
	}
}

func TestRegistryDiagnosticsSortedByID(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	registry.Join("zulu", game.JoinRequest{PlayerID: "p1"})
	registry.Join("alpha", game.JoinRequest{PlayerID: "p2"})
	registry.Join("alpha", game.JoinRequest{PlayerID: "p3"})

	diags := registry.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("expected two rooms, got %d", len(diags))
	}
	if diags[0].ID != "alpha" || diags[0].Players != 2 || diags[1].ID != "zulu" {
		t.Fatalf("unexpected diagnostics %+v", diags)
	}
	if diags[0].Food != game.DefaultFoodTarget {
		t.Fatalf("expected %d food, got %d", game.DefaultFoodTarget, diags[0].Food)
	}
}

func TestRegistryCloseStopsRoomsAndRejectsJoins(t *testing.T) {
	roomCfg := game.DefaultConfig()
	roomCfg.TickInterval = 5 * time.Millisecond
	registry := NewRegistry(Config{Room: roomCfg, Seed: t.Name()})

	room, _, err := registry.Join("alpha", game.JoinRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if !room.Running() {
		t.Fatalf("expected room loop to be running")
	}

	registry.Close()
	registry.Close()

	if room.Running() {
		t.Fatalf("expected room loop to stop on close")
	}
	if registry.Len() != 0 {
		t.Fatalf("expected no rooms after close")
	}
	if _, _, err := registry.Join("alpha", game.JoinRequest{PlayerID: "p2"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRegistryRoomsTickOnTheirOwn(t *testing.T) {
	roomCfg := game.DefaultConfig()
	roomCfg.TickInterval = 2 * time.Millisecond
	registry := NewRegistry(Config{Room: roomCfg, Seed: t.Name()})
	defer registry.Close()

	room, _, err := registry.Join("alpha", game.JoinRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for room.Tick() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected room to tick, got %d ticks", room.Tick())
		}
		time.Sleep(time.Millisecond)
	}
}
