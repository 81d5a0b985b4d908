package session

import (
	"errors"
	"testing"

	"github.com/KenanMathews/multiplayer-conway/internal/game"
)

func newWaitingGame(t *testing.T) *Game {
	t.Helper()
	r := NewRegistry(10)
	g, err := r.Create("ROSTER", DefaultSettings())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return g
}

func TestAddPlayer(t *testing.T) {
	g := newWaitingGame(t)

	first, err := g.AddPlayer("p1", "alice", game.TeamRed)
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if !first.IsHost {
		t.Error("first joiner should be host")
	}

	second, err := g.AddPlayer("p2", "bob", "")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if second.IsHost {
		t.Error("second joiner should not be host")
	}
	if second.Team != "" {
		t.Error("joiner without a team should be unassigned")
	}

	if _, err := g.AddPlayer("p1", "alice again", ""); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("duplicate join: got %v, want ErrAlreadyJoined", err)
	}
	if _, err := g.AddPlayer("p3", "carol", ""); !errors.Is(err, ErrGameFull) {
		t.Errorf("third join: got %v, want ErrGameFull", err)
	}
}

func TestAddPlayerTeamConflict(t *testing.T) {
	g := newWaitingGame(t)
	g.AddPlayer("p1", "alice", game.TeamRed)

	if _, err := g.AddPlayer("p2", "bob", game.TeamRed); !errors.Is(err, ErrInvalidTeam) {
		t.Errorf("joining an occupied team: got %v, want ErrInvalidTeam", err)
	}
}

func TestRemovePlayerReassignsHost(t *testing.T) {
	g := newWaitingGame(t)
	g.AddPlayer("p1", "alice", game.TeamRed)
	g.AddPlayer("p2", "bob", game.TeamBlue)

	removed := g.RemovePlayer("p1")
	if removed == nil || removed.ID != "p1" {
		t.Fatalf("RemovePlayer returned %+v", removed)
	}
	if len(g.Players) != 1 {
		t.Fatalf("roster size = %d, want 1", len(g.Players))
	}
	if !g.Players[0].IsHost {
		t.Error("remaining player should inherit host")
	}

	if g.RemovePlayer("ghost") != nil {
		t.Error("removing an absent player should return nil")
	}
}

func TestUpdatePlayer(t *testing.T) {
	g := newWaitingGame(t)
	g.AddPlayer("p1", "alice", "")
	g.AddPlayer("p2", "bob", "")

	red := game.TeamRed
	if _, err := g.UpdatePlayer("p1", PlayerUpdate{Team: &red}); err != nil {
		t.Fatalf("UpdatePlayer: %v", err)
	}
	if _, err := g.UpdatePlayer("p2", PlayerUpdate{Team: &red}); !errors.Is(err, ErrInvalidTeam) {
		t.Errorf("taking an occupied team: got %v, want ErrInvalidTeam", err)
	}

	// Re-selecting your own team is not a conflict.
	if _, err := g.UpdatePlayer("p1", PlayerUpdate{Team: &red}); err != nil {
		t.Errorf("re-selecting own team: %v", err)
	}

	ready := true
	p, err := g.UpdatePlayer("p1", PlayerUpdate{Ready: &ready})
	if err != nil {
		t.Fatalf("UpdatePlayer ready: %v", err)
	}
	if !p.Ready {
		t.Error("ready flag not applied")
	}

	if _, err := g.UpdatePlayer("ghost", PlayerUpdate{Ready: &ready}); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("absent player: got %v, want ErrPlayerNotFound", err)
	}
}

func TestShouldStart(t *testing.T) {
	g := newWaitingGame(t)
	ready := true
	blue := game.TeamBlue

	if g.ShouldStart() {
		t.Error("empty game should not start")
	}

	g.AddPlayer("p1", "alice", game.TeamRed)
	g.UpdatePlayer("p1", PlayerUpdate{Ready: &ready})
	if g.ShouldStart() {
		t.Error("one player should not start")
	}

	g.AddPlayer("p2", "bob", "")
	g.UpdatePlayer("p2", PlayerUpdate{Ready: &ready})
	if g.ShouldStart() {
		t.Error("teamless player should not start")
	}

	g.UpdatePlayer("p2", PlayerUpdate{Team: &blue})
	if !g.ShouldStart() {
		t.Error("full, ready and teamed lobby should start")
	}

	notReady := false
	g.UpdatePlayer("p1", PlayerUpdate{Ready: &notReady})
	if g.ShouldStart() {
		t.Error("unready player should block start")
	}
}
