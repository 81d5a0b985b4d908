package turn

import (
	"errors"
	"testing"
	"time"

	"github.com/KenanMathews/multiplayer-conway/internal/game"
	"github.com/KenanMathews/multiplayer-conway/internal/session"
)

const (
	testCode = "TEST01"
	redID    = "p-red"
	blueID   = "p-blue"
)

// startedGame builds a two-player game that has auto-started into
// red's first turn.
func startedGame(t *testing.T, settings session.Settings) (*Coordinator, *session.Game) {
	t.Helper()

	reg := session.NewRegistry(10)
	c := NewCoordinator(reg)
	// Keep the driver's ticker out of the way unless a test wants it.
	c.simInterval = time.Hour

	g, err := reg.Create(testCode, settings)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ready := true
	g.Lock()
	if _, err := g.AddPlayer(redID, "Ruby", game.TeamRed); err != nil {
		t.Fatalf("AddPlayer red: %v", err)
	}
	if _, err := g.AddPlayer(blueID, "Blaise", game.TeamBlue); err != nil {
		t.Fatalf("AddPlayer blue: %v", err)
	}
	g.UpdatePlayer(redID, session.PlayerUpdate{Ready: &ready})
	g.UpdatePlayer(blueID, session.PlayerUpdate{Ready: &ready})
	g.Unlock()

	if !c.TryStart(testCode) {
		t.Fatal("lobby should auto-start")
	}
	t.Cleanup(func() { c.Cleanup(testCode) })
	return c, g
}

// openPlacement moves the current turn past pattern-size selection
// when the round drew a pattern.
func openPlacement(t *testing.T, c *Coordinator, g *session.Game) {
	t.Helper()
	g.Lock()
	phase := g.CurrentTurn.Phase
	playerID := g.CurrentTurn.PlayerID
	g.Unlock()
	if phase == session.PhasePatternSizeSelection {
		if err := c.ConfirmPatternSize(testCode, playerID); err != nil {
			t.Fatalf("ConfirmPatternSize: %v", err)
		}
	}
}

func plainSettings() session.Settings {
	s := session.DefaultSettings()
	s.TerritoryThresholdEnabled = false
	return s
}

func TestAutoStart(t *testing.T) {
	_, g := startedGame(t, plainSettings())

	g.Lock()
	defer g.Unlock()
	if g.Status != session.StatusPlaying {
		t.Fatalf("status = %s, want playing", g.Status)
	}
	cur := g.CurrentTurn
	if cur == nil {
		t.Fatal("no current turn after start")
	}
	if cur.Team != game.TeamRed || cur.PlayerID != redID {
		t.Errorf("first turn belongs to %s/%s, want red", cur.Team, cur.PlayerID)
	}
	if cur.Generation != 0 {
		t.Errorf("first generation = %d, want 0", cur.Generation)
	}
	// Every round is a pattern round under the default ratio.
	if cur.Phase != session.PhasePatternSizeSelection {
		t.Errorf("phase = %s, want pattern_size_selection", cur.Phase)
	}
	if cur.PatternSize < 3 || cur.PatternSize > 9 {
		t.Errorf("pattern size = %d, want 3..9", cur.PatternSize)
	}
}

func TestConfirmPatternSizeValidation(t *testing.T) {
	c, _ := startedGame(t, plainSettings())

	if err := c.ConfirmPatternSize(testCode, blueID); !errors.Is(err, session.ErrNotYourTurn) {
		t.Errorf("wrong player confirm: got %v, want ErrNotYourTurn", err)
	}
	if err := c.ConfirmPatternSize(testCode, redID); err != nil {
		t.Fatalf("ConfirmPatternSize: %v", err)
	}
	// Confirming twice is a phase mismatch.
	if err := c.ConfirmPatternSize(testCode, redID); !errors.Is(err, session.ErrWrongPhase) {
		t.Errorf("double confirm: got %v, want ErrWrongPhase", err)
	}
}

func TestPlacementValidation(t *testing.T) {
	c, g := startedGame(t, plainSettings())

	// Placement is closed until the pattern size is revealed.
	if err := c.PlaceCell(testCode, redID, 0, 0); !errors.Is(err, session.ErrWrongPhase) {
		t.Errorf("placement before reveal: got %v, want ErrWrongPhase", err)
	}
	openPlacement(t, c, g)

	if err := c.PlaceCell(testCode, blueID, 0, 0); !errors.Is(err, session.ErrNotYourTurn) {
		t.Errorf("out-of-turn placement: got %v, want ErrNotYourTurn", err)
	}
	if err := c.PlaceCell(testCode, redID, -1, 0); !errors.Is(err, game.ErrOutOfBounds) {
		t.Errorf("out-of-bounds placement: got %v, want ErrOutOfBounds", err)
	}
	if err := c.PlaceCell(testCode, redID, 3, 3); err != nil {
		t.Fatalf("PlaceCell: %v", err)
	}
	if err := c.PlaceCell(testCode, redID, 3, 3); !errors.Is(err, game.ErrCellOccupied) {
		t.Errorf("occupied placement: got %v, want ErrCellOccupied", err)
	}

	g.Lock()
	if g.Grid[3][3] != game.Red {
		t.Error("placed cell missing from broadcast grid")
	}
	g.Unlock()
}

func TestPatternSizeEnforced(t *testing.T) {
	c, g := startedGame(t, plainSettings())
	openPlacement(t, c, g)

	g.Lock()
	size := g.CurrentTurn.PatternSize
	g.Unlock()

	// A well-formed pattern of the wrong dimensions is rejected even
	// though it would fit on the empty board.
	wrong := make(game.Pattern, size+1)
	for i := range wrong {
		wrong[i] = make([]int, size+1)
	}
	wrong[0][0] = 1
	if err := c.PlacePattern(testCode, redID, wrong, 0, 0); !errors.Is(err, game.ErrInvalidPattern) {
		t.Errorf("wrong-size pattern: got %v, want ErrInvalidPattern", err)
	}

	right := make(game.Pattern, size)
	for i := range right {
		right[i] = make([]int, size)
	}
	right[0][0] = 1
	right[size-1][size-1] = 1
	if err := c.PlacePattern(testCode, redID, right, 0, 0); err != nil {
		t.Fatalf("PlacePattern: %v", err)
	}

	g.Lock()
	if g.Grid[0][0] != game.Red || g.Grid[size-1][size-1] != game.Red {
		t.Error("pattern cells not placed")
	}
	g.Unlock()
}

func TestRoundNeedsBothAcknowledgements(t *testing.T) {
	c, g := startedGame(t, plainSettings())
	openPlacement(t, c, g)

	// Red completes: turn switches, generation does not advance.
	if err := c.CompleteTurn(testCode, redID); err != nil {
		t.Fatalf("CompleteTurn: %v", err)
	}
	g.Lock()
	cur := g.CurrentTurn
	if cur.PlayerID != blueID || cur.Team != game.TeamBlue {
		t.Fatalf("turn did not pass to blue: %+v", cur)
	}
	if cur.Generation != 0 {
		t.Errorf("generation advanced early: %d", cur.Generation)
	}
	g.Unlock()

	// Blue does nothing: still blue's turn, still generation 0.
	g.Lock()
	if g.CurrentTurn.Generation != 0 {
		t.Error("round resolved without second acknowledgement")
	}
	g.Unlock()

	// Blue skips: round resolves and the new round is red's.
	openPlacement(t, c, g)
	if err := c.SkipTurn(testCode, blueID); err != nil {
		t.Fatalf("SkipTurn: %v", err)
	}
	g.Lock()
	cur = g.CurrentTurn
	if cur.Generation != 1 {
		t.Errorf("generation = %d after complete+skip, want 1", cur.Generation)
	}
	if cur.Team != game.TeamRed {
		t.Errorf("new round should open with red, got %s", cur.Team)
	}
	g.Unlock()
}

func TestRoundEvolvesCommittedGrid(t *testing.T) {
	c, g := startedGame(t, plainSettings())
	openPlacement(t, c, g)

	// Red lays three cells of a blinker.
	for _, p := range [][2]int{{4, 5}, {5, 5}, {6, 5}} {
		if err := c.PlaceCell(testCode, redID, p[0], p[1]); err != nil {
			t.Fatalf("PlaceCell: %v", err)
		}
	}
	if err := c.CompleteTurn(testCode, redID); err != nil {
		t.Fatalf("CompleteTurn: %v", err)
	}
	openPlacement(t, c, g)
	if err := c.CompleteTurn(testCode, blueID); err != nil {
		t.Fatalf("CompleteTurn: %v", err)
	}

	g.Lock()
	defer g.Unlock()
	// The blinker rotated: center survives, arms moved vertical.
	if g.Grid[5][5] != game.Red || g.Grid[4][5] != game.Red || g.Grid[6][5] != game.Red {
		t.Error("expected vertical blinker after evolution")
	}
	if g.Grid[5][4] != game.Empty || g.Grid[5][6] != game.Empty {
		t.Error("horizontal arms should have died")
	}
	if g.RedTerritory != 3 || g.BlueTerritory != 0 {
		t.Errorf("territory = (%d,%d), want (3,0)", g.RedTerritory, g.BlueTerritory)
	}
}

func TestEndToEndRound(t *testing.T) {
	// Create, join, team up, ready, one full round: the turn makes a
	// red -> blue -> red cycle with one evolution in between.
	c, g := startedGame(t, plainSettings())

	openPlacement(t, c, g)
	if err := c.PlaceCell(testCode, redID, 2, 2); err != nil {
		t.Fatalf("red PlaceCell: %v", err)
	}
	if err := c.CompleteTurn(testCode, redID); err != nil {
		t.Fatalf("red CompleteTurn: %v", err)
	}

	g.Lock()
	if g.CurrentTurn.PlayerID != blueID || g.CurrentTurn.Generation != 0 {
		t.Fatalf("after red: %+v", g.CurrentTurn)
	}
	g.Unlock()

	openPlacement(t, c, g)
	if err := c.PlaceCell(testCode, blueID, 10, 10); err != nil {
		t.Fatalf("blue PlaceCell: %v", err)
	}
	if err := c.CompleteTurn(testCode, blueID); err != nil {
		t.Fatalf("blue CompleteTurn: %v", err)
	}

	g.Lock()
	defer g.Unlock()
	if g.CurrentTurn.PlayerID != redID {
		t.Errorf("new round should return to red, got %s", g.CurrentTurn.PlayerID)
	}
	if g.CurrentTurn.Generation != 1 {
		t.Errorf("generation = %d, want 1", g.CurrentTurn.Generation)
	}
	if g.Status != session.StatusPlaying {
		t.Errorf("status = %s, want playing", g.Status)
	}
	// Both lone cells died in the evolution.
	if g.RedTerritory != 0 || g.BlueTerritory != 0 {
		t.Errorf("territory = (%d,%d), want (0,0)", g.RedTerritory, g.BlueTerritory)
	}
}

func TestTimeoutSkip(t *testing.T) {
	c, g := startedGame(t, plainSettings())

	g.Lock()
	turnStart := g.CurrentTurn.StartTime
	g.Unlock()

	c.handleTurnTimeout(testCode, turnStart)

	g.Lock()
	defer g.Unlock()
	if g.CurrentTurn.PlayerID != blueID {
		t.Errorf("timeout should pass the turn to blue, got %s", g.CurrentTurn.PlayerID)
	}
	if p := g.PlayerByID(redID); p.TimeoutWarnings != 1 {
		t.Errorf("timeout warnings = %d, want 1", p.TimeoutWarnings)
	}
}

func TestStaleTimeoutIsDropped(t *testing.T) {
	c, g := startedGame(t, plainSettings())

	g.Lock()
	staleStart := g.CurrentTurn.StartTime.Add(-time.Minute)
	g.Unlock()

	c.handleTurnTimeout(testCode, staleStart)

	g.Lock()
	defer g.Unlock()
	if g.CurrentTurn.PlayerID != redID {
		t.Error("stale timeout callback must not end the current turn")
	}
	if p := g.PlayerByID(redID); p.TimeoutWarnings != 0 {
		t.Errorf("stale timeout counted a warning: %d", p.TimeoutWarnings)
	}
}

func TestTimeoutForfeitPolicy(t *testing.T) {
	s := plainSettings()
	s.TimeoutForfeitEnabled = true
	s.MaxTimeoutWarnings = 1
	c, g := startedGame(t, s)

	g.Lock()
	turnStart := g.CurrentTurn.StartTime
	g.Unlock()

	c.handleTurnTimeout(testCode, turnStart)

	g.Lock()
	defer g.Unlock()
	if g.Status != session.StatusFinished {
		t.Fatalf("status = %s, want finished", g.Status)
	}
	if g.Winner == nil || g.Winner.ID != blueID {
		t.Errorf("winner = %+v, want blue", g.Winner)
	}
}

func TestUpdateThreshold(t *testing.T) {
	reg := session.NewRegistry(10)
	c := NewCoordinator(reg)
	g, _ := reg.Create(testCode, session.DefaultSettings())
	g.Lock()
	g.AddPlayer(redID, "Ruby", game.TeamRed)
	g.AddPlayer(blueID, "Blaise", game.TeamBlue)
	g.Unlock()

	if err := c.UpdateThreshold(testCode, blueID, 40); !errors.Is(err, session.ErrNotHost) {
		t.Errorf("non-host update: got %v, want ErrNotHost", err)
	}
	if err := c.UpdateThreshold(testCode, redID, 140); err == nil {
		t.Error("out-of-range threshold should be rejected")
	}
	if err := c.UpdateThreshold(testCode, redID, 40); err != nil {
		t.Fatalf("UpdateThreshold: %v", err)
	}

	g.Lock()
	if g.Settings.TerritoryThreshold != 40 {
		t.Errorf("threshold = %d, want 40", g.Settings.TerritoryThreshold)
	}
	g.Unlock()
}

func TestPlayerLeftClosesRunningGame(t *testing.T) {
	c, g := startedGame(t, plainSettings())

	c.PlayerLeft(testCode, blueID)

	if c.registry.Get(testCode) != nil {
		t.Error("session should be destroyed when a player leaves mid-game")
	}
	_ = g
}

func TestPlayerLeftInLobbyKeepsGame(t *testing.T) {
	reg := session.NewRegistry(10)
	c := NewCoordinator(reg)
	g, _ := reg.Create(testCode, session.DefaultSettings())
	g.Lock()
	g.AddPlayer(redID, "Ruby", game.TeamRed)
	g.AddPlayer(blueID, "Blaise", game.TeamBlue)
	g.Unlock()

	c.PlayerLeft(testCode, redID)

	got := reg.Get(testCode)
	if got == nil {
		t.Fatal("waiting game should survive a departure")
	}
	got.Lock()
	defer got.Unlock()
	if len(got.Players) != 1 || !got.Players[0].IsHost {
		t.Errorf("host not reassigned: %+v", got.Players)
	}
}

func TestReapReleasesRoundState(t *testing.T) {
	c, g := startedGame(t, plainSettings())
	openPlacement(t, c, g)
	if err := c.CompleteTurn(testCode, redID); err != nil {
		t.Fatalf("CompleteTurn: %v", err)
	}

	// Finish and age the session so the sweep reaps it with a
	// half-resolved round still on the books.
	g.Lock()
	g.Status = session.StatusFinished
	g.UpdatedAt = time.Now().Add(-time.Hour)
	g.Unlock()

	c.reapExpired()

	if c.registry.Get(testCode) != nil {
		t.Fatal("expired game not reaped")
	}
	c.mu.Lock()
	_, held := c.states[testCode]
	c.mu.Unlock()
	if held {
		t.Fatal("round state survived the reap")
	}

	// A game recreated under the reused code starts a fresh round:
	// one acknowledgement alone must not score it.
	g2, err := c.registry.Create(testCode, plainSettings())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ready := true
	g2.Lock()
	g2.AddPlayer(redID, "Ruby", game.TeamRed)
	g2.AddPlayer(blueID, "Blaise", game.TeamBlue)
	g2.UpdatePlayer(redID, session.PlayerUpdate{Ready: &ready})
	g2.UpdatePlayer(blueID, session.PlayerUpdate{Ready: &ready})
	g2.Unlock()
	if !c.TryStart(testCode) {
		t.Fatal("reused code should start a fresh lobby")
	}
	openPlacement(t, c, g2)
	if err := c.CompleteTurn(testCode, redID); err != nil {
		t.Fatalf("CompleteTurn: %v", err)
	}

	g2.Lock()
	defer g2.Unlock()
	if g2.CurrentTurn.Generation != 0 {
		t.Errorf("generation = %d after a single acknowledgement, want 0", g2.CurrentTurn.Generation)
	}
	if g2.CurrentTurn.PlayerID != blueID {
		t.Errorf("turn should pass to blue, got %s", g2.CurrentTurn.PlayerID)
	}
}

func TestPlayerLeftOnReapedGameReleasesState(t *testing.T) {
	c, _ := startedGame(t, plainSettings())
	c.registry.Remove(testCode)

	c.PlayerLeft(testCode, redID)

	c.mu.Lock()
	_, held := c.states[testCode]
	c.mu.Unlock()
	if held {
		t.Error("round state survived a departure from a removed game")
	}
}

func TestTimeoutAfterSessionRemoved(t *testing.T) {
	c, g := startedGame(t, plainSettings())
	g.Lock()
	turnStart := g.CurrentTurn.StartTime
	g.Unlock()

	c.registry.Remove(testCode)
	c.Cleanup(testCode)

	c.handleTurnTimeout(testCode, turnStart)

	c.mu.Lock()
	_, held := c.states[testCode]
	c.mu.Unlock()
	if held {
		t.Error("timeout callback resurrected state for a destroyed session")
	}
}

func TestCompletionDuringResolutionIsDropped(t *testing.T) {
	c, g := startedGame(t, plainSettings())
	openPlacement(t, c, g)

	st := c.state(testCode)
	g.Lock()
	st.resolving = true
	g.Unlock()

	if err := c.CompleteTurn(testCode, redID); err != nil {
		t.Fatalf("CompleteTurn: %v", err)
	}

	g.Lock()
	defer g.Unlock()
	if g.CurrentTurn.PlayerID != redID {
		t.Error("completion during resolution must not move the turn")
	}
	if len(st.completions) != 0 {
		t.Error("completion recorded while the turn was resolving")
	}
	st.resolving = false
}

func TestTimeoutDuringResolutionIsDropped(t *testing.T) {
	c, g := startedGame(t, plainSettings())
	g.Lock()
	turnStart := g.CurrentTurn.StartTime
	g.Unlock()

	st := c.state(testCode)
	g.Lock()
	st.resolving = true
	g.Unlock()

	c.handleTurnTimeout(testCode, turnStart)

	g.Lock()
	defer g.Unlock()
	if p := g.PlayerByID(redID); p.TimeoutWarnings != 0 {
		t.Errorf("warnings = %d, want 0 while resolving", p.TimeoutWarnings)
	}
	if g.CurrentTurn.PlayerID != redID {
		t.Error("timeout during resolution must not move the turn")
	}
	st.resolving = false
}

func TestPlayerLeftLastDestroysGame(t *testing.T) {
	reg := session.NewRegistry(10)
	c := NewCoordinator(reg)
	g, _ := reg.Create(testCode, session.DefaultSettings())
	g.Lock()
	g.AddPlayer(redID, "Ruby", game.TeamRed)
	g.Unlock()

	c.PlayerLeft(testCode, redID)

	if reg.Get(testCode) != nil {
		t.Error("empty session should be destroyed")
	}
}
