package turn

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/KenanMathews/multiplayer-conway/internal/game"
	"github.com/KenanMathews/multiplayer-conway/internal/session"
)

const (
	patternSizeMin = 3
	patternSizeMax = 9
)

// Broadcaster receives session events as they happen. The gateway
// implements it; a no-op stands in until wiring is complete.
type Broadcaster interface {
	GameStarted(g *session.Game)
	GameUpdated(g *session.Game)
	PatternPlaced(g *session.Game, p game.Pattern, x, y int)
	GenerationCompleted(g *session.Game)
	SimulationFinished(g *session.Game)
	GameClosed(g *session.Game, reason string)
}

type noopBroadcaster struct{}

func (noopBroadcaster) GameStarted(*session.Game)                           {}
func (noopBroadcaster) GameUpdated(*session.Game)                           {}
func (noopBroadcaster) PatternPlaced(*session.Game, game.Pattern, int, int) {}
func (noopBroadcaster) GenerationCompleted(*session.Game)                   {}
func (noopBroadcaster) SimulationFinished(*session.Game)                    {}
func (noopBroadcaster) GameClosed(*session.Game, string)                    {}

// roundState is the per-session bookkeeping the coordinator keeps
// outside the broadcastable session state: who has acted this round,
// the uncommitted grid buffer, the turn timer and the simulation
// driver handle. All fields are accessed with the session lock held.
type roundState struct {
	completions map[string]struct{}
	skips       map[string]struct{}
	pending     game.Grid
	resolving   bool
	timer       *time.Timer
	simStop     chan struct{}
	simPaused   bool
}

func newRoundState() *roundState {
	return &roundState{
		completions: make(map[string]struct{}),
		skips:       make(map[string]struct{}),
	}
}

// Coordinator is the turn state machine. One instance serves every
// session; per-session serialization comes from the session locks.
type Coordinator struct {
	registry *session.Registry
	events   Broadcaster

	mu     sync.Mutex
	states map[string]*roundState

	simInterval time.Duration
}

func NewCoordinator(registry *session.Registry) *Coordinator {
	return &Coordinator{
		registry:    registry,
		events:      noopBroadcaster{},
		states:      make(map[string]*roundState),
		simInterval: 300 * time.Millisecond,
	}
}

func (c *Coordinator) SetEvents(b Broadcaster) {
	c.events = b
}

func (c *Coordinator) state(code string) *roundState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[code]
	if !ok {
		st = newRoundState()
		c.states[code] = st
	}
	return st
}

// Cleanup cancels any timers and drops the round bookkeeping for a
// session. Safe to call for unknown codes.
func (c *Coordinator) Cleanup(code string) {
	c.mu.Lock()
	st, ok := c.states[code]
	delete(c.states, code)
	c.mu.Unlock()
	if !ok {
		return
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	if st.simStop != nil {
		close(st.simStop)
		st.simStop = nil
	}
}

// Maintain periodically reaps abandoned sessions and releases their
// round bookkeeping. Every registry removal must end in Cleanup or the
// round state for the code would outlive the session. Runs until the
// process exits.
func (c *Coordinator) Maintain(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		c.reapExpired()
	}
}

func (c *Coordinator) reapExpired() {
	for _, code := range c.registry.CleanupExpired() {
		c.Cleanup(code)
	}
}

// TryStart moves a complete lobby into play: red's turn, generation 0.
// Called after every roster mutation; a no-op until the lobby is
// ready.
func (c *Coordinator) TryStart(code string) bool {
	g := c.registry.Get(code)
	if g == nil {
		return false
	}
	g.Lock()
	defer g.Unlock()

	if !g.ShouldStart() {
		return false
	}
	red := g.PlayerByTeam(game.TeamRed)
	if red == nil {
		log.Printf("game %s: ready to start but red player missing", code)
		return false
	}

	g.Status = session.StatusPlaying
	g.CurrentTurn = c.newTurn(g, red, 0)
	g.Touch()
	c.armTurnTimer(code, g)
	c.events.GameStarted(g)
	return true
}

// newTurn builds the turn descriptor for a player. On a pattern round
// the player must first reveal a drawn pattern size before placement
// opens.
func (c *Coordinator) newTurn(g *session.Game, p *session.Player, generation int) *session.Turn {
	t := &session.Turn{
		PlayerID:   p.ID,
		Team:       p.Team,
		Phase:      session.PhasePlacement,
		StartTime:  time.Now(),
		Generation: generation,
	}
	if generation%g.Settings.PatternRatio == 0 {
		t.Phase = session.PhasePatternSizeSelection
		t.PatternSize = patternSizeMin + rand.Intn(patternSizeMax-patternSizeMin+1)
	}

	st := c.state(g.ID)
	delete(st.skips, p.ID)
	return t
}

// armTurnTimer schedules the timeout skip for the current turn. The
// callback re-fetches the session and verifies the turn it was armed
// for is still running before acting.
func (c *Coordinator) armTurnTimer(code string, g *session.Game) {
	st := c.state(code)
	if st.timer != nil {
		st.timer.Stop()
	}
	turnStart := g.CurrentTurn.StartTime
	d := time.Duration(g.Settings.TurnTime) * time.Second
	st.timer = time.AfterFunc(d, func() {
		c.handleTurnTimeout(code, turnStart)
	})
}

func (c *Coordinator) handleTurnTimeout(code string, turnStart time.Time) {
	g := c.registry.Get(code)
	if g == nil {
		return
	}
	g.Lock()
	defer g.Unlock()

	if g.Status != session.StatusPlaying || g.CurrentTurn == nil {
		return
	}
	// A stale callback for an already-ended turn.
	if !g.CurrentTurn.StartTime.Equal(turnStart) {
		return
	}
	st := c.state(code)
	if st.resolving {
		return
	}

	cur := g.CurrentTurn
	p := g.PlayerByID(cur.PlayerID)
	if p == nil {
		log.Printf("game %s: timed-out player %s not on roster", code, cur.PlayerID)
		return
	}
	p.TimeoutWarnings++
	log.Printf("game %s: turn timeout for %s (warning %d)", code, p.Username, p.TimeoutWarnings)

	if g.Settings.TimeoutForfeitEnabled && p.TimeoutWarnings >= g.Settings.MaxTimeoutWarnings {
		c.finishLocked(code, g, g.Opponent(p.ID))
		return
	}

	st.resolving = true
	defer func() { st.resolving = false }()

	st.skips[p.ID] = struct{}{}
	c.endTurnLocked(code, g, p.ID)
}

// ConfirmPatternSize acknowledges the drawn pattern size and opens
// placement. Only the active player may confirm.
func (c *Coordinator) ConfirmPatternSize(code, playerID string) error {
	g := c.registry.Get(code)
	if g == nil {
		return session.ErrGameNotFound
	}
	g.Lock()
	defer g.Unlock()

	if g.Status != session.StatusPlaying || g.CurrentTurn == nil {
		return session.ErrInvalidState
	}
	if g.CurrentTurn.PlayerID != playerID {
		return session.ErrNotYourTurn
	}
	if g.CurrentTurn.Phase != session.PhasePatternSizeSelection {
		return session.ErrWrongPhase
	}

	g.CurrentTurn.Phase = session.PhasePlacement
	g.Touch()
	c.events.GameUpdated(g)
	return nil
}

// PlaceCell stamps a single cell onto the round's pending grid.
func (c *Coordinator) PlaceCell(code, playerID string, x, y int) error {
	g := c.registry.Get(code)
	if g == nil {
		return session.ErrGameNotFound
	}
	g.Lock()
	defer g.Unlock()

	if err := c.checkPlacement(g, playerID); err != nil {
		return err
	}
	st := c.state(code)
	grid := c.currentGrid(st, g)

	next, err := game.PlaceCell(grid, x, y, g.CurrentTurn.Team)
	if err != nil {
		return err
	}
	st.pending = next
	g.Grid = next
	g.Touch()
	c.events.GameUpdated(g)
	return nil
}

// PlacePattern stamps a pattern matrix onto the pending grid. The
// matrix must be exactly PatternSize x PatternSize for the current
// turn, and every 1-cell must land on an empty cell.
func (c *Coordinator) PlacePattern(code, playerID string, p game.Pattern, x, y int) error {
	g := c.registry.Get(code)
	if g == nil {
		return session.ErrGameNotFound
	}
	g.Lock()
	defer g.Unlock()

	if err := c.checkPlacement(g, playerID); err != nil {
		return err
	}
	cur := g.CurrentTurn
	if cur.PatternSize == 0 {
		return session.ErrWrongPhase
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if len(p) != cur.PatternSize || len(p[0]) != cur.PatternSize {
		return fmt.Errorf("%w: pattern must be %dx%d", game.ErrInvalidPattern, cur.PatternSize, cur.PatternSize)
	}

	st := c.state(code)
	grid := c.currentGrid(st, g)

	next, err := game.PlacePattern(grid, p, x, y, cur.Team)
	if err != nil {
		return err
	}
	st.pending = next
	g.Grid = next
	g.Touch()
	c.events.PatternPlaced(g, p, x, y)
	c.events.GameUpdated(g)
	return nil
}

func (c *Coordinator) checkPlacement(g *session.Game, playerID string) error {
	if g.Status != session.StatusPlaying || g.CurrentTurn == nil {
		return session.ErrInvalidState
	}
	if g.CurrentTurn.PlayerID != playerID {
		return session.ErrNotYourTurn
	}
	if g.CurrentTurn.Phase != session.PhasePlacement {
		return session.ErrWrongPhase
	}
	return nil
}

// currentGrid returns the round's pending buffer, falling back to the
// committed grid before the first placement of the round.
func (c *Coordinator) currentGrid(st *roundState, g *session.Game) game.Grid {
	if st.pending != nil {
		return st.pending
	}
	return g.Grid
}

// CompleteTurn ends the active player's turn. Once both players have
// completed or skipped, the round is scored.
func (c *Coordinator) CompleteTurn(code, playerID string) error {
	return c.finishTurn(code, playerID, false)
}

// SkipTurn is a voluntary pass; it counts toward round completion the
// same as a completed turn.
func (c *Coordinator) SkipTurn(code, playerID string) error {
	return c.finishTurn(code, playerID, true)
}

func (c *Coordinator) finishTurn(code, playerID string, skip bool) error {
	g := c.registry.Get(code)
	if g == nil {
		return session.ErrGameNotFound
	}
	g.Lock()
	defer g.Unlock()

	if g.Status != session.StatusPlaying || g.CurrentTurn == nil {
		return session.ErrInvalidState
	}
	if g.CurrentTurn.PlayerID != playerID {
		return session.ErrNotYourTurn
	}
	st := c.state(code)
	if st.resolving {
		// A timeout for this turn is already being applied.
		return nil
	}
	st.resolving = true
	defer func() { st.resolving = false }()

	if skip {
		st.skips[playerID] = struct{}{}
	} else {
		st.completions[playerID] = struct{}{}
	}
	c.endTurnLocked(code, g, playerID)
	return nil
}

// endTurnLocked runs the shared round logic after a completion, skip
// or timeout. With one acknowledgement the turn passes to the other
// player at the same generation; with both in, the pending grid is
// committed and evolved.
func (c *Coordinator) endTurnLocked(code string, g *session.Game, playerID string) {
	st := c.state(code)
	cur := g.CurrentTurn

	// Both players must act, one way or another, before the round is
	// scored.
	if len(st.completions)+len(st.skips) < 2 {
		next := g.Opponent(playerID)
		if next == nil {
			log.Printf("game %s: next player not found", code)
			return
		}
		g.CurrentTurn = c.newTurn(g, next, cur.Generation)
		// Carry the pending grid forward; the round is not scored yet.
		g.Touch()
		c.armTurnTimer(code, g)
		c.events.GameUpdated(g)
		return
	}

	grid := c.currentGrid(st, g)
	next := game.NextGeneration(grid)
	red, blue := game.Territory(next)

	g.Grid = next
	g.RedTerritory = red
	g.BlueTerritory = blue
	c.resetRoundLocked(st)
	g.Touch()

	if c.thresholdCrossed(g) {
		c.enterSimulationLocked(code, g)
		c.events.GenerationCompleted(g)
		c.events.GameUpdated(g)
		return
	}

	redPlayer := g.PlayerByTeam(game.TeamRed)
	if redPlayer == nil {
		log.Printf("game %s: red player missing at round end", code)
		return
	}
	g.CurrentTurn = c.newTurn(g, redPlayer, cur.Generation+1)
	c.armTurnTimer(code, g)
	c.events.GenerationCompleted(g)
	c.events.GameUpdated(g)
}

func (c *Coordinator) resetRoundLocked(st *roundState) {
	st.completions = make(map[string]struct{})
	st.skips = make(map[string]struct{})
	st.pending = nil
}

func (c *Coordinator) thresholdCrossed(g *session.Game) bool {
	if !g.Settings.TerritoryThresholdEnabled {
		return false
	}
	total := g.Settings.GridSize * g.Settings.GridSize
	threshold := float64(g.Settings.TerritoryThreshold)
	redPct := float64(g.RedTerritory) / float64(total) * 100
	bluePct := float64(g.BlueTerritory) / float64(total) * 100
	return redPct >= threshold || bluePct >= threshold
}

// finishLocked ends the game immediately with the given winner (nil
// for a draw) and stops all per-session machinery.
func (c *Coordinator) finishLocked(code string, g *session.Game, winner *session.Player) {
	st := c.state(code)
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	c.stopSimulationLocked(st)

	g.Status = session.StatusFinished
	g.Winner = winner
	if g.CurrentTurn != nil {
		g.CurrentTurn.RemainingGenerations = 0
	}
	g.Touch()
	c.events.SimulationFinished(g)
	c.events.GameUpdated(g)
}

// UpdateThreshold lets the host tune the victory threshold while the
// lobby is still waiting.
func (c *Coordinator) UpdateThreshold(code, playerID string, value int) error {
	g := c.registry.Get(code)
	if g == nil {
		return session.ErrGameNotFound
	}
	g.Lock()
	defer g.Unlock()

	if g.Status != session.StatusWaiting {
		return session.ErrInvalidState
	}
	p := g.PlayerByID(playerID)
	if p == nil {
		return session.ErrPlayerNotFound
	}
	if !p.IsHost {
		return session.ErrNotHost
	}
	if value < 1 || value > 100 {
		return fmt.Errorf("threshold must be between 1 and 100")
	}
	g.Settings.TerritoryThreshold = value
	g.Touch()
	c.events.GameUpdated(g)
	return nil
}

// PlayerLeft removes a player and tears the session down when it can
// no longer continue. Mid-game departures close the game for the
// remaining player.
func (c *Coordinator) PlayerLeft(code, playerID string) {
	g := c.registry.Get(code)
	if g == nil {
		// The session may have been reaped between the disconnect and
		// this call; the bookkeeping still has to go.
		c.Cleanup(code)
		return
	}
	g.Lock()

	removed := g.RemovePlayer(playerID)
	if removed == nil {
		g.Unlock()
		return
	}

	if len(g.Players) == 0 {
		g.Unlock()
		c.registry.Remove(code)
		c.Cleanup(code)
		return
	}

	inProgress := g.Status == session.StatusPlaying || g.Status == session.StatusSimulating
	if inProgress && len(g.Players) < g.Settings.MinPlayersToStart {
		reason := fmt.Sprintf("%s left the game", removed.Username)
		c.events.GameClosed(g, reason)
		g.Unlock()
		c.registry.Remove(code)
		c.Cleanup(code)
		return
	}

	g.Touch()
	c.events.GameUpdated(g)
	g.Unlock()
}
