package turn

import (
	"log"
	"time"

	"github.com/KenanMathews/multiplayer-conway/internal/game"
	"github.com/KenanMathews/multiplayer-conway/internal/session"
)

// simulationBudget caps the autonomous run so a skip-ahead drain is
// always finite.
const simulationBudget = 100

// enterSimulationLocked switches a session into the autonomous phase
// after a threshold crossing. The turn that just completed is
// snapshotted so alternation can be restored if play resumes.
func (c *Coordinator) enterSimulationLocked(code string, g *session.Game) {
	st := c.state(code)
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}

	snapshot := *g.CurrentTurn
	g.PreviousTurn = &snapshot
	g.Status = session.StatusSimulating
	g.CurrentTurn = &session.Turn{
		Phase:                session.PhaseSimulation,
		StartTime:            time.Now(),
		Generation:           snapshot.Generation,
		RemainingGenerations: simulationBudget,
	}

	log.Printf("game %s: territory threshold crossed, simulating %d generations", code, simulationBudget)
	st.simPaused = false
	st.simStop = make(chan struct{})
	go c.runSimulation(code, st.simStop)
}

func (c *Coordinator) runSimulation(code string, stop chan struct{}) {
	ticker := time.NewTicker(c.simInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.stepSimulation(code) {
				return
			}
		}
	}
}

// stepSimulation advances one generation. Returns true once the loop
// should stop, either because the run finished or the session went
// away underneath it.
func (c *Coordinator) stepSimulation(code string) bool {
	g := c.registry.Get(code)
	if g == nil {
		return true
	}
	g.Lock()
	defer g.Unlock()

	if g.Status != session.StatusSimulating || g.CurrentTurn == nil {
		return true
	}
	// A tick can already be in flight when the driver is paused; the
	// select may also pick the ticker over the closed stop channel.
	if c.state(code).simPaused {
		return true
	}
	if done := c.advanceSimulationLocked(code, g); done {
		c.finalizeSimulationLocked(code, g)
		return true
	}
	c.events.GenerationCompleted(g)
	return false
}

// advanceSimulationLocked evolves one generation and reports whether
// the run is over: budget exhausted or a team eliminated.
func (c *Coordinator) advanceSimulationLocked(code string, g *session.Game) bool {
	cur := g.CurrentTurn
	if cur.RemainingGenerations <= 0 {
		return true
	}

	next := game.NextGeneration(g.Grid)
	red, blue := game.Territory(next)
	g.Grid = next
	g.RedTerritory = red
	g.BlueTerritory = blue
	cur.RemainingGenerations--
	cur.Generation++
	g.Touch()

	return cur.RemainingGenerations <= 0 || red == 0 || blue == 0
}

// finalizeSimulationLocked resolves the winner: elimination beats
// everything, otherwise strict territory majority, otherwise a draw.
func (c *Coordinator) finalizeSimulationLocked(code string, g *session.Game) {
	red, blue := game.Territory(g.Grid)
	g.RedTerritory = red
	g.BlueTerritory = blue

	var winner *session.Player
	switch {
	case red == 0 && blue > 0:
		winner = g.PlayerByTeam(game.TeamBlue)
	case blue == 0 && red > 0:
		winner = g.PlayerByTeam(game.TeamRed)
	case red > blue:
		winner = g.PlayerByTeam(game.TeamRed)
	case blue > red:
		winner = g.PlayerByTeam(game.TeamBlue)
	}

	log.Printf("game %s: simulation finished, red=%d blue=%d", code, red, blue)
	c.finishLocked(code, g, winner)
}

// PauseSimulation stops the driver's ticker without losing state.
func (c *Coordinator) PauseSimulation(code, playerID string) error {
	g := c.registry.Get(code)
	if g == nil {
		return session.ErrGameNotFound
	}
	g.Lock()
	defer g.Unlock()

	if g.Status != session.StatusSimulating {
		return session.ErrInvalidState
	}
	if g.PlayerByID(playerID) == nil {
		return session.ErrPlayerNotFound
	}
	st := c.state(code)
	c.stopSimulationLocked(st)
	st.simPaused = true
	g.Touch()
	c.events.GameUpdated(g)
	return nil
}

// ResumeSimulation restarts a paused driver.
func (c *Coordinator) ResumeSimulation(code, playerID string) error {
	g := c.registry.Get(code)
	if g == nil {
		return session.ErrGameNotFound
	}
	g.Lock()
	defer g.Unlock()

	if g.Status != session.StatusSimulating {
		return session.ErrInvalidState
	}
	if g.PlayerByID(playerID) == nil {
		return session.ErrPlayerNotFound
	}
	st := c.state(code)
	if !st.simPaused {
		return nil
	}
	st.simPaused = false
	st.simStop = make(chan struct{})
	go c.runSimulation(code, st.simStop)
	g.Touch()
	c.events.GameUpdated(g)
	return nil
}

// SkipSimulation synchronously drains the remaining generation budget
// and finalizes. Bounded by the budget, so always finite.
func (c *Coordinator) SkipSimulation(code, playerID string) error {
	g := c.registry.Get(code)
	if g == nil {
		return session.ErrGameNotFound
	}
	g.Lock()
	defer g.Unlock()

	if g.Status != session.StatusSimulating || g.CurrentTurn == nil {
		return session.ErrInvalidState
	}
	if g.PlayerByID(playerID) == nil {
		return session.ErrPlayerNotFound
	}
	st := c.state(code)
	c.stopSimulationLocked(st)

	for !c.advanceSimulationLocked(code, g) {
	}
	c.events.GenerationCompleted(g)
	c.finalizeSimulationLocked(code, g)
	return nil
}

// ResumeGameplay hands control back to the players after an
// interrupted simulation: the team that did not act last starts the
// next round. Exposed for driver exit policies that do not always
// finish the game; the threshold-victory path never takes it.
func (c *Coordinator) ResumeGameplay(code string) error {
	g := c.registry.Get(code)
	if g == nil {
		return session.ErrGameNotFound
	}
	g.Lock()
	defer g.Unlock()

	if g.Status != session.StatusSimulating || g.PreviousTurn == nil {
		return session.ErrInvalidState
	}
	st := c.state(code)
	c.stopSimulationLocked(st)
	c.resetRoundLocked(st)

	next := g.PlayerByTeam(g.PreviousTurn.Team.Opponent())
	if next == nil {
		log.Printf("game %s: cannot resume, opposing player missing", code)
		return session.ErrPlayerNotFound
	}

	g.Status = session.StatusPlaying
	g.CurrentTurn = c.newTurn(g, next, g.PreviousTurn.Generation+1)
	g.Touch()
	c.armTurnTimer(code, g)
	c.events.GameUpdated(g)
	return nil
}

func (c *Coordinator) stopSimulationLocked(st *roundState) {
	if st.simStop != nil {
		close(st.simStop)
		st.simStop = nil
	}
}
