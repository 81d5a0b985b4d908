package handler

import (
	"github.com/KenanMathews/multiplayer-conway/internal/game"
	"github.com/KenanMathews/multiplayer-conway/internal/player"
	"github.com/KenanMathews/multiplayer-conway/internal/session"
)

// turn.Broadcaster implementation. All methods are invoked with the
// session lock held by the caller, so they read session state without
// locking it again.

func (h *Gateway) GameStarted(g *session.Game) {
	h.broadcast(g, gameEvent{Type: "game_started", Game: g})
}

func (h *Gateway) GameUpdated(g *session.Game) {
	h.broadcast(g, gameEvent{Type: "game_updated", Game: g})
}

func (h *Gateway) PatternPlaced(g *session.Game, p game.Pattern, x, y int) {
	h.broadcast(g, patternEvent{Type: "pattern_placed", Pattern: p, X: x, Y: y, Grid: g.Grid})
}

func (h *Gateway) GenerationCompleted(g *session.Game) {
	ev := generationEvent{
		Type:          "generation_completed",
		Grid:          g.Grid,
		RedTerritory:  g.RedTerritory,
		BlueTerritory: g.BlueTerritory,
	}
	if g.Status == session.StatusSimulating && g.CurrentTurn != nil {
		ev.RemainingGenerations = g.CurrentTurn.RemainingGenerations
	}
	h.broadcast(g, ev)
}

func (h *Gateway) SimulationFinished(g *session.Game) {
	h.broadcast(g, finishedEvent{
		Type:          "simulation_finished",
		Winner:        g.Winner,
		Grid:          g.Grid,
		RedTerritory:  g.RedTerritory,
		BlueTerritory: g.BlueTerritory,
	})
}

func (h *Gateway) GameClosed(g *session.Game, reason string) {
	h.broadcast(g, closedEvent{Type: "game_closed", Reason: reason})
	for _, c := range h.clientsOf(g) {
		c.SetGameID("")
	}
}

func (h *Gateway) broadcast(g *session.Game, v interface{}) {
	for _, c := range h.clientsOf(g) {
		if err := c.SendJSON(v); err != nil {
			// Transport failure surfaces in the read loop; nothing to
			// do here.
			continue
		}
	}
}

func (h *Gateway) clientsOf(g *session.Game) []*player.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*player.Client, 0, len(g.Players))
	for _, p := range g.Players {
		if c, ok := h.clients[p.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}
