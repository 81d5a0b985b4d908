package session

import (
	"sync"
	"time"

	"github.com/KenanMathews/multiplayer-conway/internal/game"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusPlaying    Status = "playing"
	StatusSimulating Status = "simulating"
	StatusFinished   Status = "finished"
)

type Phase string

const (
	PhasePlacement            Phase = "placement"
	PhasePatternSizeSelection Phase = "pattern_size_selection"
	PhaseSimulation           Phase = "simulation"
)

// Player is one participant's roster entry. The ID is the transport
// connection id and does not survive a reconnect.
type Player struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Team            game.Team `json:"team,omitempty"`
	IsHost          bool      `json:"isHost"`
	Ready           bool      `json:"ready"`
	TimeoutWarnings int       `json:"timeoutWarnings"`
}

// Turn describes whose turn it is and what they may do. During
// autonomous simulation PlayerID and Team are empty and
// RemainingGenerations counts down the driver's budget.
type Turn struct {
	PlayerID             string    `json:"playerId,omitempty"`
	Team                 game.Team `json:"team,omitempty"`
	Phase                Phase     `json:"phase"`
	StartTime            time.Time `json:"startTime"`
	Generation           int       `json:"generation"`
	PatternSize          int       `json:"patternSize,omitempty"`
	RemainingGenerations int       `json:"remainingGenerations,omitempty"`
}

// Game is one session. All mutation happens with the session lock
// held; the grid itself is replaced wholesale, never edited in place.
type Game struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	Settings      Settings  `json:"settings"`
	Grid          game.Grid `json:"grid"`
	Players       []*Player `json:"players"`
	CurrentTurn   *Turn     `json:"currentTurn,omitempty"`
	PreviousTurn  *Turn     `json:"previousTurn,omitempty"`
	RedTerritory  int       `json:"redTerritory"`
	BlueTerritory int       `json:"blueTerritory"`
	Winner        *Player   `json:"winner,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	mu sync.Mutex
}

func (g *Game) Lock()   { g.mu.Lock() }
func (g *Game) Unlock() { g.mu.Unlock() }

// Touch records mutation time for idle-session cleanup.
func (g *Game) Touch() { g.UpdatedAt = time.Now() }

func (g *Game) IsFull() bool {
	return len(g.Players) >= g.Settings.MaxPlayers
}

func (g *Game) CanJoin() bool {
	return g.Status == StatusWaiting && !g.IsFull()
}

func (g *Game) PlayerByID(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) PlayerByTeam(team game.Team) *Player {
	for _, p := range g.Players {
		if p.Team == team {
			return p
		}
	}
	return nil
}

// Opponent returns the other roster entry, or nil for a lone player.
func (g *Game) Opponent(id string) *Player {
	for _, p := range g.Players {
		if p.ID != id {
			return p
		}
	}
	return nil
}

func (g *Game) Host() *Player {
	for _, p := range g.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// ShouldStart reports whether the lobby is complete: full roster,
// everyone ready, and each team held by exactly one player.
func (g *Game) ShouldStart() bool {
	if g.Status != StatusWaiting {
		return false
	}
	if len(g.Players) < g.Settings.MinPlayersToStart {
		return false
	}
	red, blue := 0, 0
	for _, p := range g.Players {
		if !p.Ready || !p.Team.Valid() {
			return false
		}
		if p.Team == game.TeamRed {
			red++
		} else {
			blue++
		}
	}
	return red == 1 && blue == 1
}
