package handler

import (
	"github.com/KenanMathews/multiplayer-conway/internal/game"
	"github.com/KenanMathews/multiplayer-conway/internal/session"
)

// Message is the inbound client command envelope. Unused fields stay
// at their zero value for any given command type.
type Message struct {
	Type     string            `json:"type"`
	GameID   string            `json:"gameId,omitempty"`
	Username string            `json:"username,omitempty"`
	Team     string            `json:"team,omitempty"`
	Ready    bool              `json:"ready,omitempty"`
	X        int               `json:"x"`
	Y        int               `json:"y"`
	Pattern  game.Pattern      `json:"pattern,omitempty"`
	Settings *session.Settings `json:"settings,omitempty"`
	Value    int               `json:"value,omitempty"`
}

// Inbound command types.
const (
	cmdCreateGame         = "create_game"
	cmdJoinGame           = "join_game"
	cmdLeaveGame          = "leave_game"
	cmdSelectTeam         = "select_team"
	cmdPlayerReady        = "player_ready"
	cmdPlaceCell          = "place_cell"
	cmdPlacePattern       = "place_pattern"
	cmdCompleteTurn       = "complete_turn"
	cmdSkipTurn           = "skip_turn"
	cmdConfirmPatternSize = "confirm_pattern_size"
	cmdPauseSimulation    = "pause_simulation"
	cmdResumeSimulation   = "resume_simulation"
	cmdSkipSimulation     = "skip_simulation"
	cmdUpdateThreshold    = "update_threshold"
	cmdListGames          = "list_games"
)

type welcomeEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

type gameEvent struct {
	Type string        `json:"type"`
	Game *session.Game `json:"game"`
}

type generationEvent struct {
	Type                 string    `json:"type"`
	Grid                 game.Grid `json:"grid"`
	RedTerritory         int       `json:"redTerritory"`
	BlueTerritory        int       `json:"blueTerritory"`
	RemainingGenerations int       `json:"remainingGenerations,omitempty"`
}

type patternEvent struct {
	Type    string       `json:"type"`
	Pattern game.Pattern `json:"pattern"`
	X       int          `json:"x"`
	Y       int          `json:"y"`
	Grid    game.Grid    `json:"grid"`
}

type finishedEvent struct {
	Type          string          `json:"type"`
	Winner        *session.Player `json:"winner"`
	Grid          game.Grid       `json:"finalGrid"`
	RedTerritory  int             `json:"redTerritory"`
	BlueTerritory int             `json:"blueTerritory"`
}

type closedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type listEvent struct {
	Type  string            `json:"type"`
	Games []session.Summary `json:"games"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
