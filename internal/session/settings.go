package session

// Settings is fixed at creation time. Validation tags are enforced by
// the registry before a game is stored.
type Settings struct {
	GridSize           int  `json:"gridSize" validate:"min=10,max=100"`
	TurnTime           int  `json:"turnTime" validate:"min=5,max=300"`
	MaxTimeoutWarnings int  `json:"maxTimeoutWarnings" validate:"min=1,max=10"`
	MaxPlayers         int  `json:"maxPlayers" validate:"eq=2"`
	MinPlayersToStart  int  `json:"minPlayersToStart" validate:"eq=2"`
	Public             bool `json:"public"`

	// Every PatternRatio-th generation is a pattern turn. The current
	// ruleset makes every round a pattern round.
	PatternRatio int `json:"patternRatio" validate:"min=1"`

	TerritoryThresholdEnabled bool `json:"territoryThresholdEnabled"`
	TerritoryThreshold        int  `json:"territoryThreshold" validate:"min=1,max=100"`

	// Policy hook: forfeit the game once a player collects
	// MaxTimeoutWarnings timeout skips. Off unless the host opts in.
	TimeoutForfeitEnabled bool `json:"timeoutForfeitEnabled"`
}

func DefaultSettings() Settings {
	return Settings{
		GridSize:                  20,
		TurnTime:                  30,
		MaxTimeoutWarnings:        3,
		MaxPlayers:                2,
		MinPlayersToStart:         2,
		Public:                    true,
		PatternRatio:              1,
		TerritoryThresholdEnabled: true,
		TerritoryThreshold:        10,
	}
}

// Normalize fills zero-valued fields with defaults so a sparse client
// payload still validates.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.GridSize == 0 {
		s.GridSize = def.GridSize
	}
	if s.TurnTime == 0 {
		s.TurnTime = def.TurnTime
	}
	if s.MaxTimeoutWarnings == 0 {
		s.MaxTimeoutWarnings = def.MaxTimeoutWarnings
	}
	s.MaxPlayers = def.MaxPlayers
	s.MinPlayersToStart = def.MinPlayersToStart
	if s.PatternRatio == 0 {
		s.PatternRatio = def.PatternRatio
	}
	if s.TerritoryThreshold == 0 {
		s.TerritoryThreshold = def.TerritoryThreshold
	}
	return s
}
