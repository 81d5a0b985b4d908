package session

import "errors"

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrGameExists     = errors.New("game already exists")
	ErrGameFull       = errors.New("game is full")
	ErrServerFull     = errors.New("server is at capacity")
	ErrAlreadyJoined  = errors.New("player already in game")
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidTeam    = errors.New("invalid team selection")
	ErrNotHost        = errors.New("only the host may do that")
	ErrInvalidState   = errors.New("operation not allowed in current game state")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrWrongPhase     = errors.New("wrong turn phase")
)
