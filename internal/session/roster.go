package session

import "github.com/KenanMathews/multiplayer-conway/internal/game"

// Roster mutations. Callers hold the session lock.

// AddPlayer appends a new roster entry. The first joiner becomes host.
func (g *Game) AddPlayer(id, username string, team game.Team) (*Player, error) {
	if !g.CanJoin() {
		if g.IsFull() {
			return nil, ErrGameFull
		}
		return nil, ErrInvalidState
	}
	if g.PlayerByID(id) != nil {
		return nil, ErrAlreadyJoined
	}
	if team != "" && !team.Valid() {
		return nil, ErrInvalidTeam
	}
	if team.Valid() && g.PlayerByTeam(team) != nil {
		return nil, ErrInvalidTeam
	}

	p := &Player{
		ID:       id,
		Username: username,
		Team:     team,
		IsHost:   len(g.Players) == 0,
	}
	g.Players = append(g.Players, p)
	g.Touch()
	return p, nil
}

// RemovePlayer drops a roster entry, reassigning host to the first
// remaining player. Returns nil if the player was not present. An
// empty roster is the caller's cue to destroy the session.
func (g *Game) RemovePlayer(id string) *Player {
	removed := g.PlayerByID(id)
	if removed == nil {
		return nil
	}

	players := make([]*Player, 0, len(g.Players)-1)
	for _, p := range g.Players {
		if p.ID != id {
			players = append(players, p)
		}
	}
	g.Players = players

	if removed.IsHost && len(g.Players) > 0 {
		g.Players[0].IsHost = true
	}
	g.Touch()
	return removed
}

// PlayerUpdate carries the fields a player may change about
// themselves while in the lobby. Nil fields are left untouched.
type PlayerUpdate struct {
	Team  *game.Team
	Ready *bool
}

// UpdatePlayer applies a lobby-side update, enforcing one player per
// team.
func (g *Game) UpdatePlayer(id string, upd PlayerUpdate) (*Player, error) {
	p := g.PlayerByID(id)
	if p == nil {
		return nil, ErrPlayerNotFound
	}

	if upd.Team != nil {
		if !upd.Team.Valid() {
			return nil, ErrInvalidTeam
		}
		if other := g.PlayerByTeam(*upd.Team); other != nil && other.ID != id {
			return nil, ErrInvalidTeam
		}
		p.Team = *upd.Team
	}
	if upd.Ready != nil {
		p.Ready = *upd.Ready
	}
	g.Touch()
	return p, nil
}
