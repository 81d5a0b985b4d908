package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/KenanMathews/multiplayer-conway/internal/game"
)

// How long an idle, non-running session survives before the
// maintenance sweep reaps it.
const idleTimeout = 15 * time.Minute

// Registry is the authoritative map of live sessions, keyed by game
// code. The registry lock guards only the map; per-session state is
// guarded by each session's own lock.
type Registry struct {
	mu       sync.RWMutex
	games    map[string]*Game
	maxGames int
	validate *validator.Validate
}

func NewRegistry(maxGames int) *Registry {
	return &Registry{
		games:    make(map[string]*Game),
		maxGames: maxGames,
		validate: validator.New(),
	}
}

// Create registers a new session in the waiting state with an empty
// grid and an empty roster.
func (r *Registry) Create(code string, settings Settings) (*Game, error) {
	settings = settings.Normalize()
	if err := r.validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[code]; exists {
		return nil, ErrGameExists
	}
	if len(r.games) >= r.maxGames {
		return nil, ErrServerFull
	}

	now := time.Now()
	g := &Game{
		ID:        code,
		Status:    StatusWaiting,
		Settings:  settings,
		Grid:      game.NewGrid(settings.GridSize),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.games[code] = g
	return g, nil
}

func (r *Registry) Get(code string) *Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.games[code]
}

func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, code)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Summary is the lobby-browser view of a joinable session.
type Summary struct {
	ID       string `json:"id"`
	Host     string `json:"host"`
	Players  int    `json:"players"`
	MaxAll   int    `json:"maxPlayers"`
	GridSize int    `json:"gridSize"`
}

// ListJoinable returns public waiting sessions with room to join.
func (r *Registry) ListJoinable() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.games))
	for _, g := range r.games {
		g.Lock()
		if g.Settings.Public && g.CanJoin() {
			hostName := ""
			if h := g.Host(); h != nil {
				hostName = h.Username
			}
			out = append(out, Summary{
				ID:       g.ID,
				Host:     hostName,
				Players:  len(g.Players),
				MaxAll:   g.Settings.MaxPlayers,
				GridSize: g.Settings.GridSize,
			})
		}
		g.Unlock()
	}
	return out
}

// CleanupExpired removes sessions that are empty, or idle without a
// game in progress, and returns the reaped codes so the caller can
// release any per-session machinery tied to them. Running games are
// never reaped.
func (r *Registry) CleanupExpired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped []string
	for code, g := range r.games {
		g.Lock()
		expired := len(g.Players) == 0 ||
			(g.Status != StatusPlaying && g.Status != StatusSimulating &&
				time.Since(g.UpdatedAt) > idleTimeout)
		g.Unlock()
		if expired {
			log.Printf("Reaping expired game %s", code)
			delete(r.games, code)
			reaped = append(reaped, code)
		}
	}
	return reaped
}
