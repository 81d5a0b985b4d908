package handler

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/KenanMathews/multiplayer-conway/internal/game"
	"github.com/KenanMathews/multiplayer-conway/internal/player"
	"github.com/KenanMathews/multiplayer-conway/internal/session"
	"github.com/KenanMathews/multiplayer-conway/internal/turn"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: true,
	CheckOrigin:       func(r *http.Request) bool { return true },
}

// Gateway owns the websocket connections and translates client
// commands into registry and coordinator calls.
type Gateway struct {
	registry  *session.Registry
	coord     *turn.Coordinator
	publicURL string

	mu      sync.RWMutex
	clients map[string]*player.Client
}

func New(registry *session.Registry, coord *turn.Coordinator, publicURL string) *Gateway {
	return &Gateway{
		registry:  registry,
		coord:     coord,
		publicURL: publicURL,
		clients:   make(map[string]*player.Client),
	}
}

func (h *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := player.New(conn)
	h.register(c)
	defer h.handleDisconnect(c)

	c.SendJSON(welcomeEvent{Type: "welcome", PlayerID: c.ID})
	log.Printf("Client connected: %s", c.ID)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		c.UpdateActivity()
		h.process(c, &msg)
	}
}

func (h *Gateway) register(c *player.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

func (h *Gateway) handleDisconnect(c *player.Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()

	log.Printf("Client disconnected: %s", c.ID)
	if code := c.GameID(); code != "" {
		h.coord.PlayerLeft(code, c.ID)
	}
}

func (h *Gateway) process(c *player.Client, msg *Message) {
	switch msg.Type {
	case cmdCreateGame:
		h.handleCreateGame(c, msg)
	case cmdJoinGame:
		h.handleJoinGame(c, msg)
	case cmdLeaveGame:
		h.handleLeaveGame(c)
	case cmdSelectTeam:
		h.handleSelectTeam(c, msg)
	case cmdPlayerReady:
		h.handlePlayerReady(c, msg)
	case cmdPlaceCell:
		h.reportError(c, h.coord.PlaceCell(h.gameFor(c, msg), c.ID, msg.X, msg.Y))
	case cmdPlacePattern:
		h.reportError(c, h.coord.PlacePattern(h.gameFor(c, msg), c.ID, msg.Pattern, msg.X, msg.Y))
	case cmdCompleteTurn:
		h.reportError(c, h.coord.CompleteTurn(h.gameFor(c, msg), c.ID))
	case cmdSkipTurn:
		h.reportError(c, h.coord.SkipTurn(h.gameFor(c, msg), c.ID))
	case cmdConfirmPatternSize:
		h.reportError(c, h.coord.ConfirmPatternSize(h.gameFor(c, msg), c.ID))
	case cmdPauseSimulation:
		h.reportError(c, h.coord.PauseSimulation(h.gameFor(c, msg), c.ID))
	case cmdResumeSimulation:
		h.reportError(c, h.coord.ResumeSimulation(h.gameFor(c, msg), c.ID))
	case cmdSkipSimulation:
		h.reportError(c, h.coord.SkipSimulation(h.gameFor(c, msg), c.ID))
	case cmdUpdateThreshold:
		h.reportError(c, h.coord.UpdateThreshold(h.gameFor(c, msg), c.ID, msg.Value))
	case cmdListGames:
		c.SendJSON(listEvent{Type: "games_list", Games: h.registry.ListJoinable()})
	default:
		log.Printf("Unknown message type: %q from %s", msg.Type, c.ID)
	}
}

// gameFor resolves the session a command targets, defaulting to the
// one the client joined.
func (h *Gateway) gameFor(c *player.Client, msg *Message) string {
	if msg.GameID != "" {
		return msg.GameID
	}
	return c.GameID()
}

func (h *Gateway) handleCreateGame(c *player.Client, msg *Message) {
	settings := session.DefaultSettings()
	if msg.Settings != nil {
		settings = *msg.Settings
	}

	code := msg.GameID
	if code == "" {
		code = h.uniqueGameCode()
	}

	g, err := h.registry.Create(code, settings)
	if err != nil {
		h.sendError(c, err)
		return
	}

	username := msg.Username
	if username == "" {
		username = GenerateGuestName()
	}

	g.Lock()
	_, err = g.AddPlayer(c.ID, username, game.Team(msg.Team))
	if err != nil {
		g.Unlock()
		h.registry.Remove(code)
		h.sendError(c, err)
		return
	}
	c.SetGameID(code)
	c.SendJSON(gameEvent{Type: "game_updated", Game: g})
	g.Unlock()

	log.Printf("Game created: %s by %s", code, username)
}

func (h *Gateway) handleJoinGame(c *player.Client, msg *Message) {
	g := h.registry.Get(msg.GameID)
	if g == nil {
		h.sendError(c, session.ErrGameNotFound)
		return
	}

	username := msg.Username
	if username == "" {
		username = GenerateGuestName()
	}

	g.Lock()
	_, err := g.AddPlayer(c.ID, username, "")
	if err != nil {
		g.Unlock()
		h.sendError(c, err)
		return
	}
	c.SetGameID(g.ID)
	h.GameUpdated(g)
	g.Unlock()

	log.Printf("%s joined game %s", username, g.ID)
}

func (h *Gateway) handleLeaveGame(c *player.Client) {
	code := c.GameID()
	if code == "" {
		return
	}
	c.SetGameID("")
	h.coord.PlayerLeft(code, c.ID)
}

func (h *Gateway) handleSelectTeam(c *player.Client, msg *Message) {
	g := h.registry.Get(h.gameFor(c, msg))
	if g == nil {
		h.sendError(c, session.ErrGameNotFound)
		return
	}

	team := game.Team(msg.Team)
	g.Lock()
	_, err := g.UpdatePlayer(c.ID, session.PlayerUpdate{Team: &team})
	if err != nil {
		g.Unlock()
		h.sendError(c, err)
		return
	}
	h.GameUpdated(g)
	g.Unlock()

	h.coord.TryStart(g.ID)
}

func (h *Gateway) handlePlayerReady(c *player.Client, msg *Message) {
	g := h.registry.Get(h.gameFor(c, msg))
	if g == nil {
		h.sendError(c, session.ErrGameNotFound)
		return
	}

	ready := msg.Ready
	g.Lock()
	_, err := g.UpdatePlayer(c.ID, session.PlayerUpdate{Ready: &ready})
	if err != nil {
		g.Unlock()
		h.sendError(c, err)
		return
	}
	h.GameUpdated(g)
	g.Unlock()

	h.coord.TryStart(g.ID)
}

// reportError forwards a command failure to the acting client only.
// Legal state changes are broadcast by the coordinator's events, so a
// nil error needs nothing here.
func (h *Gateway) reportError(c *player.Client, err error) {
	if err != nil {
		h.sendError(c, err)
	}
}

func (h *Gateway) sendError(c *player.Client, err error) {
	log.Printf("Client %s: %v", c.ID, err)
	c.SendJSON(errorEvent{Type: "error", Message: err.Error()})
}
