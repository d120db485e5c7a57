package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

const shutdownTimeout = 5 * time.Second

type sessionService interface {
	CreateSession(ctx context.Context, key string, mode entity.Mode, initiator string) (entity.SessionView, error)
	RestartSession(ctx context.Context, key string, mode entity.Mode, initiator string) (entity.SessionView, error)
	JoinSession(ctx context.Context, key, playerID string) (entity.SessionView, error)
	ApplyMove(ctx context.Context, key, playerID string, row, col int) (entity.SessionView, error)
	GetSession(ctx context.Context, key string) (entity.SessionView, error)
	LeaveSession(ctx context.Context, key, playerID string) error
}

type userService interface {
	Remember(ctx context.Context, user *entity.User) error
	Recipients(ctx context.Context) ([]entity.User, error)
}

type handlerFunc func(ctx context.Context, client *client, payload *Payload) error

type Server struct {
	logger   *slog.Logger
	sessions sessionService
	users    userService
	ownerID  string
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc

	mu      sync.RWMutex
	clients map[*client]struct{}
	players map[string]*client
	chats   map[string]map[*client]struct{}
}

func New(logger *slog.Logger, sessions sessionService, users userService, ownerID string) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		sessions: sessions,
		users:    users,
		ownerID:  ownerID,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},

		clients: make(map[*client]struct{}),
		players: make(map[string]*client),
		chats:   make(map[string]map[*client]struct{}),
	}

	server.handlers = map[string]handlerFunc{
		actionConnect:   server.handleConnect,
		actionNewGame:   server.handleNewGame,
		actionJoinGame:  server.handleJoinGame,
		actionGameTurn:  server.handleGameTurn,
		actionGameState: server.handleGameState,
		actionGameReset: server.handleGameReset,
		actionGameLeave: server.handleGameLeave,
		actionBroadcast: server.handleBroadcast,
	}

	return server
}

// Handler serves the socket endpoint on /ws. ctx bounds every request handled on the sockets.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(ctx),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	// the http.Server read timeout must not apply to the long-lived socket
	if err = conn.NetConn().SetDeadline(time.Time{}); err != nil {
		log.Error("failed to reset deadline", "error", err)
	}

	c := newClient(conn)
	that.addClient(c)

	done := make(chan struct{})
	go c.keepAlive(done)

	defer func() {
		close(done)
		that.removeClient(c)
		_ = conn.Close()
	}()

	log.Info("WebSocket connection established", "remote", req.RemoteAddr)

	if err = that.handleMessages(ctx, c); err != nil {
		log.Info("WebSocket connection closed", "reason", err)
	}
}

// handleMessages - processes messages from the client until the socket fails.
func (that *Server) handleMessages(ctx context.Context, c *client) error {
	log := that.logger.With("method", "handleMessages")

	c.conn.SetReadLimit(maxMessage)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if isDecodeError(err) {
				log.Warn("failed to unmarshal message", "error", err)
				continue
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		// any frame from the peer proves it is alive
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		that.dispatch(ctx, c, &message)
	}
}

// isDecodeError reports a frame that arrived whole but is not a Message. The socket survives it.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	// an empty text frame decodes to io.ErrUnexpectedEOF; a dropped peer is a CloseError instead
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (that *Server) dispatch(ctx context.Context, c *client, message *Message) {
	log := that.logger.With("method", "dispatch", "action", message.Action)

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action")
		that.sendError(c, message.Action, errUnknownAction)
		return
	}

	var payload Payload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			log.Warn("failed to unmarshal payload", "error", err)
			that.sendError(c, message.Action, errBadPayload)
			return
		}
	}

	if err := handler(ctx, c, &payload); err != nil {
		that.sendError(c, message.Action, err)
	}
}

func (that *Server) addClient(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clients[c] = struct{}{}
}

func (that *Server) removeClient(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.clients, c)

	if c.playerID != "" && that.players[c.playerID] == c {
		delete(that.players, c.playerID)
	}

	for chat := range c.chats {
		subscribers := that.chats[chat]
		delete(subscribers, c)
		if len(subscribers) == 0 {
			delete(that.chats, chat)
		}
	}
}

// bindPlayer makes c the live connection of playerID, replacing an older one.
func (that *Server) bindPlayer(c *client, playerID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if c.playerID != "" && that.players[c.playerID] == c {
		delete(that.players, c.playerID)
	}

	c.playerID = playerID
	that.players[playerID] = c
}

func (that *Server) playerOf(c *client) string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return c.playerID
}

func (that *Server) subscribe(c *client, chat string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	subscribers, ok := that.chats[chat]
	if !ok {
		subscribers = make(map[*client]struct{})
		that.chats[chat] = subscribers
	}

	subscribers[c] = struct{}{}
	c.chats[chat] = struct{}{}
}

// publish sends a session change to every connection that has addressed the chat.
func (that *Server) publish(action, chat string, payload Payload) {
	that.mu.RLock()
	subscribers := make([]*client, 0, len(that.chats[chat]))
	for c := range that.chats[chat] {
		subscribers = append(subscribers, c)
	}
	that.mu.RUnlock()

	for _, c := range subscribers {
		if err := c.send(action, payload); err != nil {
			that.logger.Warn("failed to publish", "action", action, "chat", chat, "error", err)
		}
	}
}
