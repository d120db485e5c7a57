package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-bot/internal/bot"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/internal/usecase"
)

type memoryUsers struct {
	mu    sync.Mutex
	users []entity.User
}

func (that *memoryUsers) Remember(_ context.Context, user *entity.User) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, known := range that.users {
		if known.ID == user.ID {
			return nil
		}
	}
	that.users = append(that.users, *user)

	return nil
}

func (that *memoryUsers) Recipients(context.Context) ([]entity.User, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]entity.User(nil), that.users...), nil
}

func newTestServer(t *testing.T, users *memoryUsers) string {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	registry := usecase.NewSessionRegistry(logger, bot.NewOpponent(bot.WithSeed(1)), nil)
	server := New(logger, registry, users, "owner")

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(server.Handler(ctx))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload Payload) {
	t.Helper()

	payloadJSON, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Message{Action: action, Payload: payloadJSON}))
}

func read(t *testing.T, conn *websocket.Conn) (string, Payload) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var message Message
	require.NoError(t, conn.ReadJSON(&message))

	var payload Payload
	require.NoError(t, json.Unmarshal(message.Payload, &payload))

	return message.Action, payload
}

func connect(t *testing.T, url, playerID string) *websocket.Conn {
	t.Helper()

	conn := dial(t, url)
	send(t, conn, actionConnect, Payload{Player: &entity.User{ID: playerID}})

	action, payload := read(t, conn)
	require.Equal(t, actionConnect, action)
	require.Empty(t, payload.Error)

	return conn
}

func TestServer_Connect(t *testing.T) {
	users := &memoryUsers{}
	url := newTestServer(t, users)
	conn := dial(t, url)

	// When: connecting without an id
	send(t, conn, actionConnect, Payload{})
	action, payload := read(t, conn)

	// Then: an id is generated and the user is remembered
	assert.Equal(t, actionConnect, action)
	require.NotNil(t, payload.Player)
	_, err := uuid.Parse(payload.Player.ID)
	require.NoError(t, err)

	recipients, err := users.Recipients(context.Background())
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, payload.Player.ID, recipients[0].ID)
}

func TestServer_SinglePlayer(t *testing.T) {
	url := newTestServer(t, &memoryUsers{})
	alice := connect(t, url, "alice")

	// Given: a hard game in chat-1
	send(t, alice, actionNewGame, Payload{Chat: "chat-1", Mode: entity.BotHard})
	action, payload := read(t, alice)
	require.Equal(t, actionNewGame, action)
	require.NotNil(t, payload.Session)
	assert.Equal(t, 9, payload.Session.Board().Count(entity.Empty))

	// When: the player takes the centre
	send(t, alice, actionGameTurn, Payload{Chat: "chat-1", Cell: &entity.Cell{Row: 1, Col: 1}})
	action, payload = read(t, alice)

	// Then: the bot has answered in the same update
	require.Equal(t, actionGameTurn, action)
	require.NotNil(t, payload.Session)
	assert.Equal(t, 7, payload.Session.Board().Count(entity.Empty))
	assert.Equal(t, entity.Cross, payload.Session.Turn)
}

func TestServer_PlayerVsPlayer(t *testing.T) {
	url := newTestServer(t, &memoryUsers{})
	alice := connect(t, url, "alice")
	bob := connect(t, url, "bob")

	// Given: Alice opens a two-player game and Bob joins it
	send(t, alice, actionNewGame, Payload{Chat: "chat-1", Mode: entity.PlayerVsPlayer})
	action, _ := read(t, alice)
	require.Equal(t, actionNewGame, action)

	send(t, bob, actionJoinGame, Payload{Chat: "chat-1"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		action, payload := read(t, conn)
		require.Equal(t, actionJoinGame, action)
		assert.Equal(t, "bob", payload.Session.SecondPlayer)
	}

	// When: Alice moves
	send(t, alice, actionGameTurn, Payload{Chat: "chat-1", Cell: &entity.Cell{Row: 0, Col: 0}})

	// Then: both players see the move
	for _, conn := range []*websocket.Conn{alice, bob} {
		action, payload := read(t, conn)
		require.Equal(t, actionGameTurn, action)
		assert.Equal(t, entity.Cross, payload.Session.Board().At(entity.Cell{Row: 0, Col: 0}))
		assert.Equal(t, entity.Circle, payload.Session.Turn)
	}

	// When: Bob plays the same cell
	send(t, bob, actionGameTurn, Payload{Chat: "chat-1", Cell: &entity.Cell{Row: 0, Col: 0}})
	action, payload := read(t, bob)

	// Then: only Bob gets the rejection
	assert.Equal(t, actionGameTurn, action)
	assert.Equal(t, "validation", payload.Code)
	assert.NotEmpty(t, payload.Error)
}

func TestServer_Errors(t *testing.T) {
	url := newTestServer(t, &memoryUsers{})

	t.Run("Actions need a connected player", func(t *testing.T) {
		conn := dial(t, url)

		send(t, conn, actionGameTurn, Payload{Chat: "chat-1", Cell: &entity.Cell{}})
		_, payload := read(t, conn)

		assert.Equal(t, "authorization", payload.Code)
	})

	t.Run("Moves need a session", func(t *testing.T) {
		conn := connect(t, url, "carol")

		send(t, conn, actionGameTurn, Payload{Chat: "chat-9", Cell: &entity.Cell{}})
		_, payload := read(t, conn)

		assert.Equal(t, "session", payload.Code)
	})

	t.Run("Frames that are not messages keep the socket open", func(t *testing.T) {
		conn := connect(t, url, "erin")

		// When: a mistyped message and an empty frame arrive
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":5}`)))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, nil))

		// Then: the next request is still answered
		send(t, conn, actionGameState, Payload{Chat: "chat-9"})
		action, payload := read(t, conn)

		assert.Equal(t, actionGameState, action)
		assert.Equal(t, "session", payload.Code)
	})

	t.Run("Unknown actions are reported", func(t *testing.T) {
		conn := connect(t, url, "dave")

		send(t, conn, "game:cheat", Payload{})
		action, payload := read(t, conn)

		assert.Equal(t, "game:cheat", action)
		assert.Equal(t, "request", payload.Code)
	})
}

func TestServer_GameLeave(t *testing.T) {
	url := newTestServer(t, &memoryUsers{})
	alice := connect(t, url, "alice")

	// Given: a running game
	send(t, alice, actionNewGame, Payload{Chat: "chat-1", Mode: entity.BotEasy})
	_, _ = read(t, alice)

	// When: the player leaves it
	send(t, alice, actionGameLeave, Payload{Chat: "chat-1"})
	action, _ := read(t, alice)
	require.Equal(t, actionGameLeave, action)

	// Then: the chat has no game any more
	send(t, alice, actionGameState, Payload{Chat: "chat-1"})
	_, payload := read(t, alice)
	assert.Equal(t, "session", payload.Code)

	// When: someone outside a game tries to leave it
	send(t, alice, actionNewGame, Payload{Chat: "chat-2", Mode: entity.BotEasy})
	_, _ = read(t, alice)
	mallory := connect(t, url, "mallory")
	send(t, mallory, actionGameLeave, Payload{Chat: "chat-2"})

	// Then: they are refused and the game goes on
	action, payload = read(t, mallory)
	assert.Equal(t, actionGameLeave, action)
	assert.Equal(t, "authorization", payload.Code)

	send(t, alice, actionGameState, Payload{Chat: "chat-2"})
	_, payload = read(t, alice)
	require.NotNil(t, payload.Session)
	assert.Equal(t, "alice", payload.Session.FirstPlayer)
}

func TestServer_Broadcast(t *testing.T) {
	// Given: a remembered user who is offline, the owner and one more user online
	users := &memoryUsers{users: []entity.User{{ID: "ghost"}}}
	url := newTestServer(t, users)
	owner := connect(t, url, "owner")
	alice := connect(t, url, "alice")

	t.Run("Only the owner may broadcast", func(t *testing.T) {
		send(t, alice, actionBroadcast, Payload{Text: "hello"})
		_, payload := read(t, alice)

		assert.Equal(t, "authorization", payload.Code)
	})

	t.Run("Delivers to connected users and reports the counts", func(t *testing.T) {
		// When: the owner broadcasts
		send(t, owner, actionBroadcast, Payload{Text: "hello"})

		// Then: online users get the text and the owner gets a report
		action, payload := read(t, alice)
		assert.Equal(t, actionBroadcast, action)
		assert.Equal(t, "hello", payload.Text)

		_, payload = read(t, owner)
		assert.Equal(t, "hello", payload.Text)

		_, payload = read(t, owner)
		require.NotNil(t, payload.Report)
		assert.Equal(t, BroadcastReport{Total: 3, Success: 2, Failed: 1}, *payload.Report)
	})
}
