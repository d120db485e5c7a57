package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

const (
	actionConnect   = "connect"
	actionNewGame   = "game:new"
	actionJoinGame  = "game:join"
	actionGameTurn  = "game:turn"
	actionGameState = "game:state"
	actionGameReset = "game:reset"
	actionGameLeave = "game:leave"
	actionBroadcast = "broadcast"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload carries request fields from the client and response fields from the server.
type Payload struct {
	Player  *entity.User        `json:"player,omitempty"`
	Chat    string              `json:"chat,omitempty"`
	Mode    entity.Mode         `json:"mode,omitempty"`
	Cell    *entity.Cell        `json:"cell,omitempty"`
	Text    string              `json:"text,omitempty"`
	Session *entity.SessionView `json:"session,omitempty"`
	Report  *BroadcastReport    `json:"report,omitempty"`
	Error   string              `json:"error,omitempty"`
	Code    string              `json:"code,omitempty"`
}

type BroadcastReport struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
