package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

var (
	errUnknownAction = errors.New("unknown action")
	errBadPayload    = errors.New("malformed payload")
	errChatRequired  = errors.New("chat is required")
	errCellRequired  = errors.New("cell is required")
	errTextRequired  = errors.New("text is required")
)

const internalError = "internal error"

func (that *Server) handleConnect(ctx context.Context, c *client, payload *Payload) error {
	log := that.logger.With("method", "handleConnect")

	user := entity.User{}
	if payload.Player != nil {
		user = *payload.Player
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	if err := that.users.Remember(ctx, &user); err != nil {
		// an unremembered user only misses broadcasts
		log.Error("failed to remember user", "user_id", user.ID, "error", err)
	}

	that.bindPlayer(c, user.ID)

	if err := c.send(actionConnect, Payload{Player: &user}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("successfully connected player", "user_id", user.ID)

	return nil
}

func (that *Server) handleNewGame(ctx context.Context, c *client, payload *Payload) error {
	return that.startGame(ctx, c, payload, actionNewGame, that.sessions.CreateSession)
}

// handleGameReset replaces whatever game the chat holds, finished or not.
func (that *Server) handleGameReset(ctx context.Context, c *client, payload *Payload) error {
	return that.startGame(ctx, c, payload, actionGameReset, that.sessions.RestartSession)
}

type startFunc func(ctx context.Context, key string, mode entity.Mode, initiator string) (entity.SessionView, error)

func (that *Server) startGame(ctx context.Context, c *client, payload *Payload, action string, start startFunc) error {
	playerID, err := that.requirePlayer(c, payload)
	if err != nil {
		return err
	}

	that.subscribe(c, payload.Chat)

	view, err := start(ctx, payload.Chat, payload.Mode, playerID)
	if err != nil {
		return err
	}

	that.publish(action, payload.Chat, Payload{Chat: payload.Chat, Session: &view})

	return nil
}

func (that *Server) handleJoinGame(ctx context.Context, c *client, payload *Payload) error {
	playerID, err := that.requirePlayer(c, payload)
	if err != nil {
		return err
	}

	that.subscribe(c, payload.Chat)

	view, err := that.sessions.JoinSession(ctx, payload.Chat, playerID)
	if err != nil {
		return err
	}

	that.publish(actionJoinGame, payload.Chat, Payload{Chat: payload.Chat, Session: &view})

	return nil
}

func (that *Server) handleGameTurn(ctx context.Context, c *client, payload *Payload) error {
	playerID, err := that.requirePlayer(c, payload)
	if err != nil {
		return err
	}

	if payload.Cell == nil {
		return errCellRequired
	}

	that.subscribe(c, payload.Chat)

	view, err := that.sessions.ApplyMove(ctx, payload.Chat, playerID, payload.Cell.Row, payload.Cell.Col)
	if err != nil {
		// a failed bot reply still leaves the player's move on the board
		if view.Key != "" {
			that.publish(actionGameTurn, payload.Chat, Payload{Chat: payload.Chat, Session: &view})
		}

		return err
	}

	that.publish(actionGameTurn, payload.Chat, Payload{Chat: payload.Chat, Session: &view})

	if view.Outcome.IsTerminal() {
		that.logger.Info("game finished", "chat", payload.Chat, "status", view.Outcome.Status, "winner", view.Outcome.Winner)
	}

	return nil
}

// handleGameState answers only the asking connection.
func (that *Server) handleGameState(ctx context.Context, c *client, payload *Payload) error {
	if _, err := that.requirePlayer(c, payload); err != nil {
		return err
	}

	that.subscribe(c, payload.Chat)

	view, err := that.sessions.GetSession(ctx, payload.Chat)
	if err != nil {
		return err
	}

	return c.send(actionGameState, Payload{Chat: payload.Chat, Session: &view})
}

func (that *Server) handleGameLeave(ctx context.Context, c *client, payload *Payload) error {
	playerID, err := that.requirePlayer(c, payload)
	if err != nil {
		return err
	}

	if err = that.sessions.LeaveSession(ctx, payload.Chat, playerID); err != nil {
		return err
	}

	that.publish(actionGameLeave, payload.Chat, Payload{Chat: payload.Chat})

	return nil
}

// handleBroadcast sends text to every remembered user that is connected and reports the counts
// back to the owner.
func (that *Server) handleBroadcast(ctx context.Context, c *client, payload *Payload) error {
	log := that.logger.With("method", "handleBroadcast")

	playerID := that.playerOf(c)
	if playerID == "" {
		return apperror.ErrNotConnected
	}

	if that.ownerID == "" || playerID != that.ownerID {
		return apperror.ErrNotOwner
	}

	if payload.Text == "" {
		return errTextRequired
	}

	recipients, err := that.users.Recipients(ctx)
	if err != nil {
		return fmt.Errorf("failed to list recipients: %w", err)
	}

	report := BroadcastReport{Total: len(recipients)}
	for _, user := range recipients {
		that.mu.RLock()
		recipient, ok := that.players[user.ID]
		that.mu.RUnlock()

		if !ok {
			report.Failed++
			continue
		}

		if err = recipient.send(actionBroadcast, Payload{Text: payload.Text}); err != nil {
			log.Warn("failed to deliver broadcast", "user_id", user.ID, "error", err)
			report.Failed++
			continue
		}

		report.Success++
	}

	log.Info("broadcast finished", "total", report.Total, "success", report.Success, "failed", report.Failed)

	return c.send(actionBroadcast, Payload{Report: &report})
}

func (that *Server) requirePlayer(c *client, payload *Payload) (string, error) {
	playerID := that.playerOf(c)
	if playerID == "" {
		return "", apperror.ErrNotConnected
	}

	if payload.Chat == "" {
		return "", errChatRequired
	}

	return playerID, nil
}

// sendError reports err to the connection. Classified errors are shown as is, anything else is
// logged and hidden.
func (that *Server) sendError(c *client, action string, err error) {
	payload := Payload{Error: err.Error(), Code: apperror.KindOf(err).String()}

	switch {
	case apperror.KindOf(err) != apperror.KindUnknown:
	case errors.Is(err, errUnknownAction), errors.Is(err, errBadPayload), errors.Is(err, errChatRequired),
		errors.Is(err, errCellRequired), errors.Is(err, errTextRequired):
		payload.Code = "request"
	default:
		that.logger.Error("failed to handle action", "action", action, "error", err)
		payload.Error = internalError
	}

	if sendErr := c.send(action, payload); sendErr != nil {
		that.logger.Warn("failed to send error response", "action", action, "error", sendErr)
	}
}
