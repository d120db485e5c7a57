package entity

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidSnapshot = errors.New("invalid session snapshot")

// SessionView is a read-only snapshot of a session handed to transports and the mirror.
type SessionView struct {
	Key          string                      `json:"key"`
	Cells        [BoardSize * BoardSize]Mark `json:"cells"`
	Turn         Mark                        `json:"turn"`
	Mode         Mode                        `json:"mode"`
	Outcome      Outcome                     `json:"outcome"`
	FirstPlayer  string                      `json:"first_player"`
	SecondPlayer string                      `json:"second_player,omitempty"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

func (that SessionView) Board() Board {
	return BoardFromCells(that.Cells)
}

// IsWaiting reports a two-player game that nobody has joined yet.
func (that SessionView) IsWaiting() bool {
	return that.Mode == PlayerVsPlayer && that.SecondPlayer == ""
}

func (that *Game) View(key string) SessionView {
	return SessionView{
		Key:          key,
		Cells:        that.board.Cells(),
		Turn:         that.turn,
		Mode:         that.mode,
		Outcome:      that.outcome,
		FirstPlayer:  that.first,
		SecondPlayer: that.second,
		UpdatedAt:    that.updatedAt,
	}
}

// RestoreGame rebuilds a game from a snapshot, rejecting snapshots no sequence of legal moves
// could have produced.
func RestoreGame(view SessionView) (*Game, error) {
	if !view.Mode.IsValid() {
		return nil, fmt.Errorf("%w: mode %d", ErrInvalidSnapshot, view.Mode)
	}

	if view.FirstPlayer == "" {
		return nil, fmt.Errorf("%w: first player is missing", ErrInvalidSnapshot)
	}

	if view.Mode != PlayerVsPlayer && view.SecondPlayer != "" {
		return nil, fmt.Errorf("%w: second player in single-player mode", ErrInvalidSnapshot)
	}

	board := view.Board()
	for _, mark := range view.Cells {
		if mark > Circle {
			return nil, fmt.Errorf("%w: unknown mark %d", ErrInvalidSnapshot, mark)
		}
	}

	crosses, circles := board.Count(Cross), board.Count(Circle)
	if crosses != circles && crosses != circles+1 {
		return nil, fmt.Errorf("%w: %d crosses against %d circles", ErrInvalidSnapshot, crosses, circles)
	}

	outcome, err := deriveOutcome(board, crosses, circles)
	if err != nil {
		return nil, err
	}

	if outcome != view.Outcome {
		return nil, fmt.Errorf("%w: outcome does not match the board", ErrInvalidSnapshot)
	}

	turn := Cross
	if crosses > circles {
		turn = Circle
	}

	// a finished game keeps the turn of the mark that made the last move
	if outcome.IsTerminal() {
		turn = turn.Opponent()
	}

	if view.Turn != turn {
		return nil, fmt.Errorf("%w: turn does not match the board", ErrInvalidSnapshot)
	}

	return &Game{
		board:     board,
		mode:      view.Mode,
		turn:      turn,
		first:     view.FirstPlayer,
		second:    view.SecondPlayer,
		outcome:   outcome,
		updatedAt: view.UpdatedAt,
	}, nil
}

func deriveOutcome(board Board, crosses, circles int) (Outcome, error) {
	crossWon, circleWon := board.HasWon(Cross), board.HasWon(Circle)

	switch {
	case crossWon && circleWon:
		return Outcome{}, fmt.Errorf("%w: both marks have a line", ErrInvalidSnapshot)
	case crossWon:
		if crosses != circles+1 {
			return Outcome{}, fmt.Errorf("%w: cross won out of turn", ErrInvalidSnapshot)
		}
		return Outcome{Status: Won, Winner: Cross}, nil
	case circleWon:
		if crosses != circles {
			return Outcome{}, fmt.Errorf("%w: circle won out of turn", ErrInvalidSnapshot)
		}
		return Outcome{Status: Won, Winner: Circle}, nil
	case board.IsFull():
		return Outcome{Status: Draw}, nil
	default:
		return Outcome{Status: InProgress}, nil
	}
}
