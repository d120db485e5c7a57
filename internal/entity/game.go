package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
)

type Mode uint8

const (
	BotEasy Mode = iota + 1
	BotMedium
	BotHard
	PlayerVsPlayer
)

func (that Mode) IsValid() bool {
	return that >= BotEasy && that <= PlayerVsPlayer
}

func (that Mode) IsSinglePlayer() bool {
	return that == BotEasy || that == BotMedium || that == BotHard
}

// String is for logs only.
func (that Mode) String() string {
	switch that {
	case BotEasy:
		return "bot-easy"
	case BotMedium:
		return "bot-medium"
	case BotHard:
		return "bot-hard"
	case PlayerVsPlayer:
		return "pvp"
	default:
		return fmt.Sprintf("mode(%d)", uint8(that))
	}
}

type Status uint8

const (
	InProgress Status = iota
	Won
	Draw
)

// Outcome is InProgress, Won(Winner) or Draw. Winner is Empty unless Status is Won.
type Outcome struct {
	Status Status `json:"status"`
	Winner Mark   `json:"winner"`
}

func (that Outcome) IsTerminal() bool {
	return that.Status != InProgress
}

// Game is the state of one game. It is changed only through ApplyMove and Join.
type Game struct {
	board     Board
	mode      Mode
	turn      Mark
	first     string
	second    string
	outcome   Outcome
	updatedAt time.Time
}

func NewGame(mode Mode, firstPlayer string) *Game {
	return &Game{
		mode:      mode,
		turn:      Cross,
		first:     firstPlayer,
		updatedAt: time.Now(),
	}
}

func (that *Game) Board() Board { return that.board }
func (that *Game) Mode() Mode { return that.mode }
func (that *Game) Turn() Mark { return that.turn }
func (that *Game) FirstPlayer() string { return that.first }
func (that *Game) SecondPlayer() string { return that.second }
func (that *Game) Outcome() Outcome { return that.outcome }
func (that *Game) UpdatedAt() time.Time { return that.updatedAt }
func (that *Game) IsFinished() bool { return that.outcome.IsTerminal() }
func (that *Game) HasSecondPlayer() bool { return that.second != "" }

// HasPlayer reports whether playerID holds a seat. The bot holds none.
func (that *Game) HasPlayer(playerID string) bool {
	return playerID != "" && (that.first == playerID || that.second == playerID)
}

// PlayerFor returns the identity bound to mark. In single-player modes Circle belongs to the bot
// and has no identity.
func (that *Game) PlayerFor(mark Mark) string {
	switch mark {
	case Cross:
		return that.first
	case Circle:
		return that.second
	default:
		return ""
	}
}

// ApplyMove places mark on (row, col). Preconditions are checked before anything is changed:
// the game is not over, the cell is on the board, the cell is empty and it is mark's turn.
func (that *Game) ApplyMove(row, col int, mark Mark) error {
	if that.outcome.IsTerminal() {
		return apperror.ErrGameOver
	}

	cell := Cell{Row: row, Col: col}
	if !cell.InBounds() {
		return fmt.Errorf("%w: (%d, %d)", apperror.ErrOutOfBounds, row, col)
	}

	if that.board.At(cell) != Empty {
		return apperror.ErrCellOccupied
	}

	if mark != that.turn {
		return apperror.ErrOutOfTurn
	}

	that.board = that.board.With(cell, mark)
	that.updatedAt = time.Now()

	that.updateOutcome(mark)

	return nil
}

// updateOutcome - only the mark that just moved can have completed a line.
func (that *Game) updateOutcome(mark Mark) {
	switch {
	case that.board.HasWon(mark):
		that.outcome = Outcome{Status: Won, Winner: mark}
	case that.board.IsFull():
		that.outcome = Outcome{Status: Draw}
	default:
		that.turn = mark.Opponent()
	}
}

// Join binds playerID to Circle in a two-player game.
func (that *Game) Join(playerID string) error {
	if that.mode != PlayerVsPlayer {
		return apperror.ErrWrongMode
	}

	if that.second != "" {
		return apperror.ErrAlreadyFull
	}

	that.second = playerID
	that.updatedAt = time.Now()

	return nil
}
