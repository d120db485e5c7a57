package bot

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

const defaultHeuristicRate = 0.5

var (
	// ErrNoLegalMove - the board is full; callers must not ask for a move in a finished game.
	ErrNoLegalMove       = errors.New("no legal move")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrNotAPlayerMark    = errors.New("mark is not a player mark")
)

type Difficulty uint8

const (
	Easy Difficulty = iota + 1
	Medium
	Hard
)

func (that Difficulty) String() string {
	switch that {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", uint8(that))
	}
}

// ParseDifficulty accepts the names produced by String.
func ParseDifficulty(name string) (Difficulty, error) {
	switch name {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDifficulty, name)
	}
}

// DifficultyFor maps a single-player mode to the bot's difficulty.
func DifficultyFor(mode entity.Mode) (Difficulty, bool) {
	switch mode {
	case entity.BotEasy:
		return Easy, true
	case entity.BotMedium:
		return Medium, true
	case entity.BotHard:
		return Hard, true
	default:
		return 0, false
	}
}

// Opponent picks moves for the automated player. It holds no game state; the only shared state
// is the random source, which is locked so one Opponent can serve many sessions at once.
type Opponent struct {
	mu            sync.Mutex
	rng           *rand.Rand
	heuristicRate float64
}

type Option func(*Opponent)

// WithSeed makes the random choices reproducible.
func WithSeed(seed uint64) Option {
	return func(that *Opponent) {
		that.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithHeuristicRate sets how often Medium plays win/block instead of a random cell.
func WithHeuristicRate(rate float64) Option {
	return func(that *Opponent) {
		that.heuristicRate = min(max(rate, 0), 1)
	}
}

func NewOpponent(opts ...Option) *Opponent {
	now := uint64(time.Now().UnixNano()) //nolint: gosec // it's ok, only a seed
	opponent := &Opponent{
		rng:           rand.New(rand.NewPCG(now, now>>1)),
		heuristicRate: defaultHeuristicRate,
	}

	for _, opt := range opts {
		opt(opponent)
	}

	return opponent
}

// ChooseMove returns the cell the bot plays as mark. board is received by value and is the
// scratch copy every strategy works on; the caller's game is never touched.
func (that *Opponent) ChooseMove(board entity.Board, mark entity.Mark, difficulty Difficulty) (entity.Cell, error) {
	if !mark.IsPlayer() {
		return entity.Cell{}, ErrNotAPlayerMark
	}

	if board.IsFull() {
		return entity.Cell{}, ErrNoLegalMove
	}

	switch difficulty {
	case Easy:
		return that.randomCell(board)
	case Medium:
		return that.mediumMove(board, mark)
	case Hard:
		return BestMove(board, mark)
	default:
		return entity.Cell{}, fmt.Errorf("%w: %d", ErrUnknownDifficulty, difficulty)
	}
}

func (that *Opponent) randomCell(board entity.Board) (entity.Cell, error) {
	cells := board.EmptyCells()
	if len(cells) == 0 {
		return entity.Cell{}, ErrNoLegalMove
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return cells[that.rng.IntN(len(cells))], nil
}

func (that *Opponent) useHeuristic() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.rng.Float64() < that.heuristicRate
}

func (that *Opponent) mediumMove(board entity.Board, mark entity.Mark) (entity.Cell, error) {
	if that.useHeuristic() {
		if cell, ok := WinningCell(board, mark); ok {
			return cell, nil
		}

		if cell, ok := WinningCell(board, mark.Opponent()); ok {
			return cell, nil
		}
	}

	return that.randomCell(board)
}

// WinningCell returns the first empty cell, in row-major order, that completes a line for mark.
// Each candidate is tried on its own copy of the board.
func WinningCell(board entity.Board, mark entity.Mark) (entity.Cell, bool) {
	for _, cell := range board.EmptyCells() {
		if board.With(cell, mark).HasWon(mark) {
			return cell, true
		}
	}

	return entity.Cell{}, false
}
