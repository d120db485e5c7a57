package bot

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

const (
	x = entity.Cross
	o = entity.Circle
	e = entity.Empty
)

func TestOpponent_Easy(t *testing.T) {
	t.Run("Picks an empty cell", func(t *testing.T) {
		// Given: a board with two free cells
		board := entity.Board{
			{x, o, x},
			{o, e, o},
			{x, e, x},
		}
		opponent := NewOpponent(WithSeed(1))

		for range 50 {
			// When: asking for an easy move
			cell, err := opponent.ChooseMove(board, o, Easy)

			// Then: one of the free cells is returned
			require.NoError(t, err)
			assert.Equal(t, e, board.At(cell))
		}
	})

	t.Run("Fails on a full board", func(t *testing.T) {
		// Given: a full board
		board := entity.Board{
			{x, o, x},
			{o, x, o},
			{o, x, o},
		}

		// When: asking for a move at any difficulty
		for _, difficulty := range []Difficulty{Easy, Medium, Hard} {
			_, err := NewOpponent().ChooseMove(board, x, difficulty)

			// Then: ErrNoLegalMove is returned
			require.ErrorIs(t, err, ErrNoLegalMove, difficulty.String())
		}
	})

	t.Run("Rejects Empty as the mover", func(t *testing.T) {
		_, err := NewOpponent().ChooseMove(entity.Board{}, e, Easy)

		require.ErrorIs(t, err, ErrNotAPlayerMark)
	})

	t.Run("Rejects an unknown difficulty", func(t *testing.T) {
		_, err := NewOpponent().ChooseMove(entity.Board{}, x, Difficulty(42))

		require.ErrorIs(t, err, ErrUnknownDifficulty)
	})
}

func TestOpponent_Medium(t *testing.T) {
	heuristic := NewOpponent(WithSeed(3), WithHeuristicRate(1))

	t.Run("Completes its own line", func(t *testing.T) {
		// Given: Cross can win only on the main diagonal
		board := entity.Board{
			{x, e, e},
			{o, x, e},
			{o, e, e},
		}

		// When: asking Medium for Cross's move
		cell, err := heuristic.ChooseMove(board, x, Medium)

		// Then: it takes the winning cell
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 2, Col: 2}, cell)
	})

	t.Run("Prefers winning over blocking", func(t *testing.T) {
		// Given: both players have two in a row
		board := entity.Board{
			{o, o, e},
			{x, x, e},
			{e, e, e},
		}

		// When: asking Medium for Cross's move
		cell, err := heuristic.ChooseMove(board, x, Medium)

		// Then: it wins instead of blocking (0, 2)
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 1, Col: 2}, cell)
	})

	t.Run("Blocks the opponent", func(t *testing.T) {
		// Given: Cross threatens the bottom row
		board := entity.Board{
			{e, e, e},
			{e, o, e},
			{x, x, e},
		}

		// When: asking Medium for Circle's move
		cell, err := heuristic.ChooseMove(board, o, Medium)

		// Then: it blocks
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 2, Col: 2}, cell)
	})

	t.Run("Does not modify the caller's board", func(t *testing.T) {
		// Given: a board and a copy of it
		board := entity.Board{
			{x, e, e},
			{o, x, e},
			{o, e, e},
		}
		before := board

		// When: the heuristic evaluates candidates
		_, err := heuristic.ChooseMove(board, x, Medium)

		// Then: the board is unchanged
		require.NoError(t, err)
		assert.Equal(t, before, board)
	})

	t.Run("Falls back to a random cell", func(t *testing.T) {
		// Given: an opponent that never uses the heuristic
		random := NewOpponent(WithSeed(5), WithHeuristicRate(0))
		board := entity.Board{
			{x, e, e},
			{o, x, e},
			{o, e, e},
		}

		// When: asking for a move
		cell, err := random.ChooseMove(board, x, Medium)

		// Then: some empty cell is returned
		require.NoError(t, err)
		assert.Equal(t, e, board.At(cell))
	})
}

func TestWinningCell(t *testing.T) {
	// Given: Circle owns two cells of the middle column
	board := entity.Board{
		{x, o, x},
		{e, o, e},
		{e, e, e},
	}

	// When: looking for a winning cell for each side
	cell, ok := WinningCell(board, o)
	_, crossCan := WinningCell(board, x)

	// Then: only Circle has one
	require.True(t, ok)
	assert.Equal(t, entity.Cell{Row: 2, Col: 1}, cell)
	assert.False(t, crossCan)
}

func TestBestMove(t *testing.T) {
	t.Run("Opens in the first row-major cell", func(t *testing.T) {
		// Given: an empty board, where every opening draws
		var board entity.Board

		// When: searching for Cross
		cell, err := BestMove(board, x)

		// Then: the tie-break picks (0, 0)
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 0, Col: 0}, cell)
		assert.Equal(t, 0, Score(board, x))
	})

	t.Run("Prefers the immediate win over a slower forced win", func(t *testing.T) {
		// Given: Cross wins now at (2, 0), and (0, 1) also forces a win one move later
		board := entity.Board{
			{o, e, x},
			{e, x, e},
			{e, e, o},
		}

		// When: searching for Cross
		cell, err := BestMove(board, x)

		// Then: the quicker win is chosen even though (0, 1) comes first
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 2, Col: 0}, cell)
		assert.Equal(t, winScore-5, Score(board.With(cell, x), o))
		assert.Equal(t, winScore-7, Score(board.With(entity.Cell{Row: 0, Col: 1}, x), o))
	})

	t.Run("Blocks as Circle", func(t *testing.T) {
		// Given: Cross threatens the bottom row
		board := entity.Board{
			{e, e, e},
			{e, o, e},
			{x, x, e},
		}

		// When: searching for Circle
		cell, err := BestMove(board, o)

		// Then: the only non-losing move is chosen
		require.NoError(t, err)
		assert.Equal(t, entity.Cell{Row: 2, Col: 2}, cell)
	})

	t.Run("Is deterministic", func(t *testing.T) {
		board := entity.Board{
			{x, e, e},
			{e, o, e},
			{e, e, e},
		}

		first, err := BestMove(board, x)
		require.NoError(t, err)

		for range 10 {
			again, err := BestMove(board, x)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

// playOut plays a game to the end, asking choose for every move.
func playOut(t *testing.T, choose func(board entity.Board, mark entity.Mark) entity.Cell) entity.Outcome {
	t.Helper()

	game := entity.NewGame(entity.PlayerVsPlayer, "selfplay")
	for !game.IsFinished() {
		cell := choose(game.Board(), game.Turn())
		require.NoError(t, game.ApplyMove(cell.Row, cell.Col, game.Turn()))
	}

	return game.Outcome()
}

func TestHardSelfPlay(t *testing.T) {
	opponent := NewOpponent()

	// When: Hard plays both sides
	outcome := playOut(t, func(board entity.Board, mark entity.Mark) entity.Cell {
		cell, err := opponent.ChooseMove(board, mark, Hard)
		require.NoError(t, err)
		return cell
	})

	// Then: perfect play is a draw
	assert.Equal(t, entity.Outcome{Status: entity.Draw}, outcome)
}

func TestHardNeverLoses(t *testing.T) {
	opponent := NewOpponent()
	rng := rand.New(rand.NewPCG(2024, 10))

	for _, botMark := range []entity.Mark{o, x} {
		for trial := range 1000 {
			// Given: a random player against Hard
			outcome := playOut(t, func(board entity.Board, mark entity.Mark) entity.Cell {
				if mark == botMark {
					cell, err := opponent.ChooseMove(board, mark, Hard)
					require.NoError(t, err)
					return cell
				}

				cells := board.EmptyCells()
				return cells[rng.IntN(len(cells))]
			})

			// Then: the bot wins or draws
			if outcome.Status == entity.Won {
				require.Equal(t, botMark, outcome.Winner, "trial %d, bot %s", trial, botMark)
			}
		}
	}
}

func TestOpponent_Concurrent(t *testing.T) {
	opponent := NewOpponent(WithSeed(9))
	board := entity.Board{
		{x, e, e},
		{e, o, e},
		{e, e, e},
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for _, difficulty := range []Difficulty{Easy, Medium, Hard} {
				cell, err := opponent.ChooseMove(board, x, difficulty)
				assert.NoError(t, err)
				assert.Equal(t, e, board.At(cell))
			}
		}()
	}
	wg.Wait()
}

func TestDifficulty(t *testing.T) {
	for _, difficulty := range []Difficulty{Easy, Medium, Hard} {
		parsed, err := ParseDifficulty(difficulty.String())
		require.NoError(t, err)
		assert.Equal(t, difficulty, parsed)
	}

	_, err := ParseDifficulty("impossible")
	require.ErrorIs(t, err, ErrUnknownDifficulty)

	difficulty, ok := DifficultyFor(entity.BotMedium)
	assert.True(t, ok)
	assert.Equal(t, Medium, difficulty)

	_, ok = DifficultyFor(entity.PlayerVsPlayer)
	assert.False(t, ok)
}

func TestOpponent_SelfPlay(t *testing.T) {
	opponent := NewOpponent(WithSeed(11))

	t.Run("Hard against itself always draws", func(t *testing.T) {
		tally, err := opponent.SelfPlay(Hard, Hard, 5)

		require.NoError(t, err)
		assert.Equal(t, Tally{Draws: 5}, tally)
	})

	t.Run("Hard never loses to Easy", func(t *testing.T) {
		tally, err := opponent.SelfPlay(Easy, Hard, 50)

		require.NoError(t, err)
		assert.Zero(t, tally.CrossWins)
		assert.Equal(t, 50, tally.CircleWins+tally.Draws)
	})

	t.Run("Rejects an unknown difficulty", func(t *testing.T) {
		_, err := opponent.SelfPlay(Difficulty(9), Hard, 1)

		require.ErrorIs(t, err, ErrUnknownDifficulty)
	})
}
