package bot

import "github.com/rocketscienceinc/tictactoe-bot/internal/entity"

// winScore is discounted by the number of marks on the final board, so a quicker win scores
// higher and a later loss scores less negative. Cross maximizes, Circle minimizes.
const winScore = 10

// BestMove runs a full minimax search for mark and returns the first cell, in row-major order,
// that reaches the best score.
func BestMove(board entity.Board, mark entity.Mark) (entity.Cell, error) {
	if !mark.IsPlayer() {
		return entity.Cell{}, ErrNotAPlayerMark
	}

	cells := board.EmptyCells()
	if len(cells) == 0 {
		return entity.Cell{}, ErrNoLegalMove
	}

	// scores depend only on the board, so one table per search is enough
	memo := make(map[entity.Board]int)

	best, bestScore := cells[0], 0
	for i, cell := range cells {
		score := minimax(board.With(cell, mark), mark.Opponent(), memo)
		if i == 0 || improves(mark, score, bestScore) {
			best, bestScore = cell, score
		}
	}

	return best, nil
}

// Score returns the minimax value of board with toMove to play.
func Score(board entity.Board, toMove entity.Mark) int {
	return minimax(board, toMove, make(map[entity.Board]int))
}

func minimax(board entity.Board, toMove entity.Mark, memo map[entity.Board]int) int {
	if score, ok := terminalScore(board); ok {
		return score
	}

	if score, ok := memo[board]; ok {
		return score
	}

	first := true
	best := 0
	for _, cell := range board.EmptyCells() {
		score := minimax(board.With(cell, toMove), toMove.Opponent(), memo)
		if first || improves(toMove, score, best) {
			best, first = score, false
		}
	}

	memo[board] = best

	return best
}

func terminalScore(board entity.Board) (int, bool) {
	filled := entity.BoardSize*entity.BoardSize - board.Count(entity.Empty)

	switch {
	case board.HasWon(entity.Cross):
		return winScore - filled, true
	case board.HasWon(entity.Circle):
		return filled - winScore, true
	case board.IsFull():
		return 0, true
	default:
		return 0, false
	}
}

func improves(mark entity.Mark, score, than int) bool {
	if mark == entity.Cross {
		return score > than
	}

	return score < than
}
