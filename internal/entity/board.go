package entity

// Mark is the content of a single cell.
type Mark uint8

const (
	Empty Mark = iota
	Cross
	Circle
)

// BoardSize is the number of rows and columns.
const BoardSize = 3

// Opponent returns the other player's mark. Empty has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case Cross:
		return Circle
	case Circle:
		return Cross
	default:
		return Empty
	}
}

func (that Mark) IsPlayer() bool {
	return that == Cross || that == Circle
}

// String is for logs only.
func (that Mark) String() string {
	switch that {
	case Cross:
		return "cross"
	case Circle:
		return "circle"
	default:
		return "empty"
	}
}

// Cell addresses the board in row-major order.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (that Cell) InBounds() bool {
	return that.Row >= 0 && that.Row < BoardSize && that.Col >= 0 && that.Col < BoardSize
}

// Index is the row-major position of the cell, 0..8.
func (that Cell) Index() int {
	return that.Row*BoardSize + that.Col
}

// Board is a value type: assigning it or passing it to a function makes an independent copy.
type Board [BoardSize][BoardSize]Mark

var lines = [8][3]Cell{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

func (that Board) At(cell Cell) Mark {
	return that[cell.Row][cell.Col]
}

// With returns a copy of the board with mark placed on cell. The receiver is not modified.
func (that Board) With(cell Cell, mark Mark) Board {
	that[cell.Row][cell.Col] = mark
	return that
}

// HasWon reports whether mark owns a full row, column or diagonal.
func (that Board) HasWon(mark Mark) bool {
	if !mark.IsPlayer() {
		return false
	}

	for _, line := range lines {
		if that.At(line[0]) == mark && that.At(line[1]) == mark && that.At(line[2]) == mark {
			return true
		}
	}

	return false
}

func (that Board) IsFull() bool {
	for _, row := range that {
		for _, mark := range row {
			if mark == Empty {
				return false
			}
		}
	}

	return true
}

// EmptyCells lists free cells in row-major order.
func (that Board) EmptyCells() []Cell {
	cells := make([]Cell, 0, BoardSize*BoardSize)
	for row := range BoardSize {
		for col := range BoardSize {
			if that[row][col] == Empty {
				cells = append(cells, Cell{Row: row, Col: col})
			}
		}
	}

	return cells
}

func (that Board) Count(mark Mark) int {
	count := 0
	for _, row := range that {
		for _, cell := range row {
			if cell == mark {
				count++
			}
		}
	}

	return count
}

// Cells flattens the board in row-major order.
func (that Board) Cells() [BoardSize * BoardSize]Mark {
	var cells [BoardSize * BoardSize]Mark
	for row := range BoardSize {
		for col := range BoardSize {
			cells[row*BoardSize+col] = that[row][col]
		}
	}

	return cells
}

// BoardFromCells is the inverse of Cells.
func BoardFromCells(cells [BoardSize * BoardSize]Mark) Board {
	var board Board
	for i, mark := range cells {
		board[i/BoardSize][i%BoardSize] = mark
	}

	return board
}
