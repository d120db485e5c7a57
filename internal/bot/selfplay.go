package bot

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

// Tally counts the outcomes of a series of games.
type Tally struct {
	CrossWins  int `json:"cross_wins"`
	CircleWins int `json:"circle_wins"`
	Draws      int `json:"draws"`
}

func (that *Tally) add(outcome entity.Outcome) {
	switch {
	case outcome.Status == entity.Draw:
		that.Draws++
	case outcome.Winner == entity.Cross:
		that.CrossWins++
	case outcome.Winner == entity.Circle:
		that.CircleWins++
	}
}

// SelfPlay plays games between two bots, cross moving first, through the same engine sessions use.
func (that *Opponent) SelfPlay(cross, circle Difficulty, games int) (Tally, error) {
	var tally Tally

	for i := range games {
		game := entity.NewGame(entity.PlayerVsPlayer, "selfplay")

		for !game.IsFinished() {
			difficulty := cross
			if game.Turn() == entity.Circle {
				difficulty = circle
			}

			cell, err := that.ChooseMove(game.Board(), game.Turn(), difficulty)
			if err != nil {
				return tally, fmt.Errorf("game %d: %w", i, err)
			}

			if err = game.ApplyMove(cell.Row, cell.Col, game.Turn()); err != nil {
				return tally, fmt.Errorf("game %d: %w", i, err)
			}
		}

		tally.add(game.Outcome())
	}

	return tally, nil
}
