package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rocketscienceinc/tictactoe-bot/internal/bot"
)

var (
	flagGames  int
	flagCross  string
	flagCircle string
	flagSeed   uint64
)

var selfplayCmd = &cobra.Command{
	Use:   "selfplay",
	Short: "Play the bot against itself and print the results",
	Long: `Plays a series of games between two bots without any storage or network.
Hard against hard must always end in a draw.`,
	Args: cobra.NoArgs,
	RunE: runSelfPlay,
}

func init() {
	selfplayCmd.Flags().IntVar(&flagGames, "games", 100, "Number of games")
	selfplayCmd.Flags().StringVar(&flagCross, "cross", "hard", "Difficulty playing X: easy, medium or hard")
	selfplayCmd.Flags().StringVar(&flagCircle, "circle", "hard", "Difficulty playing O: easy, medium or hard")
	selfplayCmd.Flags().Uint64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
}

func runSelfPlay(cmd *cobra.Command, _ []string) error {
	cross, err := bot.ParseDifficulty(flagCross)
	if err != nil {
		return err
	}

	circle, err := bot.ParseDifficulty(flagCircle)
	if err != nil {
		return err
	}

	var opts []bot.Option
	if flagSeed != 0 {
		opts = append(opts, bot.WithSeed(flagSeed))
	}

	tally, err := bot.NewOpponent(opts...).SelfPlay(cross, circle, flagGames)
	if err != nil {
		return fmt.Errorf("self-play failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (X) vs %s (O), %d games\n", cross, circle, flagGames)
	fmt.Fprintf(out, "X wins: %d\nO wins: %d\ndraws:  %d\n", tally.CrossWins, tally.CircleWins, tally.Draws)

	return nil
}
