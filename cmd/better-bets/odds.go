package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/better-bets/internal/api"
	"github.com/yourusername/better-bets/internal/sports"
)

var oddsTimeout time.Duration

func init() {
	oddsCmd.Flags().DurationVar(&oddsTimeout, "timeout", 15*time.Second, "Request timeout")
}

var oddsCmd = &cobra.Command{
	Use:   "odds <sport_key>",
	Short: "Print validated odds for a sport",
	Long:  `Fetches odds for a sport from The Odds API and prints only the fresh, allow-listed, well-formed prices.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), oddsTimeout)
		defer cancel()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		return runOdds(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), a.odds, args[0])
	},
}

func runOdds(ctx context.Context, out, errOut io.Writer, provider api.OddsProvider, sportKey string) error {
	if !sports.IsSupported(sportKey) {
		_, _ = io.WriteString(errOut, "warning: "+sportKey+" is not in the sports catalogue\n")
	}

	resp, err := provider.GetValidatedOdds(ctx, sportKey)
	if err != nil {
		return err
	}
	return writeJSON(out, api.NewOddsResponse(resp, provider.Policy()))
}
