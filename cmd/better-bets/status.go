package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/better-bets/internal/datasource"
	"github.com/yourusername/better-bets/internal/models"
)

// upstreamStatus is what the status command needs from the odds provider.
// A successful quota lookup doubles as the reachability check.
type upstreamStatus interface {
	Name() string
	Quota(ctx context.Context) (map[string]string, error)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check upstream reachability and quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		displayStatus(ctx, cmd.OutOrStdout(), a.oddsAPI, statusSettings{
			sportsbooks:  a.cfg.SportsbookKeys(),
			maxOddsAge:   a.cfg.EV.MaxOddsAgeSeconds,
			cacheTTL:     a.cfg.OddsAPI.CacheTTLSeconds,
			breakerOpen:  a.httpClient.IsOpen(),
			apiKeyLoaded: a.cfg.OddsAPI.APIKey != "",
		})
		return nil
	},
}

type statusSettings struct {
	sportsbooks  []string
	maxOddsAge   int
	cacheTTL     int
	breakerOpen  bool
	apiKeyLoaded bool
}

func displayStatus(ctx context.Context, out io.Writer, upstream upstreamStatus, s statusSettings) {
	fmt.Fprintln(out, "Better Bets Status")
	fmt.Fprintln(out, strings.Repeat("=", 40))

	fmt.Fprintf(out, "Odds API (%s): ", upstream.Name())
	quota, err := upstream.Quota(ctx)
	if err != nil {
		fmt.Fprintln(out, "UNAVAILABLE")
		fmt.Fprintf(out, "   Error: %v\n", err)
		fmt.Fprintf(out, "   Code: %s\n", datasource.CodeOf(err))
	} else {
		fmt.Fprintln(out, "ONLINE")
		fmt.Fprintf(out, "   Requests remaining: %s\n", valueOr(quota, models.MetaRequestsRemaining))
		fmt.Fprintf(out, "   Requests used: %s\n", valueOr(quota, models.MetaRequestsUsed))
	}

	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintf(out, "  API key loaded: %t\n", s.apiKeyLoaded)
	fmt.Fprintf(out, "  Sportsbooks: %s\n", strings.Join(s.sportsbooks, ", "))
	fmt.Fprintf(out, "  Max odds age: %d seconds\n", s.maxOddsAge)
	fmt.Fprintf(out, "  Feed cache TTL: %d seconds\n", s.cacheTTL)
	fmt.Fprintf(out, "  Circuit breaker open: %t\n", s.breakerOpen)
}

func valueOr(m map[string]string, key string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return "unknown"
}
