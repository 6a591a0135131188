package main

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yourusername/better-bets/internal/api"
	"github.com/yourusername/better-bets/internal/ev"
	"github.com/yourusername/better-bets/internal/models"
)

type calculateOptions struct {
	odds        string
	probability string
	stake       string
	ageSeconds  int
	timestamp   string
	source      string
	bookmaker   string
	event       string
	outcome     string
}

var calcOpts calculateOptions

func init() {
	f := calculateCmd.Flags()
	f.StringVar(&calcOpts.odds, "odds", "", "Decimal odds, e.g. 2.10")
	f.StringVar(&calcOpts.probability, "probability", "", "Your probability estimate, 0 < p < 1")
	f.StringVar(&calcOpts.stake, "stake", "", "Cash stake")
	f.IntVar(&calcOpts.ageSeconds, "age-seconds", 0, "Age of the quoted odds in seconds")
	f.StringVar(&calcOpts.timestamp, "timestamp", "", "ISO 8601 time the odds were quoted (overrides --age-seconds)")
	f.StringVar(&calcOpts.source, "source", "manual", "Where the odds came from")
	f.StringVar(&calcOpts.bookmaker, "bookmaker", "", "Bookmaker the price was quoted by")
	f.StringVar(&calcOpts.event, "event", "", "Event description")
	f.StringVar(&calcOpts.outcome, "outcome", "", "Outcome the bet is on")

	_ = calculateCmd.MarkFlagRequired("odds")
	_ = calculateCmd.MarkFlagRequired("probability")
	_ = calculateCmd.MarkFlagRequired("stake")
}

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate the EV of a straight cash bet",
	Example: `  better-bets calculate --odds 2.10 --probability 0.52 --stake 100
  better-bets calculate --odds 1.91 --probability 0.55 --stake 25 --age-seconds 20 --bookmaker DraftKings`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		calc := ev.NewCalculator(cfg.CalculatorConfig(), nil)
		return runCalculate(cmd.OutOrStdout(), calc, calcOpts, time.Now())
	},
}

func runCalculate(out io.Writer, calc *ev.Calculator, opts calculateOptions, now time.Time) error {
	input, err := opts.input(now)
	if err != nil {
		return err
	}

	result, err := calc.CalculateStraightBetEV(input)
	if err != nil {
		_ = writeJSON(out, map[string]string{
			"error":   string(models.KindOf(err)),
			"message": err.Error(),
		})
		return err
	}
	return writeJSON(out, api.NewEVResponse(result))
}

func (o calculateOptions) input(now time.Time) (models.EVInput, error) {
	odds, err := decimal.NewFromString(o.odds)
	if err != nil {
		return models.EVInput{}, fmt.Errorf("invalid --odds %q: %w", o.odds, err)
	}
	probability, err := decimal.NewFromString(o.probability)
	if err != nil {
		return models.EVInput{}, fmt.Errorf("invalid --probability %q: %w", o.probability, err)
	}
	stake, err := decimal.NewFromString(o.stake)
	if err != nil {
		return models.EVInput{}, fmt.Errorf("invalid --stake %q: %w", o.stake, err)
	}

	ts := now.Add(-time.Duration(o.ageSeconds) * time.Second)
	if o.timestamp != "" {
		if ts, err = api.ParseTimestamp(o.timestamp); err != nil {
			return models.EVInput{}, fmt.Errorf("invalid --timestamp: %w", err)
		}
	}

	var detail *models.OddsSourceDetail
	if o.bookmaker != "" || o.event != "" || o.outcome != "" {
		detail = &models.OddsSourceDetail{
			Bookmaker: o.bookmaker,
			Event:     o.event,
			Outcome:   o.outcome,
		}
	}

	return models.EVInput{
		Odds:             odds,
		TrueProbability:  probability,
		CashStake:        stake,
		OddsTimestamp:    ts,
		OddsSource:       o.source,
		OddsSourceDetail: detail,
	}, nil
}
