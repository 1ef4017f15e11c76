package loadgen

import (
	"context"
	"fmt"

	"github.com/okian/brewrank/internal/domain/types"
	"github.com/okian/brewrank/pkg/logger"
)

// verifyResults fetches every finished taster's list and checks it.
func verifyResults(ctx context.Context, client *Client, config *Config, tasters []Taster, stats *Stats) error {
	logger.Get().Info(ctx, "verifying ranked lists", logger.Int("lists", len(tasters)))

	agreements := make([]float64, 0, len(tasters))
	for _, t := range tasters {
		ranked, err := client.Ranked(ctx, t.Owner, config.ListName)
		if err != nil {
			return fmt.Errorf("fetch list of %s: %w", t.Owner, err)
		}
		problems := checkRanked(ranked, len(t.Order))
		for _, p := range problems {
			logger.Get().Warn(ctx, "ranking violation", logger.String("owner", t.Owner), logger.String("problem", p))
		}
		stats.Violations += len(problems)
		agreements = append(agreements, agreement(ranked, t))
		stats.ListsVerified++
	}
	summary, err := summarize(agreements)
	if err != nil {
		return fmt.Errorf("summarize agreement: %w", err)
	}
	stats.Agreement = summary
	if stats.Violations > 0 {
		return fmt.Errorf("%w: %d", ErrViolations, stats.Violations)
	}
	return nil
}

// checkRanked reports every ordering rule the list breaks: ratings are
// non-increasing, positions start at one and are dense, equal ratings
// share a position.
func checkRanked(ranked types.RankedList, want int) []string {
	var problems []string
	if len(ranked.Beers) != want {
		problems = append(problems, fmt.Sprintf("list has %d beers, want %d", len(ranked.Beers), want))
	}
	for i, b := range ranked.Beers {
		if i == 0 {
			if b.Position != 1 {
				problems = append(problems, fmt.Sprintf("first position is %d", b.Position))
			}
			continue
		}
		prev := ranked.Beers[i-1]
		switch {
		case b.EloScore > prev.EloScore:
			problems = append(problems, fmt.Sprintf("entry %d rated above entry %d", i, i-1))
		case b.EloScore == prev.EloScore && b.Position != prev.Position:
			problems = append(problems, fmt.Sprintf("tied entries %d and %d have different positions", i-1, i))
		case b.EloScore < prev.EloScore && b.Position != prev.Position+1:
			problems = append(problems, fmt.Sprintf("entry %d position %d after %d", i, b.Position, prev.Position))
		}
	}
	return problems
}

// agreement is the share of ranked pairs the taster agrees with.
func agreement(ranked types.RankedList, t Taster) float64 {
	var pairs, agreed int
	for i := 0; i < len(ranked.Beers); i++ {
		for j := i + 1; j < len(ranked.Beers); j++ {
			pairs++
			if t.Prefers(ranked.Beers[i].ID, ranked.Beers[j].ID) {
				agreed++
			}
		}
	}
	if pairs == 0 {
		return 1
	}
	return float64(agreed) / float64(pairs)
}
