// Package loadgen drives a running brewrank service with simulated owners
// and checks the rankings it produces.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/brewrank/pkg/logger"
)

// ErrViolations is returned when a ranked list breaks an ordering rule.
var ErrViolations = errors.New("ranking violations found")

const (
	stateAwaiting  = "awaiting_comparison"
	stateCommitted = "committed"
)

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting brewrank load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.Users),
		logger.Int("beersPerUser", config.BeersPerUser),
		logger.Int("workers", config.Workers),
		logger.String("list", config.ListName),
		logger.Duration("timeout", config.Timeout))

	client, err := NewClient(config.BaseURL, config.AuthSecret, config.Timeout)
	if err != nil {
		return stats, err
	}

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Prepare the beer pool and tasters
	pool, err := preparePool(ctx, client, config.BeersPerUser, stats)
	if err != nil {
		return stats, err
	}
	tasters := generateTasters(config.Users, config.BeersPerUser, pool)

	// Step 3: Place every taster's beers concurrently
	done := placeAll(ctx, client, config, tasters, stats)

	// Step 4: Verify the resulting lists
	verifyErr := verifyResults(ctx, client, config, done, stats)

	stats.Requests = client.Requests()
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.UsersFailed > 0 {
		return stats, fmt.Errorf("%d of %d users failed", stats.UsersFailed, config.Users)
	}
	return stats, verifyErr
}

// placeAll runs every taster through the placement flow on a worker pool
// and returns the tasters that finished.
func placeAll(ctx context.Context, client *Client, config *Config, tasters []Taster, stats *Stats) []Taster {
	var (
		placed      int64
		comparisons int64
		merged      int64
		failed      int64
		mu          sync.Mutex
		done        = make([]Taster, 0, len(tasters))
		latencies   = make([]float64, 0, len(tasters)*config.BeersPerUser)
	)

	jobs := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				t := tasters[idx]
				res, err := placeTaster(ctx, client, config.ListName, t)
				atomic.AddInt64(&placed, int64(res.placed))
				atomic.AddInt64(&comparisons, int64(res.comparisons))
				atomic.AddInt64(&merged, int64(res.merged))
				mu.Lock()
				latencies = append(latencies, res.latencies...)
				mu.Unlock()
				if err != nil {
					atomic.AddInt64(&failed, 1)
					logger.Get().Warn(ctx, "placement failed",
						logger.String("owner", t.Owner), logger.Error(err))
					continue
				}
				if config.Verbose {
					logger.Get().Debug(ctx, "owner placed",
						logger.String("owner", t.Owner),
						logger.Int("comparisons", res.comparisons))
				}
				mu.Lock()
				done = append(done, t)
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range tasters {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.BeersPlaced = int(placed)
	stats.Comparisons = int(comparisons)
	stats.Merged = int(merged)
	stats.UsersCompleted = len(done)
	stats.UsersFailed = len(tasters) - len(done)
	if summary, err := summarize(latencies); err == nil {
		stats.PlacementMs = summary
	}

	logger.Get().Info(ctx, "placement completed",
		logger.Int("completed", stats.UsersCompleted),
		logger.Int("failed", int(failed)),
		logger.Int("comparisons", stats.Comparisons))
	return done
}

type placeResult struct {
	placed      int
	comparisons int
	merged      int
	latencies   []float64
}

// placeTaster adds each of t's beers and answers every prompt by taste.
func placeTaster(ctx context.Context, client *Client, list string, t Taster) (placeResult, error) {
	var res placeResult
	for _, beerID := range t.Order {
		start := time.Now()
		p, err := client.AddCandidate(ctx, t.Owner, list, beerID)
		if err != nil {
			return res, fmt.Errorf("add %s: %w", beerID, err)
		}
		for prompts := 0; p.State == stateAwaiting; prompts++ {
			if prompts >= maxPromptsPerPlacement || p.Prompt == nil {
				return res, fmt.Errorf("add %s: session did not converge", beerID)
			}
			winner := p.Prompt.Opponent.ID
			if t.Prefers(p.Prompt.Candidate.ID, p.Prompt.Opponent.ID) {
				winner = p.Prompt.Candidate.ID
			}
			p, err = client.Submit(ctx, t.Owner, list, p.SessionToken, winner)
			if err != nil {
				return res, fmt.Errorf("compare %s: %w", beerID, err)
			}
			res.comparisons++
		}
		if p.State != stateCommitted {
			return res, fmt.Errorf("add %s: ended in state %q", beerID, p.State)
		}
		res.placed++
		res.latencies = append(res.latencies, float64(time.Since(start).Microseconds())/1000)
		if p.Merged {
			res.merged++
		}
	}
	return res, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var requestsPerSecond float64
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("usersCompleted", stats.UsersCompleted),
		logger.Int("usersFailed", stats.UsersFailed),
		logger.Int("beersPlaced", stats.BeersPlaced),
		logger.Int("beersCreated", stats.BeersCreated),
		logger.Int("comparisons", stats.Comparisons),
		logger.Int("merged", stats.Merged),
		logger.Int("listsVerified", stats.ListsVerified),
		logger.Int("violations", stats.Violations),
		logger.Float64("agreementMean", stats.Agreement.Mean),
		logger.Float64("agreementMin", stats.Agreement.Min),
		logger.Float64("placementP50Ms", stats.PlacementMs.Median),
		logger.Float64("placementP95Ms", stats.PlacementMs.P95),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
