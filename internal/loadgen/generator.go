package loadgen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/google/uuid"
	"github.com/okian/brewrank/pkg/logger"
)

const randomFloatDivisor = 1000000

// Taster is one simulated owner with a hidden taste for every beer of the
// pool. Comparisons are answered by taste; higher wins.
type Taster struct {
	Owner string
	Order []string           // placement order
	Taste map[string]float64 // beer id -> hidden preference
}

// Prefers reports whether the taster picks a over b. Ties go to a.
func (t Taster) Prefers(a, b string) bool {
	return t.Taste[a] >= t.Taste[b]
}

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// shuffle returns a random permutation of ids.
func shuffle(ids []string) []string {
	out := append([]string(nil), ids...)
	for i := len(out) - 1; i > 0; i-- {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		j := int(n.Int64())
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// generateTasters builds n tasters over pool, each placing perUser beers.
func generateTasters(n, perUser int, pool []string) []Taster {
	tasters := make([]Taster, n)
	for i := range tasters {
		order := shuffle(pool)[:perUser]
		taste := make(map[string]float64, len(order))
		for _, id := range order {
			taste[id] = getRandomFloat()
		}
		tasters[i] = Taster{Owner: "loadgen-" + uuid.NewString(), Order: order, Taste: taste}
	}
	return tasters
}

// preparePool returns at least size catalog beer ids, creating synthetic
// beers when the catalog is too small.
func preparePool(ctx context.Context, client *Client, size int, stats *Stats) ([]string, error) {
	beers, err := client.SearchBeers(ctx, "", catalogPageLimit)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}
	pool := make([]string, 0, size)
	for _, b := range beers {
		pool = append(pool, b.ID)
	}

	owner := "loadgen-curator"
	for len(pool) < size {
		name := "Loadgen Lager " + uuid.NewString()[:8]
		b, err := client.AddBeer(ctx, owner, name, syntheticBrewery, syntheticType)
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusConflict {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("add synthetic beer: %w", err)
		}
		pool = append(pool, b.ID)
		stats.BeersCreated++
	}

	logger.Get().Info(ctx, "beer pool ready",
		logger.Int("pool", len(pool)),
		logger.Int("created", stats.BeersCreated))
	return pool, nil
}
