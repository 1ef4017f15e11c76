package loadgen

import "time"

// Defaults for a load run.
const (
	DefaultUsers        = 20
	DefaultBeersPerUser = 8
	DefaultListName     = "Load Test"
	DefaultTimeout      = 30 * time.Second
)

const (
	// WorkerChannelMultiplier sizes the job channel relative to the worker count.
	WorkerChannelMultiplier = 2
	// maxPromptsPerPlacement bounds the comparisons one placement may take.
	maxPromptsPerPlacement = 1000
	catalogPageLimit       = 50
	syntheticBrewery       = "Loadgen Brewing"
	syntheticType          = "Lager"
)
