package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	AuthSecret   string        // HS256 secret shared with the service
	Users        int           // Number of simulated owners
	BeersPerUser int           // Beers each owner places into its list
	ListName     string        // List every owner ranks into
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	LogFile      string        // Log file for run output
	Verbose      bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	UsersCompleted int
	UsersFailed    int
	BeersPlaced    int
	Comparisons    int
	Merged         int
	BeersCreated   int
	ListsVerified  int
	Violations     int
	Agreement      Summary // per-list share of pairs ranked in taste order
	PlacementMs    Summary // wall time of one beer placement
	Requests       int64
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
