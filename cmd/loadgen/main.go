package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/brewrank/internal/loadgen"
)

// Default configuration constants.
const (
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		secret  = flag.String("secret", os.Getenv("BREWRANK_AUTH_SECRET"), "Auth secret shared with the service")
		users   = flag.Int("users", loadgen.DefaultUsers, "Number of simulated owners")
		beers   = flag.Int("beers", loadgen.DefaultBeersPerUser, "Beers each owner places")
		list    = flag.String("list", loadgen.DefaultListName, "List name")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout = flag.Duration("timeout", loadgen.DefaultTimeout, "HTTP request timeout")
		logFile = flag.String("log", "", "Log file (default: loadgen_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	if err := loadgen.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &loadgen.Config{
		BaseURL:      *baseURL,
		AuthSecret:   *secret,
		Users:        *users,
		BeersPerUser: *beers,
		ListName:     *list,
		Workers:      *workers,
		Timeout:      *timeout,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	if _, err := loadgen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
