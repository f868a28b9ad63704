package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/lomba/internal/seed"
	"github.com/okian/lomba/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
	defaultRunTime = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		teams    = flag.Int("teams", seed.DefaultTeamsPerCategory, "Teams per category")
		judges   = flag.Int("judges", seed.DefaultJudges, "Judges scoring every team")
		resubmit = flag.Int("resubmit", seed.DefaultResubmit, "Sheets sent twice to exercise duplicate detection")
		seedVal  = flag.Uint64("seed", seed.DefaultSeed, "Seed of the demo data")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout  = flag.Duration("timeout", seed.DefaultTimeout, "HTTP request timeout")
		wait     = flag.Duration("wait", seed.DefaultWaitTimeout, "How long to wait for queued sheets")
		verbose  = flag.Bool("verbose", false, "Log every leaderboard row")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTime)
	defer cancel()

	config := seed.Config{
		BaseURL:          *baseURL,
		TeamsPerCategory: *teams,
		Judges:           *judges,
		Resubmit:         *resubmit,
		Seed:             *seedVal,
		Workers:          *workers,
		Timeout:          *timeout,
		WaitTimeout:      *wait,
		Verbose:          *verbose,
	}

	if _, err := seed.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "seed failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
