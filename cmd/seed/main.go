package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/openhire/ranker/internal/seeder"
	"github.com/openhire/ranker/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumJobs     = 5
	defaultCandidates  = 50
	defaultQuestions   = 10
	defaultTopN        = 10
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSettleDelay = 5 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9090", "Base URL of the service")
		numJobs     = flag.Int("jobs", defaultNumJobs, "Number of jobs to create")
		candidates  = flag.Int("candidates", defaultCandidates, "Number of candidates per job")
		questions   = flag.Int("questions", defaultQuestions, "Number of questions per assessment")
		topN        = flag.Int("top", defaultTopN, "Number of top candidates to fetch per job")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settleDelay = flag.Duration("settle", defaultSettleDelay, "Wait between submission and verification")
		skipVerify  = flag.Bool("skip-verify", false, "Skip the ranking verification pass")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &seeder.Config{
		BaseURL:     *baseURL,
		NumJobs:     *numJobs,
		Candidates:  *candidates,
		Questions:   *questions,
		TopN:        *topN,
		Workers:     *workers,
		Timeout:     *timeout,
		Verbose:     *verbose,
		SkipVerify:  *skipVerify,
		SettleDelay: *settleDelay,
	}

	if err := seeder.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
