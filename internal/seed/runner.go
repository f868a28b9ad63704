package seed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/pkg/logger"
)

// Run registers the demo event, submits every sheet, waits for the
// workers and verifies both public leaderboards.
func Run(ctx context.Context, config Config) (*Report, error) {
	config = withDefaults(config)
	log := logger.Get().Named("seed")
	report := &Report{
		StartTime: time.Now(),
		Entries:   make(map[model.Category]int),
	}

	log.Info(ctx, "starting lomba seed",
		logger.String("baseURL", config.BaseURL),
		logger.Int("teamsPerCategory", config.TeamsPerCategory),
		logger.Int("judges", config.Judges),
		logger.Int("workers", config.Workers),
		logger.Any("seed", config.Seed))

	client := NewHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return report, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate the event
	plan := Generate(config)
	report.SheetsGenerated = len(plan.Sheets)

	// Step 3: Register competitions and teams
	if err := register(ctx, client, plan); err != nil {
		return report, fmt.Errorf("registration failed: %w", err)
	}

	before, err := client.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("stats retrieval failed: %w", err)
	}

	// Step 4: Submit sheets concurrently, then resend some of them
	sheets := plan.Sheets
	if n := min(config.Resubmit, len(plan.Sheets)); n > 0 {
		sheets = append(append([]Sheet(nil), plan.Sheets...), plan.Sheets[:n]...)
	}
	submit(ctx, client, config.Workers, sheets, report)
	log.Info(ctx, "sheet submission completed",
		logger.Int("accepted", report.SheetsAccepted),
		logger.Int("duplicate", report.SheetsDuplicate),
		logger.Int("failed", report.SheetsFailed))

	// Step 5: Wait for processing
	target := before.Processed + before.Failed + int64(report.SheetsAccepted)
	if err := waitForWorkers(ctx, client, target, config.WaitTimeout, config.PollInterval); err != nil {
		return report, err
	}

	// Step 6: Fetch and verify both leaderboards
	var errs []error
	for _, category := range model.Categories() {
		entries, err := client.Leaderboard(ctx, category, false)
		if err != nil {
			return report, fmt.Errorf("leaderboard retrieval failed: %w", err)
		}
		report.Entries[category] = len(entries)
		if err := Verify(entries, expectationFor(plan, category, false)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", category, err))
		} else {
			logTop(ctx, log, category, entries, config.Verbose)
		}
	}
	hidden, err := client.Leaderboard(ctx, model.CategoryPutra, true)
	if err != nil {
		return report, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := Verify(hidden, expectationFor(plan, model.CategoryPutra, true)); err != nil {
		errs = append(errs, fmt.Errorf("%s with unpublished: %w", model.CategoryPutra, err))
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	displayFinalStats(ctx, log, report)

	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}
	log.Info(ctx, "seed completed successfully")
	return report, nil
}

func withDefaults(c Config) Config {
	if c.TeamsPerCategory <= 0 {
		c.TeamsPerCategory = DefaultTeamsPerCategory
	}
	if c.Judges <= 0 {
		c.Judges = DefaultJudges
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * workerMultiplier
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// register creates every competition and team. Entries left over from an
// earlier run are kept and only their visibility is reset.
func register(ctx context.Context, client *HTTPClient, plan Plan) error {
	log := logger.Get().Named("seed")
	for _, comp := range plan.Competitions {
		ok, err := client.CreateCompetition(ctx, comp)
		if err != nil {
			return fmt.Errorf("competition %q: %w", comp.ID, err)
		}
		if !ok {
			log.Debug(ctx, "competition already registered", logger.String("competition_id", comp.ID))
			if err := client.Publish(ctx, comp.ID, comp.IsPublished); err != nil {
				return fmt.Errorf("competition %q: %w", comp.ID, err)
			}
		}
	}
	for _, team := range plan.Teams {
		ok, err := client.CreateTeam(ctx, team)
		if err != nil {
			return fmt.Errorf("team %q: %w", team.ID, err)
		}
		if !ok {
			log.Debug(ctx, "team already registered", logger.String("team_id", team.ID))
		}
	}
	log.Info(ctx, "event registered",
		logger.Int("competitions", len(plan.Competitions)),
		logger.Int("teams", len(plan.Teams)))
	return nil
}

// submit posts sheets with a pool of workers and fills the report counters.
func submit(ctx context.Context, client *HTTPClient, workers int, sheets []Sheet, report *Report) {
	var (
		accepted  int64
		duplicate int64
		failed    int64
		submitted int64
	)

	sheetChan := make(chan Sheet, workers*workerMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sheet := range sheetChan {
				atomic.AddInt64(&submitted, 1)
				switch submitSingleSheet(ctx, client, sheet) {
				case resultAccepted:
					atomic.AddInt64(&accepted, 1)
				case resultDuplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(sheetChan)
		for _, sheet := range sheets {
			select {
			case <-ctx.Done():
				return
			case sheetChan <- sheet:
			}
		}
	}()

	wg.Wait()

	report.SheetsSubmitted = int(atomic.LoadInt64(&submitted))
	report.SheetsAccepted = int(atomic.LoadInt64(&accepted))
	report.SheetsDuplicate = int(atomic.LoadInt64(&duplicate))
	report.SheetsFailed = int(atomic.LoadInt64(&failed))
}

type submitResult int

const (
	resultFailed submitResult = iota
	resultAccepted
	resultDuplicate
)

// submitSingleSheet posts one sheet, retrying while the queue pushes back.
func submitSingleSheet(ctx context.Context, client *HTTPClient, sheet Sheet) submitResult {
	for attempt := 0; attempt < submitAttempts; attempt++ {
		status, ack, err := client.Submit(ctx, sheet)
		switch {
		case status == http.StatusAccepted:
			return resultAccepted
		case status == http.StatusOK && ack.Duplicate:
			return resultDuplicate
		case status == http.StatusTooManyRequests:
			select {
			case <-ctx.Done():
				return resultFailed
			case <-time.After(submitRetryDelay * time.Duration(attempt+1)):
			}
		default:
			logger.Get().Named("seed").Warn(ctx, "sheet rejected",
				logger.String("submission_id", sheet.SubmissionID),
				logger.Int("status", status),
				logger.Error(err))
			return resultFailed
		}
	}
	return resultFailed
}

// waitForWorkers polls /stats until processed plus failed reaches target.
func waitForWorkers(ctx context.Context, client *HTTPClient, target int64, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s, err := client.Stats(ctx)
		if err == nil && s.Processed+s.Failed >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: want %d", ErrWaitTimeout, target)
		case <-ticker.C:
		}
	}
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, r *Report) {
	var sheetsPerSecond float64
	if r.Duration > 0 {
		sheetsPerSecond = float64(r.SheetsSubmitted) / r.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("sheetsGenerated", r.SheetsGenerated),
		logger.Int("sheetsSubmitted", r.SheetsSubmitted),
		logger.Int("sheetsAccepted", r.SheetsAccepted),
		logger.Int("sheetsDuplicate", r.SheetsDuplicate),
		logger.Int("sheetsFailed", r.SheetsFailed),
		logger.Int("putraEntries", r.Entries[model.CategoryPutra]),
		logger.Int("putriEntries", r.Entries[model.CategoryPutri]),
		logger.Duration("duration", r.Duration),
		logger.Float64("sheetsPerSecond", sheetsPerSecond))
}
