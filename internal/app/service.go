// Package service wires the store, intake queue, workers and ranking
// engine behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	eventqueue "github.com/okian/lomba/internal/adapters/mq/queue"
	workerpool "github.com/okian/lomba/internal/adapters/mq/worker"
	"github.com/okian/lomba/internal/adapters/repository"
	"github.com/okian/lomba/internal/domain/dedupe"
	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/internal/domain/ranking"
	"github.com/okian/lomba/internal/domain/scoring"
	"github.com/okian/lomba/internal/domain/types"
	"github.com/okian/lomba/pkg/logger"
	"github.com/okian/lomba/pkg/metrics"
)

const (
	defaultQueueSize  = 10000
	defaultDedupeSize = 50000
	stopTimeout       = 30 * time.Second
)

// Service implements the API dependencies for the medal leaderboard.
type Service struct {
	mu sync.RWMutex
	// regMu serializes registration so an id check and its save are atomic.
	regMu sync.Mutex

	store      repository.Store
	ownsStore  bool
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	scorer     *scoring.CriteriaScorer
	workerPool *workerpool.Pool
	engine     *ranking.Engine

	workerCount  int
	queueSize    int
	dedupeSize   int
	flagshipName string
	maxMark      float64

	started bool
	cancel  context.CancelFunc
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore uses store instead of a private in-memory one. The caller
// keeps ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFlagshipName overrides the flagship competition name.
func WithFlagshipName(name string) Option {
	return func(s *Service) {
		s.flagshipName = name
	}
}

// WithMaxMark bounds single criterion marks; zero disables the bound.
func WithMaxMark(limit float64) Option {
	return func(s *Service) {
		s.maxMark = limit
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = ranking.New(ranking.WithFlagshipName(s.flagshipName))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting leaderboard service...")

	// Background components outlive the start request.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if s.store == nil {
		s.store = repository.NewMemoryStore(runCtx)
		s.ownsStore = true
		s.logger.Info(ctx, "using memory store")
	}
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.scorer = scoring.NewCriteriaScorer(s.store, scoring.WithMaxMark(s.maxMark))

	// A sheet that fails scoring is forgotten so the judge can correct and resend it.
	forget := workerpool.WithFailureHook(func(ctx context.Context, e workerpool.Event, _ error) {
		s.deduper.Unrecord(ctx, e.SubmissionID)
	})
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.scorer, s.store, forget)
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("flagship", s.engine.FlagshipName()),
	)
	return nil
}

// Stop drains queued sheets and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping leaderboard service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if s.ownsStore {
		if err := s.store.Close(ctx); err != nil {
			s.logger.Error(ctx, "error closing store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped",
		logger.Any("processed", s.workerPool.Processed()),
		logger.Any("failed", s.workerPool.Failed()),
	)
}

func (s *Service) running() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// SeenAndRecord atomically checks if a submission id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordSubmissionDuplicate()
	}
	return seen
}

// Unrecord forgets a submission id so it can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the number of remembered submission ids.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// ValidateSubmission checks a sheet synchronously so that obviously bad
// input is rejected before it is queued.
func (s *Service) ValidateSubmission(ctx context.Context, sub model.Submission) error {
	store, err := s.running()
	if err != nil {
		return err
	}
	if _, err := store.Team(ctx, sub.TeamID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: team %q", ErrInvalidSubmission, sub.TeamID)
		}
		return err
	}
	if _, err := s.scorer.Score(ctx, scoring.InputFromSubmission(sub)); err != nil {
		if isSheetError(err) {
			return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
		}
		return err
	}
	return nil
}

// Enqueue submits a sheet for asynchronous scoring. Returns false on backpressure.
func (s *Service) Enqueue(ctx context.Context, sub model.Submission) bool {
	if _, err := s.running(); err != nil {
		return false
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	if !s.eventQueue.Enqueue(ctx, sub) {
		metrics.RecordSubmissionRejected("backpressure")
		return false
	}
	metrics.RecordSubmissionAccepted()
	s.logger.Debug(ctx, "sheet queued",
		logger.String("submission_id", sub.SubmissionID),
		logger.String("team_id", sub.TeamID),
		logger.String("competition_id", sub.CompetitionID),
		logger.String("judge_id", sub.JudgeID),
	)
	return true
}

// Leaderboard computes the ranked board of category from one snapshot of the store.
func (s *Service) Leaderboard(ctx context.Context, category model.Category, includeUnpublished bool) ([]types.RankedEntry, error) {
	if !category.Valid() {
		return nil, &model.CategoryError{Value: string(category)}
	}
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		competitions []model.Competition
		teams        []model.Team
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		competitions, err = store.Competitions(gctx, !includeUnpublished)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = store.Teams(gctx, category)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.RecordErrorByComponent("service", "snapshot_error")
		return nil, fmt.Errorf("leaderboard snapshot: %w", err)
	}

	var scores []model.Score
	if len(competitions) > 0 && len(teams) > 0 {
		ids := make([]string, len(teams))
		for i, t := range teams {
			ids[i] = t.ID
		}
		if scores, err = store.Scores(ctx, ids); err != nil {
			metrics.RecordErrorByComponent("service", "snapshot_error")
			return nil, fmt.Errorf("leaderboard scores: %w", err)
		}
	}

	entries := s.engine.Rank(ranking.Input{
		Competitions:       competitions,
		Teams:              teams,
		Scores:             scores,
		Category:           category,
		IncludeUnpublished: includeUnpublished,
	})
	metrics.RecordLeaderboardComputation(string(category), includeUnpublished,
		float64(time.Since(start).Microseconds())/1000, len(entries))
	return entries, nil
}

// TeamRank returns the ranked entry of one team on the public board.
func (s *Service) TeamRank(ctx context.Context, category model.Category, teamID string) (types.RankedEntry, error) {
	entries, err := s.Leaderboard(ctx, category, false)
	if err != nil {
		return types.RankedEntry{}, err
	}
	for _, e := range entries {
		if e.TeamID == teamID {
			return e, nil
		}
	}
	return types.RankedEntry{}, fmt.Errorf("team %q in %s: %w", teamID, category, ErrNotFound)
}

// CreateCompetition registers a new competition. Missing ids are generated.
func (s *Service) CreateCompetition(ctx context.Context, c model.Competition) (model.Competition, error) {
	store, err := s.running()
	if err != nil {
		return model.Competition{}, err
	}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return model.Competition{}, fmt.Errorf("%w: name is required", ErrInvalidCompetition)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	seen := make(map[string]struct{}, len(c.Criteria))
	for i := range c.Criteria {
		cr := &c.Criteria[i]
		cr.Name = strings.TrimSpace(cr.Name)
		if cr.ID == "" {
			cr.ID = uuid.NewString()
		}
		if _, dup := seen[cr.ID]; dup {
			return model.Competition{}, fmt.Errorf("%w: duplicate criterion %q", ErrInvalidCompetition, cr.ID)
		}
		seen[cr.ID] = struct{}{}
	}

	c.CreatedAt = time.Now().UTC()
	if err := s.saveIfAbsent(ctx,
		func(ctx context.Context) error {
			_, err := store.Competition(ctx, c.ID)
			return err
		},
		func(ctx context.Context) error { return store.SaveCompetition(ctx, c) },
	); err != nil {
		return model.Competition{}, fmt.Errorf("competition %q: %w", c.ID, err)
	}
	s.logger.Info(ctx, "competition registered",
		logger.String("competition_id", c.ID),
		logger.String("name", c.Name),
		logger.Bool("individual", c.IsIndividual),
		logger.Bool("flagship", s.engine.IsFlagship(c)),
	)
	return c, nil
}

// SetPublished toggles whether a competition counts on the public board.
func (s *Service) SetPublished(ctx context.Context, id string, published bool) (model.Competition, error) {
	store, err := s.running()
	if err != nil {
		return model.Competition{}, err
	}
	s.regMu.Lock()
	defer s.regMu.Unlock()

	c, err := store.Competition(ctx, id)
	if err != nil {
		return model.Competition{}, err
	}
	c.IsPublished = published
	if err := store.SaveCompetition(ctx, c); err != nil {
		return model.Competition{}, err
	}
	return c, nil
}

// ListCompetitions lists registered competitions in registration order.
func (s *Service) ListCompetitions(ctx context.Context, includeUnpublished bool) ([]model.Competition, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	return store.Competitions(ctx, !includeUnpublished)
}

// CreateTeam registers a new team. Missing ids are generated.
func (s *Service) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	store, err := s.running()
	if err != nil {
		return model.Team{}, err
	}

	t.TeamName = strings.TrimSpace(t.TeamName)
	t.School = strings.TrimSpace(t.School)
	if t.TeamName == "" {
		return model.Team{}, fmt.Errorf("%w: teamName is required", ErrInvalidTeam)
	}
	if !t.Type.Valid() {
		return model.Team{}, &model.CategoryError{Value: string(t.Type)}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	t.CreatedAt = time.Now().UTC()
	if err := s.saveIfAbsent(ctx,
		func(ctx context.Context) error {
			_, err := store.Team(ctx, t.ID)
			return err
		},
		func(ctx context.Context) error { return store.SaveTeam(ctx, t) },
	); err != nil {
		return model.Team{}, fmt.Errorf("team %q: %w", t.ID, err)
	}
	s.logger.Info(ctx, "team registered",
		logger.String("team_id", t.ID),
		logger.String("team_name", t.TeamName),
		logger.String("category", string(t.Type)),
	)
	return t, nil
}

// ListTeams lists teams of category, or all teams when category is empty.
func (s *Service) ListTeams(ctx context.Context, category model.Category) ([]model.Team, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	return store.Teams(ctx, category)
}

// saveIfAbsent runs save only when lookup reports ErrNotFound. Both run
// under regMu, so concurrent registrations of one id yield one winner and
// ErrAlreadyExists for the rest.
func (s *Service) saveIfAbsent(ctx context.Context, lookup, save func(context.Context) error) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	err := lookup(ctx)
	switch {
	case err == nil:
		return ErrAlreadyExists
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}
	return save(ctx)
}

// Stats is the operational snapshot served on /stats.
type Stats struct {
	Started        bool              `json:"started"`
	WorkerCount    int               `json:"workerCount"`
	QueueCapacity  int               `json:"queueCapacity"`
	QueueLength    int               `json:"queueLength"`
	DedupeSize     int64             `json:"dedupeSize"`
	Processed      int64             `json:"processed"`
	Failed         int64             `json:"failed"`
	FlagshipName   string            `json:"flagshipName"`
	Records        repository.Counts `json:"records"`
	GeneratedAtUTC time.Time         `json:"generatedAt"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:        s.started,
		WorkerCount:    s.workerCount,
		QueueCapacity:  s.queueSize,
		FlagshipName:   s.engine.FlagshipName(),
		GeneratedAtUTC: time.Now().UTC(),
	}
	if !s.started {
		return stats
	}

	stats.WorkerCount = s.workerPool.Size()
	stats.QueueLength = s.eventQueue.Len(ctx)
	stats.DedupeSize = s.deduper.Size()
	stats.Processed = s.workerPool.Processed()
	stats.Failed = s.workerPool.Failed()
	if counts, err := s.store.Counts(ctx); err == nil {
		stats.Records = counts
	} else {
		s.logger.Warn(ctx, "store counts unavailable", logger.Error(err))
	}
	return stats
}

func isSheetError(err error) bool {
	for _, kind := range []error{
		scoring.ErrUnknownCompetition,
		scoring.ErrUnknownCriterion,
		scoring.ErrMemberRequired,
		scoring.ErrMemberNotAllowed,
		scoring.ErrTotalRequired,
		scoring.ErrNoMarks,
		scoring.ErrMarkOutOfRange,
		scoring.ErrIncompleteSheet,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
