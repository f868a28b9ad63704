package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/pkg/metrics"
)

// MemoryStore keeps every collection in insertion-ordered slices.
type MemoryStore struct {
	mu sync.RWMutex

	competitions []model.Competition
	compIndex    map[string]int
	teams        []model.Team
	teamIndex    map[string]int
	scores       []model.Score
	scoreIndex   map[model.ScoreKey]int

	now      func() time.Time
	interval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an in-memory store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	cfg := newSettings(opts)
	s := &MemoryStore{
		compIndex:  make(map[string]int),
		teamIndex:  make(map[string]int),
		scoreIndex: make(map[model.ScoreKey]int),
		now:        time.Now,
		interval:   cfg.metricsUpdateInterval,
		stopChan:   make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) Competitions(_ context.Context, publishedOnly bool) ([]model.Competition, error) {
	defer observe("competitions", time.Now(), nil)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Competition, 0, len(s.competitions))
	for _, c := range s.competitions {
		if publishedOnly && !c.IsPublished {
			continue
		}
		out = append(out, cloneCompetition(c))
	}
	return out, nil
}

func (s *MemoryStore) Competition(_ context.Context, id string) (model.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.compIndex[id]
	if !ok {
		return model.Competition{}, fmt.Errorf("competition %q: %w", id, ErrNotFound)
	}
	return cloneCompetition(s.competitions[i]), nil
}

func (s *MemoryStore) SaveCompetition(_ context.Context, c model.Competition) error {
	if c.ID == "" {
		return fmt.Errorf("competition: %w", ErrInvalidID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c = cloneCompetition(c)
	if i, ok := s.compIndex[c.ID]; ok {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.competitions[i].CreatedAt
		}
		s.competitions[i] = c
		return nil
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	s.compIndex[c.ID] = len(s.competitions)
	s.competitions = append(s.competitions, c)
	return nil
}

func (s *MemoryStore) Teams(_ context.Context, category model.Category) ([]model.Team, error) {
	defer observe("teams", time.Now(), nil)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		if category != "" && t.Type != category {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *MemoryStore) Team(_ context.Context, id string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.teamIndex[id]
	if !ok {
		return model.Team{}, fmt.Errorf("team %q: %w", id, ErrNotFound)
	}
	return s.teams[i], nil
}

func (s *MemoryStore) SaveTeam(_ context.Context, t model.Team) error {
	if t.ID == "" {
		return fmt.Errorf("team: %w", ErrInvalidID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.teamIndex[t.ID]; ok {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.teams[i].CreatedAt
		}
		s.teams[i] = t
		return nil
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	s.teamIndex[t.ID] = len(s.teams)
	s.teams = append(s.teams, t)
	return nil
}

func (s *MemoryStore) Scores(_ context.Context, teamIDs []string) ([]model.Score, error) {
	defer observe("scores", time.Now(), nil)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(teamIDs) == 0 {
		out := make([]model.Score, len(s.scores))
		copy(out, s.scores)
		return out, nil
	}

	wanted := make(map[string]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		wanted[id] = struct{}{}
	}
	out := make([]model.Score, 0, len(s.scores))
	for _, sc := range s.scores {
		if _, ok := wanted[sc.TeamID]; ok {
			out = append(out, sc)
		}
	}
	return out, nil
}

// UpsertScore replaces an existing row in place so that its position,
// and therefore tie order, is kept.
func (s *MemoryStore) UpsertScore(_ context.Context, sc model.Score) (bool, error) {
	if !validScore(sc) {
		return false, ErrInvalidScore
	}
	if sc.UpdatedAt.IsZero() {
		sc.UpdatedAt = s.now().UTC()
	}

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe("upsert_score", start, nil)

	key := sc.Key()
	if i, ok := s.scoreIndex[key]; ok {
		s.scores[i] = sc
		return false, nil
	}
	s.scoreIndex[key] = len(s.scores)
	s.scores = append(s.scores, sc)
	return true, nil
}

func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Competitions: len(s.competitions),
		Teams:        len(s.teams),
		Scores:       len(s.scores),
	}, nil
}

// Close stops the metrics updater.
func (s *MemoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				c, _ := s.Counts(ctx)
				publishCounts(c)
			}
		}
	}()
}

func publishCounts(c Counts) {
	metrics.UpdateStoreRecords("competitions", c.Competitions)
	metrics.UpdateStoreRecords("teams", c.Teams)
	metrics.UpdateStoreRecords("scores", c.Scores)
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreQuery(op, float64(time.Since(start).Microseconds())/1000, err)
}

func cloneCompetition(c model.Competition) model.Competition {
	if c.Criteria != nil {
		c.Criteria = append([]model.Criterion(nil), c.Criteria...)
	}
	return c
}
