// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/lomba/internal/app"
	"github.com/okian/lomba/internal/domain/dedupe"
	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	LeaderboardDependencies
	RankDependencies
	RegistrationDependencies
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) service.Stats
}

// ScoreDependencies defines what POST /scores needs.
type ScoreDependencies interface {
	dedupe.Deduper

	// ValidateSubmission rejects sheets that can never be scored.
	ValidateSubmission(ctx context.Context, sub model.Submission) error
	// Enqueue pushes a sheet for async scoring. Returns false on backpressure.
	Enqueue(ctx context.Context, sub model.Submission) bool
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.RankedEntry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	scoresHandler       *ScoresHandler
	leaderboardHandler  *LeaderboardHandler
	rankHandler         *RankHandler
	registrationHandler *RegistrationHandler
	dashboardHandler    *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		scoresHandler:       NewScoresHandler(deps, cfg.submitRate, cfg.submitBurst),
		leaderboardHandler:  NewLeaderboardHandler(deps, cfg.maxLimit),
		rankHandler:         NewRankHandler(deps),
		registrationHandler: NewRegistrationHandler(deps),
		dashboardHandler:    newDashboardHandler(cfg.dashboardRefresh),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /scores", MetricsMiddleware(s.scoresHandler.HandlePostScore, "scores"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rank/{category}/{teamId}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("POST /competitions", MetricsMiddleware(s.registrationHandler.HandlePostCompetition, "competitions"))
	mux.HandleFunc("GET /competitions", MetricsMiddleware(s.registrationHandler.HandleListCompetitions, "competitions"))
	mux.HandleFunc("POST /competitions/{id}/publish", MetricsMiddleware(s.registrationHandler.HandlePublish, "publish"))
	mux.HandleFunc("POST /teams", MetricsMiddleware(s.registrationHandler.HandlePostTeam, "teams"))
	mux.HandleFunc("GET /teams", MetricsMiddleware(s.registrationHandler.HandleListTeams, "teams"))
}

type ackResponse struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submissionId"`
	Duplicate    bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeError(w, status, code, err)
}
