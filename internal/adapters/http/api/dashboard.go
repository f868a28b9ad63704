package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/pkg/metrics"
)

type dashboardView struct {
	RefreshMillis int64
	Categories    []model.Category
}

// dashboardHandler serves the live leaderboard page.
type dashboardHandler struct {
	refresh time.Duration
}

func newDashboardHandler(refresh time.Duration) *dashboardHandler {
	return &dashboardHandler{refresh: refresh}
}

// HandleDashboard handles GET /dashboard requests. The page polls
// /leaderboard for each category on the configured interval.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	err := dashboardTemplate.Execute(&buf, dashboardView{
		RefreshMillis: h.refresh.Milliseconds(),
		Categories:    model.Categories(),
	})
	if err != nil {
		metrics.RecordErrorByComponent("dashboard", "render")
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}
