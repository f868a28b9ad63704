package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/lomba/internal/domain/model"
	"github.com/okian/lomba/internal/domain/types"
	"github.com/okian/lomba/pkg/logger"
)

// HTTPClient talks JSON to the leaderboard service.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client for baseURL with a per-request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// do sends one request and decodes a JSON body into dst when dst is non-nil.
// It returns the status code; non-2xx statuses are not errors here.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, dst any) (int, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if dst != nil {
		if err := json.Unmarshal(data, dst); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// Health checks that the service answers GET /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

// CreateCompetition posts a competition. A 409 is reported as created=false.
func (c *HTTPClient) CreateCompetition(ctx context.Context, comp model.Competition) (bool, error) {
	return created(c.do(ctx, http.MethodPost, "/competitions", comp, nil))
}

// Publish sets the visibility of a competition.
func (c *HTTPClient) Publish(ctx context.Context, id string, published bool) error {
	body := map[string]bool{"published": published}
	_, err := c.do(ctx, http.MethodPost, "/competitions/"+url.PathEscape(id)+"/publish", body, nil)
	return err
}

// CreateTeam posts a team. A 409 is reported as created=false.
func (c *HTTPClient) CreateTeam(ctx context.Context, team model.Team) (bool, error) {
	return created(c.do(ctx, http.MethodPost, "/teams", team, nil))
}

// Submit posts one sheet and returns the status code with the decoded ack.
func (c *HTTPClient) Submit(ctx context.Context, sheet Sheet) (int, AckResponse, error) {
	var ack AckResponse
	status, err := c.do(ctx, http.MethodPost, "/scores", sheet, &ack)
	return status, ack, err
}

// Stats fetches the queue and worker counters.
func (c *HTTPClient) Stats(ctx context.Context) (serviceStats, error) {
	var s serviceStats
	_, err := c.do(ctx, http.MethodGet, "/stats", nil, &s)
	return s, err
}

// Leaderboard fetches the full leaderboard of category.
func (c *HTTPClient) Leaderboard(ctx context.Context, category model.Category, includeUnpublished bool) ([]types.RankedEntry, error) {
	q := url.Values{}
	q.Set("category", string(category))
	if includeUnpublished {
		q.Set("include_unpublished", "true")
	}
	var entries []types.RankedEntry
	if _, err := c.do(ctx, http.MethodGet, "/leaderboard?"+q.Encode(), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func created(status int, err error) (bool, error) {
	if status == http.StatusConflict {
		return false, nil
	}
	return err == nil, err
}
