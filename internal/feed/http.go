package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"grider-status-alerts/internal/snapshot"
)

const defaultStatusPath = "api/latest-data.json"

// Options parameterise the HTTP status fetcher.
type Options struct {
	BaseURL    string
	StatusPath string
	Timeout    time.Duration
	UserAgent  string
}

// HTTP fetches status snapshots from the dashboard data feed.
type HTTP struct {
	opts   Options
	logger zerolog.Logger
	client *http.Client
	url    string
}

// NewHTTP constructs the HTTP fetcher.
func NewHTTP(opts Options, logger zerolog.Logger) *HTTP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	path := strings.TrimLeft(opts.StatusPath, "/")
	if path == "" {
		path = defaultStatusPath
	}

	return &HTTP{
		opts:   opts,
		logger: logger.With().Str("component", "status_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(opts.BaseURL, "/") + "/" + path,
	}
}

// statusPayload mirrors latest-data.json. The collector emits Korean field
// names; they are part of the wire contract.
type statusPayload struct {
	TotalScore      int             `json:"총점"`
	TotalCompleted  int             `json:"총완료"`
	AcceptanceRate  decimal.Decimal `json:"수락률"`
	EstimatedIncome *int64          `json:"예상수익"`
	Riders          []riderPayload  `json:"riders"`
	LastUpdated     string          `json:"last_updated"`
	Error           bool            `json:"error"`
	ErrorReason     string          `json:"error_reason"`
}

type riderPayload struct {
	Name           string          `json:"name"`
	Completed      int             `json:"완료"`
	AcceptanceRate decimal.Decimal `json:"수락률"`
}

// FetchStatus GETs the latest snapshot. A cache-busting query parameter is
// appended because the feed sits behind static-page caching.
func (h *HTTP) FetchStatus(ctx context.Context) (snapshot.Snapshot, error) {
	if h.opts.BaseURL == "" {
		return snapshot.Snapshot{}, errors.New("feed base_url not configured")
	}

	now := time.Now().UTC()
	url := h.url + "?t=" + strconv.FormatInt(now.UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(h.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("read status body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return snapshot.Snapshot{}, httpError(resp.StatusCode, body)
	}

	var payload statusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("decode status payload: %w", err)
	}

	if payload.Error {
		reason := payload.ErrorReason
		if reason == "" {
			reason = "데이터 수신 중단"
		}
		return snapshot.Errored(reason, now), nil
	}

	snap := snapshot.Snapshot{
		Score:           payload.TotalScore,
		Completed:       payload.TotalCompleted,
		AcceptanceRate:  payload.AcceptanceRate,
		EstimatedIncome: payload.EstimatedIncome,
		Timestamp:       parseLastUpdated(payload.LastUpdated, now),
		FetchedAt:       now,
	}

	for _, r := range payload.Riders {
		if strings.TrimSpace(r.Name) == "" {
			h.logger.Debug().Msg("skipping rider row without a name")
			continue
		}
		snap.Riders = append(snap.Riders, snapshot.Rider{
			Name:           r.Name,
			Completed:      r.Completed,
			AcceptanceRate: r.AcceptanceRate,
		})
	}

	return snap, nil
}

// parseLastUpdated accepts the two timestamp layouts observed in the feed
// and falls back to the fetch time for anything else.
func parseLastUpdated(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return t.UTC()
	}
	return fallback
}

func httpError(status int, body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	if trimmed != "" {
		return fmt.Errorf("status feed returned %d: %s", status, trimmed)
	}
	return fmt.Errorf("status feed returned %d", status)
}

var _ StatusFetcher = (*HTTP)(nil)
