// Package roadworks is the HTTP client for the obstacle service. The service
// contract is deliberately soft: any failure (timeout, non-OK status, broken
// body) yields an empty result with a diagnostic in Meta.Error — Fetch never
// returns a Go error, so a flaky obstacle backend degrades a plan instead of
// aborting it.
package roadworks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/edaniels/golog"
	"github.com/paulmach/orb/geojson"

	"github.com/schwerlast/routeplan/obstacle"
)

// DefaultTimeout bounds one obstacle fetch.
const DefaultTimeout = 4500 * time.Millisecond

// Query is the request body for one obstacle fetch.
type Query struct {
	TS            string     `json:"ts"`
	TZ            string     `json:"tz"`
	BBox          [4]float64 `json:"bbox"`
	BufferM       float64    `json:"buffer_m,omitempty"`
	OnlyMotorways bool       `json:"only_motorways"`
	TimeoutMS     int        `json:"timeout_ms,omitempty"`
}

// Meta mirrors the service's meta member.
type Meta struct {
	Fetched       int    `json:"fetched"`
	Used          int    `json:"used"`
	TimeoutMSUsed int    `json:"timeout_ms_used"`
	Error         string `json:"error,omitempty"`
}

// Result is one fetch outcome: normalised obstacles plus service meta.
type Result struct {
	Obstacles []*obstacle.Obstacle
	Meta      Meta
}

// Client talks to the obstacle service.
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
	logger     golog.Logger
}

// NewClient returns a client for the obstacle service at baseURL.
func NewClient(baseURL, credential string, logger golog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		credential: credential,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
}

// Fetch retrieves active obstacles for the query bbox. The error surface is
// folded into Result.Meta.Error per the service contract.
func (c *Client) Fetch(ctx context.Context, q Query) Result {
	body, err := json.Marshal(q)
	if err != nil {
		return c.failed("marshal: " + err.Error())
	}

	timeout := DefaultTimeout
	if q.TimeoutMS > 0 {
		timeout = time.Duration(q.TimeoutMS) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/roadworks", bytes.NewReader(body))
	if err != nil {
		return c.failed("request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if c.credential != "" {
		req.Header.Set("X-Service-Key", c.credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.failed("fetch: " + err.Error())
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return c.failed("status " + resp.Status + ": " + string(text))
	}

	var payload struct {
		Features []*geojson.Feature `json:"features"`
		Meta     Meta               `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return c.failed("decode: " + err.Error())
	}

	obstacles := make([]*obstacle.Obstacle, 0, len(payload.Features))
	for _, f := range payload.Features {
		if o := obstacle.FromFeature(f); o != nil {
			obstacles = append(obstacles, o)
		}
	}
	meta := payload.Meta
	if meta.Fetched == 0 {
		meta.Fetched = len(payload.Features)
	}
	meta.Used = len(obstacles)
	return Result{Obstacles: obstacles, Meta: meta}
}

func (c *Client) failed(reason string) Result {
	c.logger.Warnw("obstacle fetch failed", "reason", reason)
	return Result{Meta: Meta{Error: reason}}
}
