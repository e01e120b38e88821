// Package geocoder is the Geoapify forward-geocoding client.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"waypoint/internal/platform/config"
	"waypoint/internal/search/metrics"
	"waypoint/internal/search/ranking"
	"waypoint/pkg/platform/circuit"
)

const maxResponseBytes = 4 << 20

// Client queries the Geoapify geocode search endpoint. It never retries;
// repeated provider failures open a circuit breaker that fails calls fast
// until the cooldown has passed.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	apiKey       string
	biasRadiusM  int
	resultsLimit int
	breaker      *circuit.Breaker
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New builds a client from configuration.
func New(cfg config.GeoapifyConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		biasRadiusM:  cfg.BiasRadiusM,
		resultsLimit: cfg.ResultsLimit,
		logger:       slog.Default(),
		tracer:       otel.Tracer("waypoint/search/geocoder"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuit.New("geoapify", circuit.WithCooldown(30*time.Second))
	}
	if c.resultsLimit <= 0 || c.resultsLimit > ranking.MaxResults {
		c.resultsLimit = ranking.MaxResults
	}
	return c
}

type searchResponse struct {
	StatusCode *int           `json:"statusCode"`
	Error      string         `json:"error"`
	Message    string         `json:"message"`
	Results    []searchResult `json:"results"`
}

type searchResult struct {
	Name         *string  `json:"name"`
	AddressLine1 *string  `json:"address_line1"`
	Formatted    *string  `json:"formatted"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	PlaceID      *string  `json:"place_id"`
	Category     *string  `json:"category"`
	Distance     *float64 `json:"distance"`
	Rank         *struct {
		Confidence *float64 `json:"confidence"`
	} `json:"rank"`
}

func (r searchResult) toRaw() ranking.RawResult {
	raw := ranking.RawResult{
		Name:         r.Name,
		AddressLine1: r.AddressLine1,
		Formatted:    r.Formatted,
		Lat:          r.Lat,
		Lon:          r.Lon,
		PlaceID:      r.PlaceID,
		Category:     r.Category,
		DistanceM:    r.Distance,
	}
	if r.Rank != nil {
		raw.Confidence = r.Rank.Confidence
	}
	return raw
}

// Search geocodes text biased toward (lat, lon). Non-2xx responses and
// transport failures return a *ProviderError. A 2xx body that reports its
// own failure status is returned as a batch carrying that status.
func (c *Client) Search(ctx context.Context, text string, lat, lon float64) (batch ranking.RawBatch, err error) {
	ctx, span := c.tracer.Start(ctx, "geoapify.search", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lon", lon),
		attribute.Int("geoapify.limit", c.resultsLimit),
	)

	if !c.breaker.Allow() {
		if c.metrics != nil {
			c.metrics.IncrementBreakerRejected()
		}
		err := newProviderError(ErrorCircuitOpen, 0, "geocoder temporarily unavailable", nil)
		span.SetStatus(codes.Error, err.Error())
		return ranking.RawBatch{}, err
	}

	start := time.Now()
	batch, err = c.do(ctx, text, lat, lon)
	category := "ok"
	if err != nil {
		category = string(GetCategory(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("geoapify.results", len(batch.Results)))
	}
	if c.metrics != nil {
		c.metrics.ObserveUpstream(category, start)
	}
	c.record(ctx, err)
	return batch, err
}

func (c *Client) do(ctx context.Context, text string, lat, lon float64) (ranking.RawBatch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(text, lat, lon), http.NoBody)
	if err != nil {
		return ranking.RawBatch{}, newProviderError(ErrorInternal, 0, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return ranking.RawBatch{}, newProviderError(ErrorTimeout, 0, "request timed out", err)
		}
		return ranking.RawBatch{}, newProviderError(ErrorProviderOutage, 0, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ranking.RawBatch{}, newProviderError(ErrorProviderOutage, resp.StatusCode, "failed to read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ranking.RawBatch{}, newProviderError(categoryForStatus(resp.StatusCode), resp.StatusCode,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ranking.RawBatch{}, newProviderError(ErrorBadData, resp.StatusCode, "malformed response body", err)
	}

	batch := ranking.RawBatch{Status: decoded.StatusCode, Results: make([]ranking.RawResult, 0, len(decoded.Results))}
	for _, r := range decoded.Results {
		batch.Results = append(batch.Results, r.toRaw())
	}
	return batch, nil
}

func (c *Client) requestURL(text string, lat, lon float64) string {
	lonStr := strconv.FormatFloat(lon, 'f', -1, 64)
	latStr := strconv.FormatFloat(lat, 'f', -1, 64)
	q := url.Values{}
	q.Set("text", text)
	q.Set("bias", fmt.Sprintf("proximity:%s,%s|circle:%s,%s,%d", lonStr, latStr, lonStr, latStr, c.biasRadiusM))
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(c.resultsLimit))
	q.Set("apiKey", c.apiKey)
	return c.endpoint + "?" + q.Encode()
}

func (c *Client) record(ctx context.Context, err error) {
	if err == nil || !countsAsFailure(GetCategory(err)) {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "geocoder circuit closed", "breaker", c.breaker.Name())
			c.setBreakerGauge(false)
		}
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "geocoder circuit opened",
			"breaker", c.breaker.Name(),
			"error", err,
		)
		c.setBreakerGauge(true)
	}
}

func (c *Client) setBreakerGauge(open bool) {
	if c.metrics != nil {
		c.metrics.SetBreakerOpen(open)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}
