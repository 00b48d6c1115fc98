package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/weather"
)

// AdvisoryClient is the optional external rule/AI engine that can replace
// the local rule set for one generation call.
type AdvisoryClient interface {
	Propose(ctx context.Context, req AdvisoryRequest) ([]farm.Recommendation, error)
}

// AdvisoryRequest is the provider-agnostic payload sent to the advisory
// service: session metadata, location, soil snapshot, observation window,
// and variety traits.
type AdvisoryRequest struct {
	SessionID         string                `json:"sessionId"`
	FarmID            string                `json:"farmId"`
	GeneratedAt       time.Time             `json:"generatedAt"`
	Location          weather.Location      `json:"location"`
	PlantingDate      time.Time             `json:"plantingDate"`
	DaysSincePlanting int                   `json:"daysSincePlanting"`
	GrowthPhase       farm.GrowthPhase      `json:"growthPhase"`
	Variety           farm.Variety          `json:"variety"`
	Soil              *farm.SoilSample      `json:"soil,omitempty"`
	Window            windowAggregate       `json:"window"`
	Observations      []weather.Observation `json:"observations"`
}

type advisoryWireRec struct {
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	Confidence  float64 `json:"confidence"`
}

// HTTPAdvisoryClient calls a remote advisory endpoint over HTTP. It makes a
// single attempt per call: retrying is the gateway's business, not this
// client's, because the local rule set is always available as a fallback.
type HTTPAdvisoryClient struct {
	client *resty.Client
}

// NewHTTPAdvisoryClient builds a client for the given base URL. The API key
// may be empty for unauthenticated deployments.
func NewHTTPAdvisoryClient(baseURL, apiKey string, timeout time.Duration) *HTTPAdvisoryClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)
	if apiKey != "" {
		c.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &HTTPAdvisoryClient{client: c}
}

// Propose posts the payload and maps the response into recommendations.
// Any transport error, non-2xx status, or parse failure is returned to the
// engine, which falls back to the local rules.
func (c *HTTPAdvisoryClient) Propose(ctx context.Context, req AdvisoryRequest) ([]farm.Recommendation, error) {
	var payload struct {
		Recommendations []advisoryWireRec `json:"recommendations"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&payload).
		Post("/v1/recommendations")
	if err != nil {
		return nil, fmt.Errorf("advisory call: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("advisory call: status %d", resp.StatusCode())
	}

	// The engine dates all recommendations from its own clock, remote and
	// local alike, so the two paths stay comparable.
	recs := make([]farm.Recommendation, 0, len(payload.Recommendations))
	now := req.GeneratedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	for _, wr := range payload.Recommendations {
		conf := wr.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		recs = append(recs, farm.Recommendation{
			ID:          uuid.NewString(),
			SessionID:   req.SessionID,
			Category:    wr.Category,
			Title:       wr.Title,
			Description: wr.Description,
			Priority:    parsePriority(wr.Priority),
			Confidence:  conf,
			Date:        now,
		})
	}
	return recs, nil
}

func parsePriority(s string) farm.Priority {
	switch farm.Priority(s) {
	case farm.PriorityLow, farm.PriorityMedium, farm.PriorityHigh, farm.PriorityCritical:
		return farm.Priority(s)
	default:
		return farm.PriorityMedium
	}
}
