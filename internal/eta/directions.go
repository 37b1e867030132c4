package eta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"example.com/backstage/services/laundry/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Provider returns driving directions from origin through waypoints to destination
type Provider interface {
	Directions(ctx context.Context, origin string, waypoints []string, destination string) (*DirectionsResponse, error)
}

// HTTPProvider queries a Google Directions compatible endpoint
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider creates a directions client. Requests carry no client timeout.
func NewHTTPProvider(cfg config.DirectionsConfig, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProvider{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

// Directions fetches the legs for a driving route
func (p *HTTPProvider) Directions(ctx context.Context, origin string, waypoints []string, destination string) (*DirectionsResponse, error) {
	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("mode", "driving")
	if len(waypoints) > 0 {
		q.Set("waypoints", strings.Join(waypoints, "|"))
	}
	if p.apiKey != "" {
		q.Set("key", p.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build directions request")
	}

	res, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call directions provider")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("directions provider returned status %d", res.StatusCode)
	}

	var out DirectionsResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "failed to decode directions response")
	}

	log.Debug().
		Str("status", out.Status).
		Int("waypoints", len(waypoints)).
		Msg("Directions fetched")

	return &out, nil
}
