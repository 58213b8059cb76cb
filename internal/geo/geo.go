package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Location is the coarse place attached to a session.
type Location struct {
	Country   string  `json:"country,omitempty"`
	Region    string  `json:"region,omitempty"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// ErrUnavailable is returned when no resolver is configured.
var ErrUnavailable = errors.New("geo: resolver unavailable")

// Resolver turns a remote address into a Location.
type Resolver interface {
	Resolve(ctx context.Context, addr string) (Location, error)
}

// Noop always reports ErrUnavailable.
type Noop struct{}

// Resolve implements Resolver.
func (Noop) Resolve(context.Context, string) (Location, error) {
	return Location{}, ErrUnavailable
}

// HTTPResolver queries a JSON lookup service at endpoint/<ip>.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
}

// NewHTTPResolver builds a resolver against the given base endpoint. The
// client timeout is short: enrichment is best effort and must never hold
// a session open.
func NewHTTPResolver(endpoint string) *HTTPResolver {
	return &HTTPResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 3 * time.Second},
	}
}

// Resolve implements Resolver. addr may be host:port or a bare host.
func (r *HTTPResolver) Resolve(ctx context.Context, addr string) (Location, error) {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	u := r.endpoint + "/" + url.PathEscape(host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo: lookup status %d", resp.StatusCode)
	}
	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return Location{}, fmt.Errorf("geo: %w", err)
	}
	return loc, nil
}
