package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/twpayne/go-polyline"

	"github.com/i474232898/route-command-engine/internal/route"
)

// ErrNoRoute is returned when OSRM finds no path between the points.
var ErrNoRoute = errors.New("no route found")

// DefaultTimeout bounds a request whose context carries no deadline.
const DefaultTimeout = 10 * time.Second

// OSRMProvider implements route.Directions against the OSRM HTTP route service.
type OSRMProvider struct {
	name     string
	baseURL  string
	timeout  time.Duration
	profiles map[route.TravelMode]string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	logger   zerolog.Logger
}

var _ route.Directions = (*OSRMProvider)(nil)

// OSRMOption configures an OSRMProvider.
type OSRMOption func(*OSRMProvider)

func WithMaxRetries(n int) OSRMOption {
	return func(p *OSRMProvider) { p.httpCfg.Backoff.MaxRetries = n }
}

func WithBackoff(b BackoffConfig) OSRMOption {
	return func(p *OSRMProvider) { p.httpCfg.Backoff = b }
}

func WithTimeout(d time.Duration) OSRMOption {
	return func(p *OSRMProvider) { p.timeout = d }
}

// WithProfile overrides the OSRM profile used for a travel mode.
func WithProfile(mode route.TravelMode, profile string) OSRMOption {
	return func(p *OSRMProvider) { p.profiles[mode] = profile }
}

func WithLogger(logger zerolog.Logger) OSRMOption {
	return func(p *OSRMProvider) { p.logger = logger }
}

func NewOSRMProvider(client *http.Client, baseURL string, opts ...OSRMOption) *OSRMProvider {
	p := &OSRMProvider{
		name:    "osrm",
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		profiles: map[route.TravelMode]string{
			route.TravelModeWalking:   "foot",
			route.TravelModeBicycling: "bike",
			route.TravelModeDriving:   "driving",
		},
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        p.name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return p
}

func (p *OSRMProvider) Name() string {
	return p.name
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Legs     []struct {
			Distance float64 `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
}

// Route requests the leg between req.Origin and req.Destination.
func (p *OSRMProvider) Route(ctx context.Context, req route.DirectionsRequest) (route.DirectionsResult, error) {
	profile, ok := p.profiles[req.TravelMode]
	if !ok {
		return route.DirectionsResult{}, fmt.Errorf("%w: unsupported travel mode %q", route.ErrInvalidArgument, req.TravelMode)
	}

	if _, has := ctx.Deadline(); !has && p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	buildRequest := func() (*http.Request, error) {
		coords := fmt.Sprintf("%f,%f;%f,%f",
			req.Origin.Lon(), req.Origin.Lat(), req.Destination.Lon(), req.Destination.Lat())

		values := url.Values{}
		values.Set("overview", "full")
		values.Set("geometries", "polyline")

		u := fmt.Sprintf("%s/route/v1/%s/%s?%s", p.baseURL, profile, coords, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	p.logger.Debug().Str("from", req.Origin.String()).Str("to", req.Destination.String()).
		Str("profile", profile).Msg("requesting route")

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return route.DirectionsResult{}, p.statusError(se)
		}
		p.logger.Error().Err(err).Msg("route request failed")
		return route.DirectionsResult{}, err
	}
	defer resp.Body.Close()

	var payload osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return route.DirectionsResult{}, fmt.Errorf("decode osrm response: %w", err)
	}
	if payload.Code != "Ok" || len(payload.Routes) == 0 {
		return route.DirectionsResult{}, fmt.Errorf("%w: %s %s", ErrNoRoute, payload.Code, payload.Message)
	}

	best := payload.Routes[0]
	path, err := decodeGeometry(best.Geometry)
	if err != nil {
		return route.DirectionsResult{}, err
	}

	distance := best.Distance
	if len(best.Legs) > 0 {
		distance = best.Legs[0].Distance
	}

	return route.DirectionsResult{Path: path, Distance: distance}, nil
}

// statusError maps a 4xx OSRM answer; NoRoute and NoSegment become ErrNoRoute.
func (p *OSRMProvider) statusError(se *StatusError) error {
	var payload osrmResponse
	if err := json.Unmarshal(se.Body, &payload); err == nil {
		switch payload.Code {
		case "NoRoute", "NoSegment":
			return fmt.Errorf("%w: %s", ErrNoRoute, payload.Message)
		case "":
		default:
			return fmt.Errorf("osrm %s: %s: %w", payload.Code, payload.Message, se)
		}
	}
	return se
}

// decodeGeometry turns an encoded polyline (precision 5, lat/lng order) into a path.
func decodeGeometry(encoded string) (orb.LineString, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode osrm geometry: %w", err)
	}
	if len(coords) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", ErrNoRoute)
	}
	path := make(orb.LineString, len(coords))
	for i, c := range coords {
		path[i] = orb.Point{c[1], c[0]}
	}
	return path, nil
}

// EncodePath encodes a path as a polyline string.
func EncodePath(path orb.LineString) string {
	coords := make([][]float64, len(path))
	for i, pt := range path {
		coords[i] = []float64{pt.Lat(), pt.Lon()}
	}
	return string(polyline.EncodeCoords(coords))
}
