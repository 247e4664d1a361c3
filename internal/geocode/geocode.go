// Package geocode resolves postal addresses to coordinates for new waypoints.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/rs/zerolog"

	"github.com/i474232898/route-command-engine/internal/route"
)

var (
	ErrNotConfigured = errors.New("geocoder not configured")
	ErrEmptyAddress  = errors.New("empty address")
)

// Address is a postal address. Only the fields that are set are sent.
type Address struct {
	Street     string `json:"street"`
	Number     int    `json:"number"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

func (a Address) empty() bool {
	return strings.TrimSpace(a.Street+a.City+a.State+a.Country+a.PostalCode) == ""
}

// geocoder keeps its key in a package variable.
var keyMu sync.Mutex

// Client resolves addresses through the Google geocoding API.
type Client struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
	logger zerolog.Logger
}

// New returns a client using apiKey. An empty key yields a client whose Locate
// always fails with ErrNotConfigured.
func New(apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		lookup: geocoder.Geocoding,
		logger: logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Locate resolves addr. The lookup itself cannot be cancelled; ctx only bounds
// how long the caller waits for it.
func (c *Client) Locate(ctx context.Context, addr Address) (route.LatLon, error) {
	if !c.Configured() {
		return route.LatLon{}, ErrNotConfigured
	}
	if addr.empty() {
		return route.LatLon{}, ErrEmptyAddress
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)

	go func() {
		keyMu.Lock()
		geocoder.ApiKey = c.apiKey
		loc, err := c.lookup(geocoder.Address{
			Street:     addr.Street,
			Number:     addr.Number,
			City:       addr.City,
			State:      addr.State,
			Country:    addr.Country,
			PostalCode: addr.PostalCode,
		})
		keyMu.Unlock()
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return route.LatLon{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			c.logger.Warn().Err(r.err).Str("city", addr.City).Msg("geocoding failed")
			return route.LatLon{}, fmt.Errorf("geocode: %w", r.err)
		}
		ll := route.NewLatLon(r.loc.Latitude, r.loc.Longitude)
		if !ll.Valid() {
			return route.LatLon{}, fmt.Errorf("geocode: invalid coordinates %s", ll)
		}
		c.logger.Debug().Str("latlon", ll.String()).Msg("address geocoded")
		return ll, nil
	}
}
