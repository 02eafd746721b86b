// Package geo supplies the device position and reverse geocoding used for
// "weather here" lookups.
package geo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/current-weather/internal/weather"
)

// reverseFunc matches geocoder.GeocodingReverse.
type reverseFunc func(geocoder.Location) ([]geocoder.Address, error)

// geocoder keeps its API key in a package variable.
var apiKeyMu sync.Mutex

// GeocoderLocator reports a configured device position and reverse geocodes
// it through the Google Geocoding API.
type GeocoderLocator struct {
	position *weather.Position
	apiKey   string
	reverse  reverseFunc
}

// NewGeocoderLocator creates a locator. A nil position means the device
// position is unknown; an empty apiKey disables reverse geocoding.
func NewGeocoderLocator(position *weather.Position, apiKey string) *GeocoderLocator {
	return &GeocoderLocator{
		position: position,
		apiKey:   apiKey,
		reverse:  geocoder.GeocodingReverse,
	}
}

func (l *GeocoderLocator) CurrentPosition(ctx context.Context) (weather.Position, error) {
	if err := ctx.Err(); err != nil {
		return weather.Position{}, err
	}
	if l.position == nil {
		return weather.Position{}, weather.ErrLocationUnavailable
	}
	return *l.position, nil
}

func (l *GeocoderLocator) ReverseGeocode(ctx context.Context, pos weather.Position) (weather.Place, error) {
	if l.apiKey == "" {
		return weather.Place{}, fmt.Errorf("reverse geocoding disabled: %w", weather.ErrLocationUnavailable)
	}

	type outcome struct {
		addresses []geocoder.Address
		err       error
	}
	done := make(chan outcome, 1)

	go func() {
		apiKeyMu.Lock()
		defer apiKeyMu.Unlock()

		geocoder.ApiKey = l.apiKey
		addresses, err := l.reverse(geocoder.Location{Latitude: pos.Latitude, Longitude: pos.Longitude})
		done <- outcome{addresses: addresses, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Place{}, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return weather.Place{}, fmt.Errorf("reverse geocode: %w", out.err)
		}
		if len(out.addresses) == 0 {
			return weather.Place{}, fmt.Errorf("reverse geocode: no results: %w", weather.ErrLocationUnavailable)
		}
		return placeFromAddresses(out.addresses), nil
	}
}

// placeFromAddresses merges geocoder results, most specific first, taking the
// first non-empty value of each field.
func placeFromAddresses(addresses []geocoder.Address) weather.Place {
	var place weather.Place
	for _, a := range addresses {
		if place.Locality == "" {
			place.Locality = a.City
		}
		if place.PostalCode == "" {
			place.PostalCode = a.PostalCode
		}
		if place.Country == "" {
			place.Country = a.Country
		}
	}
	place.CountryCode = countryCode(place.Country)
	return place
}

// countryCode returns country as an ISO 3166-1 alpha-2 code when it already
// is one. The geocoder reports long names, so this is often empty.
func countryCode(country string) string {
	country = strings.TrimSpace(country)
	if len(country) != 2 {
		return ""
	}
	for _, r := range country {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return ""
		}
	}
	return strings.ToUpper(country)
}
