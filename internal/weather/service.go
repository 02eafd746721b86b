package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Service composes the provider client with the device locator.
type Service struct {
	fetcher  Fetcher
	locator  Locator
	fallback Place
	logger   *zap.Logger
}

// NewService creates a new Service. locator may be nil, in which case device
// lookups rely on fallback alone. fallback holds the postal code and country
// code used when the device place is unknown; leave it empty to disable.
func NewService(fetcher Fetcher, locator Locator, fallback Place, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher:  fetcher,
		locator:  locator,
		fallback: fallback,
		logger:   logger,
	}
}

// Current fetches current conditions for q.
func (s *Service) Current(ctx context.Context, q Query) (Record, error) {
	if q == nil {
		return Record{}, NewFetchError(KindInvalidRequest, "", errors.New("nil query"))
	}
	if err := q.Validate(); err != nil {
		return Record{}, NewFetchError(KindInvalidRequest, q.Mode(), err)
	}
	return s.fetcher.Fetch(ctx, q)
}

// CurrentForDevice fetches conditions at the device position.
func (s *Service) CurrentForDevice(ctx context.Context) (Record, error) {
	if s.locator == nil {
		return Record{}, ErrLocationUnavailable
	}
	pos, err := s.locator.CurrentPosition(ctx)
	if err != nil {
		s.logger.Info("device position unavailable", zap.Error(err))
		return Record{}, fmt.Errorf("current position: %w", ErrLocationUnavailable)
	}
	return s.Current(ctx, ByCoordinates{Latitude: pos.Latitude, Longitude: pos.Longitude})
}

// CurrentForDevicePlace fetches conditions for the postal code of the
// device's reverse-geocoded place, or for the fallback place when the device
// place is unknown or incomplete.
func (s *Service) CurrentForDevicePlace(ctx context.Context) (Record, error) {
	q, err := s.DevicePlaceQuery(ctx)
	if err != nil {
		return Record{}, err
	}
	return s.Current(ctx, q)
}

// DevicePlaceQuery resolves the postal code query used by CurrentForDevicePlace.
// A geocoded place is used only when it carries both a postal code and a
// country code. Otherwise the fallback place is used as a whole.
func (s *Service) DevicePlaceQuery(ctx context.Context) (ByPostalCode, error) {
	if s.locator != nil {
		place, err := s.devicePlace(ctx)
		switch {
		case err != nil:
			s.logger.Info("device place unavailable, using fallback",
				zap.Error(err),
				zap.String("fallback_postal_code", s.fallback.PostalCode),
				zap.String("fallback_country_code", s.fallback.CountryCode),
			)
		case place.PostalCode != "" && place.CountryCode != "":
			return ByPostalCode{PostalCode: place.PostalCode, CountryCode: place.CountryCode}, nil
		default:
			s.logger.Info("device place incomplete, using fallback",
				zap.String("postal_code", place.PostalCode),
				zap.String("country", place.Country),
				zap.String("country_code", place.CountryCode),
			)
		}
	}

	if s.fallback.PostalCode == "" || s.fallback.CountryCode == "" {
		return ByPostalCode{}, fmt.Errorf("device place: %w", ErrLocationUnavailable)
	}
	return ByPostalCode{PostalCode: s.fallback.PostalCode, CountryCode: s.fallback.CountryCode}, nil
}

func (s *Service) devicePlace(ctx context.Context) (Place, error) {
	pos, err := s.locator.CurrentPosition(ctx)
	if err != nil {
		return Place{}, err
	}
	return s.locator.ReverseGeocode(ctx, pos)
}

// FetchAll runs fetch for every query concurrently, one goroutine per query.
// fetch receives the query's index. Results are in input order.
func FetchAll(ctx context.Context, qs []Query, fetch func(ctx context.Context, i int, q Query) (Record, error)) []Result {
	results := make([]Result, len(qs))

	var wg sync.WaitGroup
	for i, q := range qs {
		wg.Add(1)
		go func() {
			defer wg.Done()

			rec, err := fetch(ctx, i, q)
			results[i] = Result{Query: q, Record: rec, Err: err}
		}()
	}
	wg.Wait()

	return results
}
