package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/current-weather/internal/metrics"
	"github.com/i474232898/current-weather/internal/weather"
)

// DefaultOpenWeatherURL is the OpenWeatherMap current weather endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements weather.Fetcher for OpenWeatherMap.
// It holds only immutable configuration and is safe for concurrent use.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	logger  *zap.Logger
}

// Option customizes an OpenWeatherProvider.
type Option func(*OpenWeatherProvider)

// WithBaseURL points the provider at another endpoint (tests, proxies).
func WithBaseURL(baseURL string) Option {
	return func(p *OpenWeatherProvider) { p.baseURL = baseURL }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(p *OpenWeatherProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMaxBodyBytes caps the response body size.
func WithMaxBodyBytes(n int64) Option {
	return func(p *OpenWeatherProvider) { p.httpCfg.MaxBodyBytes = n }
}

// NewOpenWeatherProvider creates a provider using client for transport.
// A nil client gets one with DefaultTimeout.
func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...Option) *OpenWeatherProvider {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherURL,
		httpCfg: HTTPClientConfig{
			Client:       client,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name is the provider label used in logs and metrics.
func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Fetch issues one GET for q and returns the normalized record.
// Every failure is a *weather.FetchError.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, q weather.Query) (weather.Record, error) {
	start := time.Now()
	rec, err := p.fetch(ctx, q)
	metrics.ObserveFetch(p.Name(), modeOf(q), weather.KindOf(err), time.Since(start))
	return rec, err
}

func (p *OpenWeatherProvider) fetch(ctx context.Context, q weather.Query) (weather.Record, error) {
	mode := modeOf(q)
	log := p.logger.With(
		zap.String("fetch_id", uuid.NewString()),
		zap.String("provider", p.Name()),
		zap.String("mode", string(mode)),
	)

	req, err := p.buildRequest(q)
	if err != nil {
		log.Warn("cannot build request", zap.Error(err))
		return weather.Record{}, weather.NewFetchError(weather.KindInvalidRequest, mode, err)
	}

	log.Debug("requesting current weather", zap.String("url", redactURL(req.URL, "appid")))

	raw, err := doRequest(ctx, p.httpCfg, req)
	if err != nil {
		log.Warn("transport failure", zap.Error(err))
		fe := weather.NewFetchError(weather.KindTransport, mode, err)
		fe.StatusCode = raw.StatusCode
		return weather.Record{}, fe
	}

	limit := p.httpCfg.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	if int64(len(raw.Body)) > limit {
		log.Warn("response body exceeds limit", zap.Int64("limit", limit))
		return weather.Record{}, &weather.FetchError{
			Kind:       weather.KindDecode,
			Mode:       mode,
			StatusCode: raw.StatusCode,
			Err:        errBodyTooLarge,
		}
	}

	rec, err := decodeCurrent(raw.Body)
	if err != nil {
		if msg := providerMessage(raw.Body); msg != "" {
			err = fmt.Errorf("provider message %q: %w", msg, err)
		}
		log.Warn("cannot decode response", zap.Int("status", raw.StatusCode), zap.Error(err))
		return weather.Record{}, &weather.FetchError{
			Kind:       weather.KindDecode,
			Mode:       mode,
			StatusCode: raw.StatusCode,
			Err:        err,
		}
	}

	if raw.StatusCode < 200 || raw.StatusCode >= 300 {
		log.Warn("decoded record from non-2xx response", zap.Int("status", raw.StatusCode))
	}

	log.Debug("current weather received",
		zap.String("location", rec.LocationName),
		zap.Int64("dt", rec.ObservedAt),
	)
	return rec, nil
}

// buildRequest translates q into the provider URL. It never touches the network.
func (p *OpenWeatherProvider) buildRequest(q weather.Query) (*http.Request, error) {
	if q == nil {
		return nil, errors.New("nil query")
	}
	if p.apiKey == "" {
		return nil, errors.New("openweather api key is not configured")
	}

	base, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", p.baseURL)
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}

	values := url.Values{}
	switch q := q.(type) {
	case weather.ByCityName:
		values.Set("q", q.City)
	case weather.ByCoordinates:
		values.Set("lat", weather.FormatDegrees(q.Latitude))
		values.Set("lon", weather.FormatDegrees(q.Longitude))
	case weather.ByPostalCode:
		values.Set("zip", q.PostalCode+","+q.CountryCode)
	default:
		return nil, fmt.Errorf("unsupported query type %T", q)
	}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")

	base.RawQuery = values.Encode()

	return http.NewRequest(http.MethodGet, base.String(), nil)
}

func modeOf(q weather.Query) weather.Mode {
	if q == nil {
		return ""
	}
	return q.Mode()
}

type currentPayload struct {
	Name     *string `json:"name"`
	Dt       *int64  `json:"dt"`
	Timezone *int64  `json:"timezone"`

	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
		Humidity  *float64 `json:"humidity"`
		Pressure  *int64   `json:"pressure"`
	} `json:"main"`

	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`

	Weather []struct {
		ID          *int64  `json:"id"`
		Main        *string `json:"main"`
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
	} `json:"weather"`

	Sys *struct {
		Country *string `json:"country"`
		Sunrise *int64  `json:"sunrise"`
		Sunset  *int64  `json:"sunset"`
	} `json:"sys"`
}

// decodeCurrent parses a current weather body. Absent or null optional
// fields stay nil; a missing name, dt or timezone is an error.
func decodeCurrent(body []byte) (weather.Record, error) {
	var payload currentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.Record{}, fmt.Errorf("unmarshal: %w", err)
	}

	switch {
	case payload.Name == nil:
		return weather.Record{}, errors.New(`missing required field "name"`)
	case payload.Dt == nil:
		return weather.Record{}, errors.New(`missing required field "dt"`)
	case payload.Timezone == nil:
		return weather.Record{}, errors.New(`missing required field "timezone"`)
	}

	rec := weather.Record{
		LocationName: *payload.Name,
		ObservedAt:   *payload.Dt,
		UTCOffset:    *payload.Timezone,
		Conditions:   make([]weather.Condition, 0, len(payload.Weather)),
	}

	if m := payload.Main; m != nil {
		rec.TemperatureC = m.Temp
		rec.FeelsLikeC = m.FeelsLike
		rec.TemperatureMinC = m.TempMin
		rec.TemperatureMaxC = m.TempMax
		rec.HumidityPercent = m.Humidity
		rec.PressureHPa = m.Pressure
	}
	if w := payload.Wind; w != nil {
		rec.WindSpeed = w.Speed
	}
	for _, c := range payload.Weather {
		rec.Conditions = append(rec.Conditions, weather.Condition{
			ID:          c.ID,
			Main:        c.Main,
			Description: c.Description,
			Icon:        c.Icon,
		})
	}
	if s := payload.Sys; s != nil {
		rec.CountryCode = s.Country
		rec.SunriseAt = s.Sunrise
		rec.SunsetAt = s.Sunset
	}

	return rec, nil
}

// providerMessage extracts the "message" of an OpenWeatherMap error body.
func providerMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Message
}
