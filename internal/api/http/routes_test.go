package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/current-weather/internal/weather"
)

type stubService struct {
	got       weather.Query
	err       error
	deviceErr error
	byDevice  string
}

func (s *stubService) Current(ctx context.Context, q weather.Query) (weather.Record, error) {
	s.got = q
	if s.err != nil {
		return weather.Record{}, s.err
	}
	if err := q.Validate(); err != nil {
		return weather.Record{}, weather.NewFetchError(weather.KindInvalidRequest, q.Mode(), err)
	}
	zero := int64(0)
	return weather.Record{LocationName: "Lahore", ObservedAt: 1700000000, UTCOffset: 18000, PressureHPa: &zero}, nil
}

func (s *stubService) CurrentForDevice(ctx context.Context) (weather.Record, error) {
	s.byDevice = "coordinates"
	if s.deviceErr != nil {
		return weather.Record{}, s.deviceErr
	}
	return weather.Record{LocationName: "Here"}, nil
}

func (s *stubService) CurrentForDevicePlace(ctx context.Context) (weather.Record, error) {
	s.byDevice = "postal_code"
	if s.deviceErr != nil {
		return weather.Record{}, s.deviceErr
	}
	return weather.Record{LocationName: "Here"}, nil
}

func get(t *testing.T, svc Service, target string) (int, map[string]any) {
	t.Helper()
	app := NewApp(svc, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func TestCurrentAddressingModes(t *testing.T) {
	tests := []struct {
		target string
		want   weather.Query
	}{
		{"/api/v1/weather/current?city=Lahore", weather.ByCityName{City: "Lahore"}},
		{"/api/v1/weather/current?city=S%C3%A3o%20Paulo", weather.ByCityName{City: "São Paulo"}},
		{"/api/v1/weather/current?lat=31.5204&lon=74.3587", weather.ByCoordinates{Latitude: 31.5204, Longitude: 74.3587}},
		{"/api/v1/weather/current?zip=44000&country=PK", weather.ByPostalCode{PostalCode: "44000", CountryCode: "PK"}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			svc := &stubService{}
			status, body := get(t, svc, tt.target)

			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.want, svc.got)
			assert.Equal(t, "Lahore", body["locationName"])
		})
	}
}

func TestCurrentRendersAbsentAndZeroDifferently(t *testing.T) {
	_, body := get(t, &stubService{}, "/api/v1/weather/current?city=Lahore")

	pressure, ok := body["pressureHPa"]
	require.True(t, ok, "zero pressure must be rendered")
	assert.Equal(t, 0.0, pressure)

	_, ok = body["temperatureC"]
	assert.False(t, ok, "absent temperature must be omitted")
}

func TestCurrentBadRequests(t *testing.T) {
	targets := []string{
		"/api/v1/weather/current",
		"/api/v1/weather/current?city=Lahore&lat=1&lon=2",
		"/api/v1/weather/current?lat=31.5",
		"/api/v1/weather/current?lat=abc&lon=2",
		"/api/v1/weather/current?lat=91&lon=2",
		"/api/v1/weather/current?zip=44000",
		"/api/v1/weather/current?zip=44000&country=PK&city=Lahore",
		"/api/v1/weather/current?zip=44000&country=PAK",
	}

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			status, body := get(t, &stubService{}, target)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, true, body["error"])
		})
	}
}

func TestCurrentFailureKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"transport", weather.NewFetchError(weather.KindTransport, weather.ModeCity, errors.New("refused")), http.StatusBadGateway, "transport_failure"},
		{"decode", weather.NewFetchError(weather.KindDecode, weather.ModeCity, errors.New("bad json")), http.StatusBadGateway, "decode_failure"},
		{"invalid", weather.NewFetchError(weather.KindInvalidRequest, weather.ModeCity, errors.New("no key")), http.StatusBadRequest, "invalid_request"},
		{"other", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, &stubService{err: tt.err}, "/api/v1/weather/current?city=Lahore")
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantKind == "" {
				assert.NotContains(t, body, "kind")
			} else {
				assert.Equal(t, tt.wantKind, body["kind"])
			}
		})
	}
}

func TestHere(t *testing.T) {
	t.Run("postal code by default", func(t *testing.T) {
		svc := &stubService{}
		status, body := get(t, svc, "/api/v1/weather/here")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "postal_code", svc.byDevice)
		assert.Equal(t, "Here", body["locationName"])
	})

	t.Run("coordinates", func(t *testing.T) {
		svc := &stubService{}
		status, _ := get(t, svc, "/api/v1/weather/here?by=coordinates")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "coordinates", svc.byDevice)
	})

	t.Run("unknown mode", func(t *testing.T) {
		status, _ := get(t, &stubService{}, "/api/v1/weather/here?by=city")
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("location unavailable", func(t *testing.T) {
		status, body := get(t, &stubService{deviceErr: weather.ErrLocationUnavailable}, "/api/v1/weather/here")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "location_unavailable", body["kind"])
	})
}

func TestHealth(t *testing.T) {
	status, body := get(t, &stubService{}, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	app := NewApp(&stubService{}, false)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "go_goroutines")
}
