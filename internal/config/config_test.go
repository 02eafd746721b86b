package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/current-weather/internal/weather"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENWEATHER_BASE_URL", "HTTP_TIMEOUT", "DEFAULT_POSTAL_CODE", "DEFAULT_COUNTRY_CODE",
		"DEVICE_LATITUDE", "DEVICE_LONGITUDE", "GEOCODER_API_KEY", "WATCH_INTERVAL",
		"WATCH_CITIES", "WATCH_POSTAL_CODES", "LOG_LEVEL", "LOG_FORMAT", "PORT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("OPENWEATHER_API_KEY", "test-key")
}

func TestFromEnvDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.OpenWeatherAPIKey)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather", cfg.OpenWeatherBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Minute, cfg.WatchInterval)
	assert.Nil(t, cfg.DevicePosition)
	assert.Empty(t, cfg.WatchQueries)
	assert.Equal(t, weather.Place{}, cfg.FallbackPlace())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "8080", cfg.Port)
}

func TestFromEnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("DEFAULT_POSTAL_CODE", "44000")
	t.Setenv("DEFAULT_COUNTRY_CODE", "PK")
	t.Setenv("DEVICE_LATITUDE", "31.5204")
	t.Setenv("DEVICE_LONGITUDE", "74.3587")
	t.Setenv("WATCH_INTERVAL", "5m")
	t.Setenv("WATCH_CITIES", "Lahore; London,GB ;")
	t.Setenv("WATCH_POSTAL_CODES", "44000,PK; 10115 , DE")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, weather.Place{PostalCode: "44000", CountryCode: "PK"}, cfg.FallbackPlace())
	require.NotNil(t, cfg.DevicePosition)
	assert.Equal(t, weather.Position{Latitude: 31.5204, Longitude: 74.3587}, *cfg.DevicePosition)
	assert.Equal(t, 5*time.Minute, cfg.WatchInterval)
	assert.Equal(t, []weather.Query{
		weather.ByCityName{City: "Lahore"},
		weather.ByCityName{City: "London,GB"},
		weather.ByPostalCode{PostalCode: "44000", CountryCode: "PK"},
		weather.ByPostalCode{PostalCode: "10115", CountryCode: "DE"},
	}, cfg.WatchQueries)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing api key", map[string]string{"OPENWEATHER_API_KEY": ""}},
		{"bad timeout", map[string]string{"HTTP_TIMEOUT": "soon"}},
		{"zero timeout", map[string]string{"HTTP_TIMEOUT": "0s"}},
		{"bad base url", map[string]string{"OPENWEATHER_BASE_URL": "not a url"}},
		{"postal code without country", map[string]string{"DEFAULT_POSTAL_CODE": "44000"}},
		{"bad default country", map[string]string{"DEFAULT_POSTAL_CODE": "44000", "DEFAULT_COUNTRY_CODE": "PAK"}},
		{"latitude only", map[string]string{"DEVICE_LATITUDE": "31.5"}},
		{"latitude out of range", map[string]string{"DEVICE_LATITUDE": "95", "DEVICE_LONGITUDE": "0"}},
		{"watch interval too short", map[string]string{"WATCH_INTERVAL": "10s"}},
		{"bad watch postal code", map[string]string{"WATCH_POSTAL_CODES": "44000"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"bad port", map[string]string{"PORT": "http"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
