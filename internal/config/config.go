package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/current-weather/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	OpenWeatherAPIKey  string `validate:"required"`
	OpenWeatherBaseURL string `validate:"required,url"`

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Fallback place for "weather here" lookups when the device place is unknown.
	DefaultPostalCode  string
	DefaultCountryCode string `validate:"omitempty,alpha,len=2"`

	// Device position; nil when not configured.
	DevicePosition *weather.Position

	GeocoderAPIKey string

	// WatchInterval controls how often the watch scheduler refreshes.
	WatchInterval time.Duration `validate:"gte=1m"`
	WatchQueries  []weather.Query

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	Port string `validate:"required,numeric"`
}

// FallbackPlace returns the configured default place.
func (c *AppConfig) FallbackPlace() weather.Place {
	return weather.Place{PostalCode: c.DefaultPostalCode, CountryCode: c.DefaultCountryCode}
}

// Load reads configuration from .env and the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.DefaultPostalCode = os.Getenv("DEFAULT_POSTAL_CODE")
	cfg.DefaultCountryCode = os.Getenv("DEFAULT_COUNTRY_CODE")
	if (cfg.DefaultPostalCode == "") != (cfg.DefaultCountryCode == "") {
		return nil, errors.New("DEFAULT_POSTAL_CODE and DEFAULT_COUNTRY_CODE must be set together")
	}

	pos, err := loadDevicePosition()
	if err != nil {
		return nil, err
	}
	cfg.DevicePosition = pos
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	interval, err := time.ParseDuration(getenvDefault("WATCH_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid WATCH_INTERVAL: %w", err)
	}
	cfg.WatchInterval = interval

	queries, err := loadWatchQueries()
	if err != nil {
		return nil, err
	}
	cfg.WatchQueries = queries

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "json"))
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadDevicePosition() (*weather.Position, error) {
	latStr := os.Getenv("DEVICE_LATITUDE")
	lonStr := os.Getenv("DEVICE_LONGITUDE")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEVICE_LATITUDE: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEVICE_LONGITUDE: %w", err)
	}

	q := weather.ByCoordinates{Latitude: lat, Longitude: lon}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device position: %w", err)
	}
	return &weather.Position{Latitude: lat, Longitude: lon}, nil
}

// loadWatchQueries parses WATCH_CITIES ("Lahore;London") and
// WATCH_POSTAL_CODES ("44000,PK;SW1A 1AA,GB").
func loadWatchQueries() ([]weather.Query, error) {
	var queries []weather.Query

	for _, city := range splitList(os.Getenv("WATCH_CITIES")) {
		queries = append(queries, weather.ByCityName{City: city})
	}

	for _, entry := range splitList(os.Getenv("WATCH_POSTAL_CODES")) {
		zip, country, ok := strings.Cut(entry, ",")
		if !ok {
			return nil, fmt.Errorf("invalid WATCH_POSTAL_CODES entry %q: want <postal code>,<country code>", entry)
		}
		q := weather.ByPostalCode{PostalCode: strings.TrimSpace(zip), CountryCode: strings.TrimSpace(country)}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("invalid WATCH_POSTAL_CODES entry %q: %w", entry, err)
		}
		queries = append(queries, q)
	}

	return queries, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
