package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/current-weather/internal/api/http"
	"github.com/i474232898/current-weather/internal/config"
	"github.com/i474232898/current-weather/internal/geo"
	"github.com/i474232898/current-weather/internal/logging"
	"github.com/i474232898/current-weather/internal/scheduler"
	"github.com/i474232898/current-weather/internal/weather"
	"github.com/i474232898/current-weather/internal/weather/providers"
)

type CLI struct {
	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP API (default)."`
	Current CurrentCmd `cmd:"" help:"Print current conditions for one location."`
	Watch   WatchCmd   `cmd:"" help:"Refresh the configured watch locations periodically."`
}

// deps is built once from configuration and bound into every command.
type deps struct {
	cfg     *config.AppConfig
	logger  *zap.Logger
	service *weather.Service
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("current-weather"),
		kong.Description("Current weather conditions from OpenWeatherMap."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey,
		providers.WithBaseURL(cfg.OpenWeatherBaseURL),
		providers.WithLogger(logger),
	)
	locator := geo.NewGeocoderLocator(cfg.DevicePosition, cfg.GeocoderAPIKey)
	service := weather.NewService(provider, locator, cfg.FallbackPlace(), logger)

	err = kctx.Run(&deps{cfg: cfg, logger: logger, service: service})
	kctx.FatalIfErrorf(err)
}

type ServeCmd struct {
	NoWatch bool `help:"Do not run the watch scheduler alongside the server."`
}

func (c *ServeCmd) Run(d *deps) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !c.NoWatch {
		sched := scheduler.New(d.cfg.WatchQueries, d.cfg.WatchInterval, d.service, logSink(d.logger), d.logger)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	app := httpapi.NewApp(d.service, true)

	go func() {
		d.logger.Info("starting server", zap.String("port", d.cfg.Port))
		if err := app.Listen(":" + d.cfg.Port); err != nil {
			d.logger.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type CurrentCmd struct {
	City    string        `help:"City name." group:"location"`
	Lat     string        `help:"Latitude in decimal degrees (with --lon)." group:"location"`
	Lon     string        `help:"Longitude in decimal degrees (with --lat)." group:"location"`
	Zip     string        `help:"Postal code (with --country)." group:"location"`
	Country string        `help:"ISO 3166 country code (with --zip)." group:"location"`
	Here    string        `help:"Use the device location, by postal_code or coordinates."`
	Timeout time.Duration `help:"Overall deadline for the lookup." default:"15s"`
}

func (c *CurrentCmd) Run(d *deps) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	var (
		rec weather.Record
		err error
	)
	switch c.Here {
	case string(weather.ModePostalCode):
		rec, err = d.service.CurrentForDevicePlace(ctx)
	case string(weather.ModeCoordinates):
		rec, err = d.service.CurrentForDevice(ctx)
	case "":
		q, qerr := c.query()
		if qerr != nil {
			return qerr
		}
		rec, err = d.service.Current(ctx, q)
	default:
		return fmt.Errorf("--here must be postal_code or coordinates, got %q", c.Here)
	}
	if err != nil {
		return fmt.Errorf("lookup failed [%s]: %w", weather.KindOf(err), err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func (c *CurrentCmd) query() (weather.Query, error) {
	modes := 0
	if c.City != "" {
		modes++
	}
	if c.Lat != "" || c.Lon != "" {
		modes++
	}
	if c.Zip != "" || c.Country != "" {
		modes++
	}
	if modes != 1 {
		return nil, fmt.Errorf("give exactly one of --city, --lat/--lon, --zip/--country or --here")
	}

	switch {
	case c.City != "":
		return weather.ByCityName{City: c.City}, nil
	case c.Lat != "" || c.Lon != "":
		lat, err := strconv.ParseFloat(c.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --lat: %w", err)
		}
		lon, err := strconv.ParseFloat(c.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --lon: %w", err)
		}
		return weather.ByCoordinates{Latitude: lat, Longitude: lon}, nil
	default:
		return weather.ByPostalCode{PostalCode: c.Zip, CountryCode: c.Country}, nil
	}
}

type WatchCmd struct {
	City     []string      `help:"City to watch (repeatable); replaces WATCH_CITIES and WATCH_POSTAL_CODES."`
	Interval time.Duration `help:"Refresh interval; overrides WATCH_INTERVAL."`
}

func (c *WatchCmd) Run(d *deps) error {
	queries := d.cfg.WatchQueries
	if len(c.City) > 0 {
		queries = queries[:0:0]
		for _, city := range c.City {
			queries = append(queries, weather.ByCityName{City: city})
		}
	}
	if len(queries) == 0 {
		return fmt.Errorf("nothing to watch: set WATCH_CITIES, WATCH_POSTAL_CODES or --city")
	}

	interval := d.cfg.WatchInterval
	if c.Interval > 0 {
		interval = c.Interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(queries, interval, d.service, printSink, d.logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	<-ctx.Done()
	return nil
}

func logSink(logger *zap.Logger) scheduler.Sink {
	return func(res weather.Result) {
		if res.Err != nil {
			return
		}
		fields := []zap.Field{
			zap.Stringer("query", res.Query),
			zap.String("location", res.Record.LocationName),
			zap.Time("observed_at", res.Record.ObservedTime()),
		}
		if t := res.Record.TemperatureC; t != nil {
			fields = append(fields, zap.Float64("temperature_c", *t))
		}
		logger.Info("watch refreshed", fields...)
	}
}

func printSink(res weather.Result) {
	if res.Err != nil {
		fmt.Printf("%-28s  error [%s]: %v\n", res.Query, weather.KindOf(res.Err), res.Err)
		return
	}

	rec := res.Record
	temp := "n/a"
	if rec.TemperatureC != nil {
		temp = strconv.FormatFloat(*rec.TemperatureC, 'f', 1, 64) + "°C"
	}
	summary := ""
	if c, ok := rec.PrimaryCondition(); ok && c.Description != nil {
		summary = *c.Description
	}
	fmt.Printf("%-28s  %-20s %8s  %s  (%s)\n",
		res.Query, rec.LocationName, temp, summary, rec.LocalObservedTime().Format("Mon 02 Jan 15:04"))
}
