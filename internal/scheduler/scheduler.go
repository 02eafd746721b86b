package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/current-weather/internal/metrics"
	"github.com/i474232898/current-weather/internal/weather"
)

// Sink receives every outcome of a watch run.
type Sink func(weather.Result)

// Current is the part of weather.Service the scheduler needs.
type Current interface {
	Current(ctx context.Context, q weather.Query) (weather.Record, error)
}

// Scheduler periodically refreshes current conditions for configured queries.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Current
	queries   []weather.Query
	interval  time.Duration
	timeout   time.Duration
	breakers  []*gobreaker.CircuitBreaker
	sink      Sink
	logger    *zap.Logger
}

// New creates a new Scheduler. Each query gets its own circuit breaker that
// opens after tripAfter consecutive failures.
func New(queries []weather.Query, interval time.Duration, service Current, sink Sink, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = func(weather.Result) {}
	}

	s := &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		queries:   queries,
		interval:  interval,
		timeout:   30 * time.Second,
		sink:      sink,
		logger:    logger,
	}

	for _, q := range queries {
		name := q.String()
		s.breakers = append(s.breakers, gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    0,
			Timeout:     interval * 4,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= tripAfter
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Info("watch breaker state changed",
					zap.String("query", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			},
		}))
	}

	return s
}

const tripAfter = 3

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.queries) == 0 {
		s.logger.Info("scheduler: no watch queries configured; nothing to schedule")
		return nil
	}

	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = int((15 * time.Minute).Seconds())
	}

	_, err := s.scheduler.Every(seconds).Seconds().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every query concurrently and hands the outcomes to the sink.
func (s *Scheduler) RunOnce(ctx context.Context) []weather.Result {
	s.logger.Debug("scheduler: running watch job", zap.Int("queries", len(s.queries)))

	results := weather.FetchAll(ctx, s.queries, s.runQuery)

	for _, res := range results {
		s.sink(res)
	}

	s.logger.Debug("scheduler: completed watch job")
	return results
}

func (s *Scheduler) runQuery(ctx context.Context, i int, q weather.Query) (weather.Record, error) {
	out, err := s.breakers[i].Execute(func() (interface{}, error) {
		return s.service.Current(ctx, q)
	})

	switch {
	case err == nil:
		rec, ok := out.(weather.Record)
		if !ok {
			return weather.Record{}, errors.New("unexpected result type from circuit breaker")
		}
		metrics.WatchRunsTotal.WithLabelValues(q.String(), "ok").Inc()
		return rec, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		s.logger.Debug("scheduler: skipping query, breaker open", zap.Stringer("query", q))
		metrics.WatchRunsTotal.WithLabelValues(q.String(), "skipped").Inc()
	default:
		s.logger.Warn("scheduler: fetch failed",
			zap.Stringer("query", q),
			zap.String("kind", string(weather.KindOf(err))),
			zap.Error(err),
		)
		metrics.WatchRunsTotal.WithLabelValues(q.String(), string(weather.KindOf(err))).Inc()
	}
	return weather.Record{}, err
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
