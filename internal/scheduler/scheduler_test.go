package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/current-weather/internal/weather"
)

type stubService struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (s *stubService) Current(ctx context.Context, q weather.Query) (weather.Record, error) {
	s.calls.Add(1)
	if s.fail[q.String()] {
		return weather.Record{}, weather.NewFetchError(weather.KindTransport, q.Mode(), errors.New("down"))
	}
	return weather.Record{LocationName: q.String()}, nil
}

func TestRunOnce(t *testing.T) {
	svc := &stubService{fail: map[string]bool{"city:Atlantis": true}}

	var (
		mu   sync.Mutex
		sunk []weather.Result
	)
	queries := []weather.Query{
		weather.ByCityName{City: "Lahore"},
		weather.ByCityName{City: "Atlantis"},
		weather.ByPostalCode{PostalCode: "44000", CountryCode: "PK"},
	}
	s := New(queries, time.Minute, svc, func(res weather.Result) {
		mu.Lock()
		defer mu.Unlock()
		sunk = append(sunk, res)
	}, nil)

	results := s.RunOnce(context.Background())

	require.Len(t, results, 3)
	assert.Equal(t, "city:Lahore", results[0].Record.LocationName)
	assert.ErrorIs(t, results[1].Err, weather.ErrTransport)
	assert.Equal(t, "zip:44000,PK", results[2].Record.LocationName)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, sunk, 3)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	svc := &stubService{fail: map[string]bool{"city:Atlantis": true}}
	s := New([]weather.Query{weather.ByCityName{City: "Atlantis"}}, time.Minute, svc, nil, nil)

	for i := 0; i < tripAfter; i++ {
		res := s.RunOnce(context.Background())
		assert.ErrorIs(t, res[0].Err, weather.ErrTransport)
	}
	assert.Equal(t, int32(tripAfter), svc.calls.Load())
	assert.Equal(t, gobreaker.StateOpen, s.breakers[0].State())

	res := s.RunOnce(context.Background())
	assert.ErrorIs(t, res[0].Err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(tripAfter), svc.calls.Load(), "open breaker must not call the service")
}

func TestStartWithoutQueries(t *testing.T) {
	s := New(nil, time.Minute, &stubService{}, nil, nil)
	require.NoError(t, s.Start())
	s.Stop()
}

func TestStartRunsImmediately(t *testing.T) {
	svc := &stubService{}
	done := make(chan weather.Result, 1)
	s := New([]weather.Query{weather.ByCityName{City: "Lahore"}}, time.Hour, svc, func(res weather.Result) {
		select {
		case done <- res:
		default:
		}
	}, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case res := <-done:
		assert.NoError(t, res.Err)
		assert.Equal(t, "city:Lahore", res.Record.LocationName)
	case <-time.After(5 * time.Second):
		t.Fatal("watch job did not run")
	}
}
