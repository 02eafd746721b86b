package weather

import (
	"context"
)

// Fetcher abstracts the current-conditions provider (OpenWeatherMap).
// Failures are returned as *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (Record, error)
}

// Locator supplies the device position and its reverse-geocoded place.
// Implementations return ErrLocationUnavailable when they cannot answer.
type Locator interface {
	CurrentPosition(ctx context.Context) (Position, error)
	ReverseGeocode(ctx context.Context, pos Position) (Place, error)
}

// FetchAsync runs f.Fetch on its own goroutine and delivers at most one Result.
// A result counts as delivered only once the caller has received it; if ctx is
// done first, nothing is delivered and the channel is closed. The caller must
// either receive from the channel or cancel ctx.
func FetchAsync(ctx context.Context, f Fetcher, q Query) <-chan Result {
	out := make(chan Result)

	go func() {
		defer close(out)

		rec, err := f.Fetch(ctx, q)
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
		case out <- Result{Query: q, Record: rec, Err: err}:
		}
	}()

	return out
}
