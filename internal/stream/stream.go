// Package stream delivers the two live event feeds the detector and the
// sniper consume: token listings and price updates.
package stream

import (
	"context"
	"errors"

	"pumpswap-sniper/internal/domain"
)

// ErrClosed is returned by Next once a stream is closed and drained.
var ErrClosed = errors.New("stream closed")

// ListingStream yields newly listed tokens in arrival order.
type ListingStream interface {
	// Next blocks until a listing arrives, the stream closes, or the
	// context is cancelled.
	Next(ctx context.Context) (domain.TokenListing, error)
}

// PriceStream yields price updates in arrival order.
type PriceStream interface {
	Next(ctx context.Context) (domain.PriceUpdate, error)
}

// next is the shared channel-receive helper for both stream kinds.
func next[T any](ctx context.Context, ch <-chan T) (T, error) {
	var zero T
	select {
	case v, ok := <-ch:
		if !ok {
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
