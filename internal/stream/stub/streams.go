// Package stub provides channel-fed stream implementations for tests.
package stub

import (
	"context"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/stream"
)

// Listings is a ListingStream fed by Push.
type Listings struct {
	ch chan domain.TokenListing
}

var _ stream.ListingStream = (*Listings)(nil)

// NewListings creates a stub listing stream with the given buffer.
func NewListings(buffer int) *Listings {
	return &Listings{ch: make(chan domain.TokenListing, buffer)}
}

// Push enqueues a listing.
func (s *Listings) Push(l domain.TokenListing) { s.ch <- l }

// Close ends the stream; Next returns ErrClosed after the buffer drains.
func (s *Listings) Close() { close(s.ch) }

func (s *Listings) Next(ctx context.Context) (domain.TokenListing, error) {
	select {
	case l, ok := <-s.ch:
		if !ok {
			return domain.TokenListing{}, stream.ErrClosed
		}
		return l, nil
	case <-ctx.Done():
		return domain.TokenListing{}, ctx.Err()
	}
}

// Prices is a PriceStream fed by Push.
type Prices struct {
	ch chan domain.PriceUpdate
}

var _ stream.PriceStream = (*Prices)(nil)

// NewPrices creates a stub price stream with the given buffer.
func NewPrices(buffer int) *Prices {
	return &Prices{ch: make(chan domain.PriceUpdate, buffer)}
}

// Push enqueues a price update.
func (s *Prices) Push(u domain.PriceUpdate) { s.ch <- u }

// Close ends the stream; Next returns ErrClosed after the buffer drains.
func (s *Prices) Close() { close(s.ch) }

func (s *Prices) Next(ctx context.Context) (domain.PriceUpdate, error) {
	select {
	case u, ok := <-s.ch:
		if !ok {
			return domain.PriceUpdate{}, stream.ErrClosed
		}
		return u, nil
	case <-ctx.Done():
		return domain.PriceUpdate{}, ctx.Err()
	}
}
