// Package backend abstracts transaction submission and confirmation.
// Two interchangeable implementations exist: a bundle backend that pairs
// each trade with a tip transaction and submits atomically to a block
// engine, and a relay backend that posts single transactions to an HTTP
// accelerator. The backend is selected once at startup.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/tracker"
)

// PollInterval is the status polling cadence during confirmation waits.
const PollInterval = 100 * time.Millisecond

// ErrNotConfigured is returned when the selected backend is missing
// required configuration.
var ErrNotConfigured = errors.New("backend not configured")

// Backend submits transactions and reports their confirmation status.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Submit sends a single signed transaction and returns a submission ID.
	Submit(ctx context.Context, txBase64 string, meta domain.Submission) (string, error)

	// SubmitBatch sends a set of transactions atomically where the backend
	// supports it, individually otherwise. Returns one submission ID.
	SubmitBatch(ctx context.Context, txsBase64 []string, meta domain.Submission) (string, error)

	// PollStatus fetches the current status of a submission.
	PollStatus(ctx context.Context, id string) (domain.SubmissionStatus, error)

	// AwaitConfirmation polls until the submission reaches a terminal
	// status or the timeout elapses. Returns true only on confirmation.
	AwaitConfirmation(ctx context.Context, id string, timeout time.Duration) (bool, error)

	// Tracker exposes the backend's submission records for cleanup.
	Tracker() *tracker.Tracker
}

// awaitConfirmation is the shared poll loop. Transient poll errors are
// tolerated; the loop keeps going until a terminal status or the deadline.
func awaitConfirmation(ctx context.Context, b Backend, log zerolog.Logger, id string, timeout time.Duration) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
			status, err := b.PollStatus(ctx, id)
			if err != nil {
				log.Debug().Err(err).Str("submission", id).Msg("status poll failed")
				continue
			}
			switch status {
			case domain.SubmissionConfirmed:
				b.Tracker().UpdateStatus(id, domain.SubmissionConfirmed)
				return true, nil
			case domain.SubmissionFailed:
				b.Tracker().UpdateStatus(id, domain.SubmissionFailed)
				return false, nil
			}
		}
	}
}
