package backend

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/tracker"
)

// minRelayPriorityFee is the floor for the relay per-transaction fee.
const minRelayPriorityFee = 50_000

// RelayOptions configures the relay backend.
type RelayOptions struct {
	BaseURL     string
	APIKey      string
	MaxGasPrice uint64 // lamports; base fee is derived from this
	Timeout     time.Duration
	Retention   time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// Relay submits single transactions to an HTTP transaction accelerator
// and polls its status endpoint for confirmation.
type Relay struct {
	baseURL     string
	apiKey      string
	baseFee     uint64
	client      *http.Client
	submissions *tracker.Tracker
	statuses    sync.Map // submission ID -> relay signature
	log         zerolog.Logger
}

var _ Backend = (*Relay)(nil)

// NewRelay creates the relay backend.
func NewRelay(opts RelayOptions) (*Relay, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: relay url is required", ErrNotConfigured)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	baseFee := opts.MaxGasPrice / 10
	if baseFee < minRelayPriorityFee {
		baseFee = minRelayPriorityFee
	}

	return &Relay{
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		baseFee:     baseFee,
		client:      client,
		submissions: tracker.New(opts.Retention),
		log:         opts.Logger.With().Str("backend", "relay").Logger(),
	}, nil
}

func (r *Relay) Name() string { return "relay" }

// Tracker exposes the backend's submission records.
func (r *Relay) Tracker() *tracker.Tracker { return r.submissions }

// BaseFee returns the per-transaction priority fee attached to submissions.
func (r *Relay) BaseFee() uint64 { return r.baseFee }

type relaySubmitRequest struct {
	Transaction string `json:"transaction"`
	Encoding    string `json:"encoding"`
	PriorityFee uint64 `json:"priority_fee"`
}

type relaySubmitResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error,omitempty"`
}

type relayStatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Submit posts one transaction to the relay. The relay assigns no
// client-visible batch ID, so a local submission ID is generated.
func (r *Relay) Submit(ctx context.Context, txBase64 string, meta domain.Submission) (string, error) {
	body, err := json.Marshal(relaySubmitRequest{
		Transaction: txBase64,
		Encoding:    "base64",
		PriorityFee: r.baseFee,
	})
	if err != nil {
		return "", fmt.Errorf("marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/v1/submit", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay submit: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read submit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("relay submit status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed relaySubmitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal submit response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("relay rejected transaction: %s", parsed.Error)
	}

	id := newRelayID()

	meta.ID = id
	meta.TxCount = 1
	meta.Status = domain.SubmissionPending
	if meta.CreatedAt == 0 {
		meta.CreatedAt = time.Now().Unix()
	}
	r.submissions.Record(&meta)
	r.statuses.Store(id, parsed.Signature)

	r.log.Info().
		Str("submission", id).
		Str("signature", parsed.Signature).
		Uint64("fee", r.baseFee).
		Msg("transaction relayed")

	return id, nil
}

// SubmitBatch posts each transaction individually; the relay has no
// atomic batch semantics. The first submission's ID identifies the batch.
func (r *Relay) SubmitBatch(ctx context.Context, txsBase64 []string, meta domain.Submission) (string, error) {
	if len(txsBase64) == 0 {
		return "", fmt.Errorf("empty batch")
	}

	firstID := ""
	for _, tx := range txsBase64 {
		id, err := r.Submit(ctx, tx, meta)
		if err != nil {
			return "", err
		}
		if firstID == "" {
			firstID = id
		}
	}
	return firstID, nil
}

// PollStatus queries the relay's status endpoint for the submission's
// underlying signature.
func (r *Relay) PollStatus(ctx context.Context, id string) (domain.SubmissionStatus, error) {
	sig, ok := r.statuses.Load(id)
	if !ok {
		return domain.SubmissionPending, fmt.Errorf("unknown submission %q", id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/v1/status/"+sig.(string), nil)
	if err != nil {
		return domain.SubmissionPending, fmt.Errorf("create status request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.SubmissionPending, fmt.Errorf("relay status: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SubmissionPending, fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.SubmissionPending, fmt.Errorf("relay status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed relayStatusResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.SubmissionPending, fmt.Errorf("unmarshal status response: %w", err)
	}

	switch parsed.Status {
	case "confirmed", "finalized", "landed":
		return domain.SubmissionConfirmed, nil
	case "failed", "dropped":
		return domain.SubmissionFailed, nil
	}
	return domain.SubmissionPending, nil
}

// AwaitConfirmation polls until the relay reports a terminal status or
// the timeout elapses.
func (r *Relay) AwaitConfirmation(ctx context.Context, id string, timeout time.Duration) (bool, error) {
	return awaitConfirmation(ctx, r, r.log, id, timeout)
}

// newRelayID generates a local submission identifier.
func newRelayID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("relay_%d", time.Now().UnixNano())
	}
	return "relay_" + hex.EncodeToString(buf)
}
