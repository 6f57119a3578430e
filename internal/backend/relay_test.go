package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/domain"
)

// relayServer fakes the accelerator's submit and status endpoints.
type relayServer struct {
	mu       sync.Mutex
	status   string
	lastAuth string
	lastFee  uint64
	submits  int
}

func (s *relayServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/submit", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.submits++
		s.lastAuth = r.Header.Get("Authorization")

		var req relaySubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.lastFee = req.PriorityFee

		json.NewEncoder(w).Encode(relaySubmitResponse{Signature: "sig_abc"})
	})
	mux.HandleFunc("/api/v1/status/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !strings.HasSuffix(r.URL.Path, "sig_abc") {
			http.Error(w, "unknown signature", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(relayStatusResponse{Status: s.status})
	})
	return mux
}

func newTestRelay(t *testing.T, srv *httptest.Server) *Relay {
	t.Helper()

	r, err := NewRelay(RelayOptions{
		BaseURL:     srv.URL,
		APIKey:      "secret",
		MaxGasPrice: 1_000_000,
		Timeout:     5 * time.Second,
		Retention:   600 * time.Second,
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}
	return r
}

func TestRelay_Submit(t *testing.T) {
	fake := &relayServer{status: "pending"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	r := newTestRelay(t, srv)

	id, err := r.Submit(context.Background(), "dHgx", domain.Submission{
		Strategy:     domain.StrategyArbitrage,
		TokenAddress: "TokA",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !strings.HasPrefix(id, "relay_") {
		t.Errorf("submission ID = %s, want relay_ prefix", id)
	}

	if fake.lastAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", fake.lastAuth)
	}
	// maxGasPrice/10 = 100000
	if fake.lastFee != 100_000 {
		t.Errorf("priority fee = %d, want 100000", fake.lastFee)
	}

	sub, ok := r.Tracker().Get(id)
	if !ok {
		t.Fatal("submission not tracked")
	}
	if sub.TxCount != 1 || sub.Status != domain.SubmissionPending {
		t.Errorf("unexpected tracked submission: %+v", sub)
	}
}

func TestRelay_BaseFeeFloor(t *testing.T) {
	srv := httptest.NewServer((&relayServer{}).handler())
	defer srv.Close()

	r, err := NewRelay(RelayOptions{
		BaseURL:     srv.URL,
		MaxGasPrice: 1_000, // /10 would be 100, below the floor
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}
	if r.BaseFee() != minRelayPriorityFee {
		t.Errorf("BaseFee = %d, want floor %d", r.BaseFee(), minRelayPriorityFee)
	}
}

func TestRelay_PollStatus(t *testing.T) {
	fake := &relayServer{status: "pending"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	r := newTestRelay(t, srv)
	ctx := context.Background()

	id, err := r.Submit(ctx, "dHgx", domain.Submission{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	status, err := r.PollStatus(ctx, id)
	if err != nil {
		t.Fatalf("PollStatus failed: %v", err)
	}
	if status != domain.SubmissionPending {
		t.Errorf("status = %s, want pending", status)
	}

	fake.mu.Lock()
	fake.status = "confirmed"
	fake.mu.Unlock()

	status, err = r.PollStatus(ctx, id)
	if err != nil {
		t.Fatalf("PollStatus failed: %v", err)
	}
	if status != domain.SubmissionConfirmed {
		t.Errorf("status = %s, want confirmed", status)
	}

	if _, err := r.PollStatus(ctx, "unknown"); err == nil {
		t.Error("Expected error for unknown submission ID")
	}
}

func TestRelay_AwaitConfirmation(t *testing.T) {
	fake := &relayServer{status: "pending"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	r := newTestRelay(t, srv)
	ctx := context.Background()

	id, err := r.Submit(ctx, "dHgx", domain.Submission{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	go func() {
		time.Sleep(250 * time.Millisecond)
		fake.mu.Lock()
		fake.status = "confirmed"
		fake.mu.Unlock()
	}()

	confirmed, err := r.AwaitConfirmation(ctx, id, 3*time.Second)
	if err != nil {
		t.Fatalf("AwaitConfirmation failed: %v", err)
	}
	if !confirmed {
		t.Fatal("expected confirmation")
	}

	sub, _ := r.Tracker().Get(id)
	if sub.Status != domain.SubmissionConfirmed {
		t.Errorf("tracked status = %s, want confirmed", sub.Status)
	}
}

func TestRelay_AwaitConfirmationFailed(t *testing.T) {
	fake := &relayServer{status: "dropped"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	r := newTestRelay(t, srv)
	ctx := context.Background()

	id, err := r.Submit(ctx, "dHgx", domain.Submission{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	confirmed, err := r.AwaitConfirmation(ctx, id, 2*time.Second)
	if err != nil {
		t.Fatalf("AwaitConfirmation failed: %v", err)
	}
	if confirmed {
		t.Fatal("dropped transaction must not confirm")
	}

	sub, _ := r.Tracker().Get(id)
	if sub.Status != domain.SubmissionFailed {
		t.Errorf("tracked status = %s, want failed", sub.Status)
	}
}

func TestRelay_SubmitBatchSendsIndividually(t *testing.T) {
	fake := &relayServer{status: "pending"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	r := newTestRelay(t, srv)

	id, err := r.SubmitBatch(context.Background(), []string{"dHgx", "dHgy", "dHgz"}, domain.Submission{})
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}
	if id == "" {
		t.Fatal("SubmitBatch returned empty ID")
	}
	if fake.submits != 3 {
		t.Errorf("server saw %d submits, want 3", fake.submits)
	}
}

func TestNewRelay_RequiresURL(t *testing.T) {
	if _, err := NewRelay(RelayOptions{Logger: zerolog.Nop()}); err == nil {
		t.Error("Expected ErrNotConfigured without a base URL")
	}
}
