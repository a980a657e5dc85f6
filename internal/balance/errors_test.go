package balance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/journal"
	"github.com/congo-pay/dot_balance/internal/lightclient"
	"github.com/congo-pay/dot_balance/internal/syncgate"
)

func TestErrorClassification(t *testing.T) {
	invalid := &chain.QueryError{Address: "x", Err: errors.New("bad checksum")}
	dropped := &chain.QueryError{Address: "x", ConnectionFault: true, Err: errors.New("eof")}

	cases := []struct {
		name      string
		err       error
		retryable bool
		status    int
		outcome   string
	}{
		{"resolution", fmt.Errorf("%w: not found", lightclient.ErrWorkerResolution), false, http.StatusInternalServerError, journal.OutcomeWorkerResolution},
		{"start", fmt.Errorf("%w: boom", lightclient.ErrWorkerStart), true, http.StatusServiceUnavailable, journal.OutcomeWorkerStart},
		{"sync timeout", fmt.Errorf("%w after 1s", syncgate.ErrSyncTimeout), true, http.StatusServiceUnavailable, journal.OutcomeSyncTimeout},
		{"stream ended", syncgate.ErrStreamEnded, true, http.StatusServiceUnavailable, journal.OutcomeError},
		{"subscribe refused", fmt.Errorf("%w: subscribe finalized blocks: %w", syncgate.ErrStreamEnded, errors.New("use of closed connection")), true, http.StatusServiceUnavailable, journal.OutcomeError},
		{"invalid address", invalid, false, http.StatusBadRequest, journal.OutcomeQuery},
		{"connection fault", dropped, true, http.StatusServiceUnavailable, journal.OutcomeQuery},
		{"canceled", context.Canceled, false, http.StatusInternalServerError, journal.OutcomeCanceled},
		{"unknown", errors.New("mystery"), false, http.StatusInternalServerError, journal.OutcomeError},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.retryable {
			t.Fatalf("%s: Retryable = %v want %v", tc.name, got, tc.retryable)
		}
		if got := HTTPStatus(tc.err); got != tc.status {
			t.Fatalf("%s: HTTPStatus = %d want %d", tc.name, got, tc.status)
		}
		if got := Outcome(tc.err); got != tc.outcome {
			t.Fatalf("%s: Outcome = %s want %s", tc.name, got, tc.outcome)
		}
	}
	if Outcome(nil) != journal.OutcomeOK || Retryable(nil) {
		t.Fatalf("nil error must be ok and not retryable")
	}
}

func TestInvalidates(t *testing.T) {
	if invalidates(nil) {
		t.Fatalf("success must keep the connection")
	}
	if invalidates(&chain.QueryError{Err: errors.New("bad address")}) {
		t.Fatalf("identifier errors must keep the connection")
	}
	if !invalidates(&chain.QueryError{ConnectionFault: true, Err: errors.New("eof")}) {
		t.Fatalf("connection faults must invalidate")
	}
	if !invalidates(syncgate.ErrSyncTimeout) {
		t.Fatalf("sync timeouts must invalidate")
	}
}
