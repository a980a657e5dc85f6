package balance

import (
	"context"
	"errors"
	"net/http"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/journal"
	"github.com/congo-pay/dot_balance/internal/lightclient"
	"github.com/congo-pay/dot_balance/internal/syncgate"
)

// Retryable reports whether a failed lookup may succeed if attempted again.
func Retryable(err error) bool {
	var qe *chain.QueryError
	switch {
	case err == nil:
		return false
	case errors.Is(err, lightclient.ErrWorkerResolution):
		return false
	case errors.Is(err, lightclient.ErrWorkerStart):
		return true
	case errors.Is(err, syncgate.ErrSyncTimeout), errors.Is(err, syncgate.ErrStreamEnded):
		return true
	case errors.As(err, &qe):
		return qe.ConnectionFault
	default:
		return false
	}
}

// Outcome classifies err for the lookup journal.
func Outcome(err error) string {
	switch {
	case err == nil:
		return journal.OutcomeOK
	case errors.Is(err, lightclient.ErrWorkerResolution):
		return journal.OutcomeWorkerResolution
	case errors.Is(err, lightclient.ErrWorkerStart):
		return journal.OutcomeWorkerStart
	case errors.Is(err, syncgate.ErrSyncTimeout):
		return journal.OutcomeSyncTimeout
	case errors.Is(err, chain.ErrQuery):
		return journal.OutcomeQuery
	case errors.Is(err, context.Canceled):
		return journal.OutcomeCanceled
	default:
		return journal.OutcomeError
	}
}

// HTTPStatus maps a failed lookup to a response status.
func HTTPStatus(err error) int {
	var qe *chain.QueryError
	switch {
	case errors.As(err, &qe) && !qe.ConnectionFault:
		return http.StatusBadRequest
	case Retryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// invalidates reports whether err leaves the connection unfit for reuse.
func invalidates(err error) bool {
	var qe *chain.QueryError
	if errors.As(err, &qe) {
		return qe.ConnectionFault
	}
	return err != nil
}
