package journal

import "time"

// Outcome values recorded for a lookup.
const (
	OutcomeOK               = "ok"
	OutcomeWorkerResolution = "worker_resolution"
	OutcomeWorkerStart      = "worker_start"
	OutcomeSyncTimeout      = "sync_timeout"
	OutcomeQuery            = "query"
	OutcomeCanceled         = "canceled"
	OutcomeError            = "error"
)

const (
	defaultRecentLimit     = 20
	maxRecentLimit         = 200
	defaultMemoryRetention = 1000
)

// Entry records one balance lookup. Balances themselves are never stored.
type Entry struct {
	ID          string
	Address     string
	Outcome     string
	BlockNumber uint64
	Duration    time.Duration
	CreatedAt   time.Time
}

// ClampLimit bounds a caller-supplied page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultRecentLimit
	case limit > maxRecentLimit:
		return maxRecentLimit
	default:
		return limit
	}
}
