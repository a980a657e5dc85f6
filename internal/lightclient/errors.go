package lightclient

import "errors"

var (
	// ErrWorkerResolution means the worker executable or endpoint could not be
	// located. This is a deployment defect; retrying will not help.
	ErrWorkerResolution = errors.New("light client worker could not be resolved")

	// ErrWorkerStart means the worker was located but failed to start or to
	// attach to the chain. Usually transient.
	ErrWorkerStart = errors.New("light client worker failed to start")

	// ErrCleanup wraps failures while releasing a connection. These are
	// logged and never returned to the workflow.
	ErrCleanup = errors.New("light client cleanup failed")

	// ErrPoolClosed is returned by Pool.Open after Close.
	ErrPoolClosed = errors.New("connection pool closed")
)
