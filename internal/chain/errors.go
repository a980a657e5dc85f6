package chain

import (
	"errors"
	"fmt"
)

// ErrQuery classifies every failed state query.
var ErrQuery = errors.New("state query failed")

// QueryError describes a failed account state read.
type QueryError struct {
	Address string
	// ConnectionFault is set when the failure came from the transport rather
	// than from the identifier.
	ConnectionFault bool
	Err             error
}

func (e *QueryError) Error() string {
	kind := "identifier rejected"
	if e.ConnectionFault {
		kind = "connection fault"
	}
	return fmt.Sprintf("query account %q: %s: %v", e.Address, kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrQuery) match any QueryError.
func (e *QueryError) Is(target error) bool { return target == ErrQuery }
