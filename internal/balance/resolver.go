package balance

import (
	"context"
	"errors"

	"github.com/congo-pay/dot_balance/internal/chain"
)

// Resolver issues a single account state query and normalizes the result.
type Resolver struct {
	decimals int32
}

// NewResolver builds a resolver scaling by 10^-decimals.
func NewResolver(decimals int32) *Resolver {
	return &Resolver{decimals: decimals}
}

// Resolve reads the account once. An absent account yields zero balances.
func (r *Resolver) Resolve(ctx context.Context, client chain.Client, address string) (Result, error) {
	state, found, err := client.AccountInfo(ctx, address)
	if err != nil {
		var qe *chain.QueryError
		if !errors.As(err, &qe) {
			err = &chain.QueryError{Address: address, ConnectionFault: true, Err: err}
		}
		return Result{}, err
	}
	if !found {
		return FromState(chain.EmptyAccountState(), r.decimals, false), nil
	}
	return FromState(state, r.decimals, true), nil
}
