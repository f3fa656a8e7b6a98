package notify

import (
	"context"
	"errors"
	"math/big"
)

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, count int, total *big.Int) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, count, total); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
