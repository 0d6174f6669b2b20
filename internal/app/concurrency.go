package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// loadPair runs two independent loads concurrently. The first failure
// cancels the other load's context and is returned with zero values.
func loadPair[A, B any](
	ctx context.Context,
	loadA func(context.Context) (A, error),
	loadB func(context.Context) (B, error),
) (A, B, error) {
	var (
		a A
		b B
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = loadA(gctx)
		return err
	})
	g.Go(func() (err error) {
		b, err = loadB(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		var (
			zeroA A
			zeroB B
		)

		return zeroA, zeroB, err
	}

	return a, b, nil
}
