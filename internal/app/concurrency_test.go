package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

func TestLoadPair(t *testing.T) {
	collection, filter, err := loadPair(context.Background(),
		func(context.Context) (domain.Collection, error) {
			return domain.Collection{Items: []domain.Quote{{Text: "A", Category: "X"}}}, nil
		},
		func(context.Context) (string, error) { return "X", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, 1, collection.Len())
	assert.Equal(t, "X", filter)
}

func TestLoadPair_FailureCancelsOther(t *testing.T) {
	storageDown := errors.New("storage down")

	n, s, err := loadPair(context.Background(),
		func(context.Context) (int, error) { return 7, storageDown },
		func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "late", ctx.Err()
		},
	)

	require.ErrorIs(t, err, storageDown)
	assert.Zero(t, n)
	assert.Empty(t, s)
}
