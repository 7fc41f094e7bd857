package store_test

import (
	"testing"

	"github.com/albapepper/courtside-data/internal/store"
	"github.com/albapepper/courtside-data/internal/testhelpers"
)

func TestPostgresGateway(t *testing.T) {
	pool := testhelpers.GetTestPool(t)
	runGatewaySuite(t, func(t *testing.T) backend {
		testhelpers.Truncate(t, pool)
		return store.NewPostgres(pool.Pool)
	})
}
