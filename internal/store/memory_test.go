package store_test

import (
	"testing"

	"github.com/albapepper/courtside-data/internal/store"
)

func TestMemoryGateway(t *testing.T) {
	runGatewaySuite(t, func(t *testing.T) backend {
		return store.NewMemory()
	})
}
