// Package sweep clears expired KV entries on startup.
package sweep

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/colonyops/daylog/internal/data/stores"
)

// Run removes expired KV entries once. Failures are logged, never
// fatal; expired rows are also dropped lazily on read.
func Run(ctx context.Context, kvStore *stores.KVStore) {
	if err := kvStore.SweepExpired(ctx); err != nil {
		log.Debug().Err(err).Msg("kv sweep failed")
	}
}
