package sink

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	pebblestore "github.com/ggarber/rtcstats-server/internal/storage/pebble"
)

// PebbleIndex is the local FeatureIndex implementation.
type PebbleIndex struct {
	db *pebblestore.DB
}

// NewIndex builds a PebbleIndex over db.
func NewIndex(db *pebblestore.DB) *PebbleIndex {
	return &PebbleIndex{db: db}
}

// Put stores one result record keyed by origin/client/connection.
func (ix *PebbleIndex) Put(ctx context.Context, res Result) error {
	val, err := cbor.Marshal(res)
	if err != nil {
		return fmt.Errorf("sink: encode result: %w", err)
	}
	return ix.db.Set(IdxKey(res.Origin, res.ClientID, res.ConnectionID), val)
}

// Get loads one result record; used by tests and ad-hoc inspection.
func (ix *PebbleIndex) Get(origin, clientID, connectionID string) (Result, error) {
	raw, err := ix.db.Get(IdxKey(origin, clientID, connectionID))
	if err != nil {
		return Result{}, err
	}
	var res Result
	if err := cbor.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("sink: decode result: %w", err)
	}
	return res, nil
}
