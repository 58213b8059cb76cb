package sink

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"

	pebblestore "github.com/ggarber/rtcstats-server/internal/storage/pebble"
)

// PebbleBlobs is the local BlobStore implementation. Dump bodies compress
// well (repetitive JSON), so values are stored zstd-compressed.
type PebbleBlobs struct {
	db  *pebblestore.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewBlobs builds a PebbleBlobs over db.
func NewBlobs(db *pebblestore.DB) (*PebbleBlobs, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	return &PebbleBlobs{db: db, enc: enc, dec: dec}, nil
}

// Put stores the raw dump for a session.
func (b *PebbleBlobs) Put(ctx context.Context, clientID string, raw []byte) error {
	return b.db.Set(BlobKey(clientID), b.enc.EncodeAll(raw, nil))
}

// Get loads and decompresses the raw dump for a session.
func (b *PebbleBlobs) Get(clientID string) ([]byte, error) {
	val, err := b.db.Get(BlobKey(clientID))
	if err != nil {
		return nil, err
	}
	return b.dec.DecodeAll(val, nil)
}

// Close releases the shared codec state.
func (b *PebbleBlobs) Close() {
	_ = b.enc.Close()
	b.dec.Close()
}
