package sink

import (
	"bytes"
	"context"
	"strings"
	"testing"

	pebblestore "github.com/ggarber/rtcstats-server/internal/storage/pebble"
)

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIndexRoundTrip(t *testing.T) {
	ix := NewIndex(newTestDB(t))
	res := Result{
		Origin:             "https://app.example.com",
		ClientID:           "c1",
		ConnectionID:       "pc_0",
		ClientFeatures:     map[string]any{"browser": "firefox"},
		ConnectionFeatures: map[string]any{"iceRestarts": uint64(0)},
		StreamFeatures:     map[string]any{"audioTracks": uint64(1)},
	}
	if err := ix.Put(context.Background(), res); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := ix.Get(res.Origin, res.ClientID, res.ConnectionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Origin != res.Origin || got.ConnectionID != res.ConnectionID {
		t.Fatalf("round trip: %+v", got)
	}
	if got.ClientFeatures["browser"] != "firefox" {
		t.Fatalf("features lost: %+v", got.ClientFeatures)
	}
}

func TestBlobCompressedRoundTrip(t *testing.T) {
	db := newTestDB(t)
	blobs, err := NewBlobs(db)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer blobs.Close()

	raw := []byte(strings.Repeat(`["custom",null,{"n":1},100]`+"\n", 500))
	if err := blobs.Put(context.Background(), "c2", raw); err != nil {
		t.Fatalf("put: %v", err)
	}

	stored, err := db.Get(BlobKey("c2"))
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if len(stored) >= len(raw) {
		t.Fatalf("value not compressed: stored %d raw %d", len(stored), len(raw))
	}

	got, err := blobs.Get("c2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("round trip mismatch: %d vs %d bytes", len(got), len(raw))
	}
}

func TestKeys(t *testing.T) {
	if string(IdxKey("o", "c", "p")) != "idx/o/c/p" {
		t.Fatalf("idx key: %q", IdxKey("o", "c", "p"))
	}
	if string(BlobKey("c")) != "blob/c" {
		t.Fatalf("blob key: %q", BlobKey("c"))
	}
}
