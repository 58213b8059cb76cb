package sink

import "context"

// Result is one structured record emitted by an extraction worker. The
// pipeline stores it without further interpretation.
type Result struct {
	Origin             string         `json:"origin" cbor:"origin"`
	ClientID           string         `json:"clientId" cbor:"clientId"`
	ConnectionID       string         `json:"connectionId" cbor:"connectionId"`
	ClientFeatures     map[string]any `json:"clientFeatures,omitempty" cbor:"clientFeatures,omitempty"`
	ConnectionFeatures map[string]any `json:"connectionFeatures,omitempty" cbor:"connectionFeatures,omitempty"`
	StreamFeatures     map[string]any `json:"streamFeatures,omitempty" cbor:"streamFeatures,omitempty"`
}

// FeatureIndex receives structured results as they stream from workers.
type FeatureIndex interface {
	Put(ctx context.Context, res Result) error
}

// BlobStore receives the raw dump body once a worker has exited.
type BlobStore interface {
	Put(ctx context.Context, clientID string, raw []byte) error
}
