package dump

// FormatVersion is written into every metadata record. Bump when the
// line format changes in a way extraction workers must distinguish.
const FormatVersion = 2

// Tags of the synthetic records appended by the server itself.
const (
	TagLocation = "location"
	TagClose    = "close"
)

// Meta is the first line of every dump, derived from the connection
// handshake.
type Meta struct {
	Path      string `json:"path"`
	Origin    string `json:"origin"`
	UserAgent string `json:"userAgent"`
	OpenedAt  int64  `json:"openedAt"`
	Version   int    `json:"version"`
}

// LocationRecord builds the best-effort enrichment line.
func LocationRecord(loc any, tsMs int64) []any {
	return []any{TagLocation, nil, loc, tsMs}
}

// CloseRecord builds the terminal line.
func CloseRecord(tsMs int64) []any {
	return []any{TagClose, nil, nil, tsMs}
}
