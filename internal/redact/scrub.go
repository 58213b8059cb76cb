package redact

import (
	"regexp"
	"strings"
)

// Masked replaces values under sensitive keys.
const Masked = "[REDACTED]"

// mediaEventPrefixes is the allow-list of sensitive-media-acquisition
// event families appended unmodified. Their payloads carry the device and
// permission details that permission analysis depends on.
var mediaEventPrefixes = []string{
	"getUserMedia",
	"getDisplayMedia",
	"enumerateDevices",
	"navigator.mediaDevices.",
}

// IsMediaEvent reports whether tag belongs to the redaction allow-list.
func IsMediaEvent(tag string) bool {
	for _, p := range mediaEventPrefixes {
		if strings.HasPrefix(tag, p) {
			return true
		}
	}
	return false
}

var ipv4Re = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3})\.\d{1,3}\.\d{1,3}\b`)

// maskIPs blunts IPv4 literals to their /16.
func maskIPs(s string) string {
	return ipv4Re.ReplaceAllString(s, "$1.0.0")
}

// Scrubber applies in-place payload redaction.
type Scrubber struct {
	keys map[string]struct{}
}

// defaultKeys are the payload fields always replaced. Extra keys can be
// supplied at construction.
var defaultKeys = []string{
	"ip",
	"address",
	"relatedAddress",
	"credential",
	"token",
	"username",
}

// NewScrubber builds a Scrubber masking the default sensitive keys plus
// any extras.
func NewScrubber(extra ...string) *Scrubber {
	keys := make(map[string]struct{}, len(defaultKeys)+len(extra))
	for _, k := range defaultKeys {
		keys[k] = struct{}{}
	}
	for _, k := range extra {
		keys[k] = struct{}{}
	}
	return &Scrubber{keys: keys}
}

// Scrub walks a decoded JSON payload and returns the redacted form:
// sensitive keys are replaced with Masked, and every remaining string has
// embedded addresses blunted. Maps and slices are rewritten in place.
func (s *Scrubber) Scrub(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if _, sensitive := s.keys[k]; sensitive {
				t[k] = Masked
				continue
			}
			t[k] = s.Scrub(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = s.Scrub(t[i])
		}
		return t
	case string:
		return maskIPs(t)
	default:
		return v
	}
}
