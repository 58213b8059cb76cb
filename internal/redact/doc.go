// Package redact scrubs event payloads before they reach the dump.
//
// Two transforms apply to every non-exempt event: values under sensitive
// keys are replaced wholesale, and IPv4 literals embedded in strings
// (SDP, ICE candidates) are masked down to their /16. A fixed allow-list
// of media-acquisition event tags bypasses redaction entirely, because a
// scrubbed getUserMedia event would make multimedia-permission analysis
// impossible downstream.
//
// An optional CEL expression can additionally drop whole events before
// the append; see Filter.
package redact
