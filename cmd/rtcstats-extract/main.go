package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ggarber/rtcstats-server/internal/dump"
	"github.com/ggarber/rtcstats-server/internal/sink"
)

// rtcstats-extract is the reference extraction worker. It reads the
// dump named by its single argument from RTCSTATS_SPOOL_DIR, aggregates
// basic per-connection features, and prints one JSON result line per
// connection. Exit status is non-zero when the dump cannot be read or
// parsed at all.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "rtcstats-extract:", err)
		os.Exit(1)
	}
}

type connStats struct {
	events  int
	tags    map[string]int
	firstTs int64
	lastTs  int64
}

func run() error {
	if len(os.Args) != 2 {
		return fmt.Errorf("usage: rtcstats-extract <session-id>")
	}
	spool := os.Getenv("RTCSTATS_SPOOL_DIR")
	if spool == "" {
		return fmt.Errorf("RTCSTATS_SPOOL_DIR is not set")
	}
	sid := os.Args[1]

	raw, err := dump.Read(spool, sid)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) == 0 {
		return fmt.Errorf("empty dump")
	}
	var meta dump.Meta
	if err := json.Unmarshal([]byte(lines[0]), &meta); err != nil {
		return fmt.Errorf("metadata line: %w", err)
	}

	conns := map[string]*connStats{}
	order := []string{}
	totalEvents := 0
	mediaEvents := 0
	var closedAt int64
	var location any

	for _, line := range lines[1:] {
		var arr []any
		if err := json.Unmarshal([]byte(line), &arr); err != nil || len(arr) < 4 {
			continue
		}
		tag, _ := arr[0].(string)
		ts, _ := arr[3].(float64)
		switch tag {
		case dump.TagClose:
			closedAt = int64(ts)
			continue
		case dump.TagLocation:
			location = arr[2]
			continue
		}
		totalEvents++
		if strings.HasPrefix(tag, "getUserMedia") || strings.HasPrefix(tag, "getDisplayMedia") {
			mediaEvents++
		}
		connID, _ := arr[1].(string)
		if connID == "" {
			continue
		}
		cs, ok := conns[connID]
		if !ok {
			cs = &connStats{tags: map[string]int{}, firstTs: int64(ts)}
			conns[connID] = cs
			order = append(order, connID)
		}
		cs.events++
		cs.tags[tag]++
		cs.lastTs = int64(ts)
	}

	clientFeatures := map[string]any{
		"userAgent":   meta.UserAgent,
		"path":        meta.Path,
		"eventCount":  totalEvents,
		"connections": len(conns),
	}
	if closedAt > 0 && meta.OpenedAt > 0 {
		clientFeatures["sessionDurationMs"] = closedAt - meta.OpenedAt
	}
	if location != nil {
		clientFeatures["location"] = location
	}

	enc := json.NewEncoder(os.Stdout)
	for _, connID := range order {
		cs := conns[connID]
		res := sink.Result{
			Origin:         meta.Origin,
			ClientID:       sid,
			ConnectionID:   connID,
			ClientFeatures: clientFeatures,
			ConnectionFeatures: map[string]any{
				"eventCount": cs.events,
				"durationMs": cs.lastTs - cs.firstTs,
				"tags":       cs.tags,
			},
			StreamFeatures: map[string]any{
				"mediaEventCount": mediaEvents,
			},
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return nil
}
