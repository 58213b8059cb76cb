package extract

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ggarber/rtcstats-server/internal/sink"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script workers require a unix shell")
	}
	path := filepath.Join(t.TempDir(), "worker.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestProcWorkerStreamsResults(t *testing.T) {
	script := writeScript(t, `
echo '{"clientId":"c1","connectionId":"pc_0","origin":"https://example.com"}'
echo 'not json at all'
echo '{"clientId":"c1","connectionId":"pc_1","origin":"https://example.com"}'
`)
	spawn := newSpawner(script, t.TempDir(), quietLogger())
	h, err := spawn(context.Background(), "c1")
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	var got []sink.Result
	if err := h.consume(func(r sink.Result) { got = append(got, r) }); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results: %d, want 2", len(got))
	}
	if got[0].ConnectionID != "pc_0" || got[1].ConnectionID != "pc_1" {
		t.Fatalf("results out of order: %+v", got)
	}
}

func TestProcWorkerNonZeroExit(t *testing.T) {
	script := writeScript(t, `
echo '{"clientId":"c2","connectionId":"pc_0","origin":"o"}'
exit 3
`)
	spawn := newSpawner(script, t.TempDir(), quietLogger())
	h, err := spawn(context.Background(), "c2")
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	var got []sink.Result
	err = h.consume(func(r sink.Result) { got = append(got, r) })
	if err == nil {
		t.Fatalf("expected non-nil error for exit status 3")
	}
	// Results emitted before the failure still arrive.
	if len(got) != 1 {
		t.Fatalf("results: %d, want 1", len(got))
	}
}

func TestProcWorkerReceivesSessionAndSpoolDir(t *testing.T) {
	script := writeScript(t, `
printf '{"clientId":"%s","origin":"%s"}\n' "$1" "$RTCSTATS_SPOOL_DIR"
`)
	spool := t.TempDir()
	spawn := newSpawner(script, spool, quietLogger())
	h, err := spawn(context.Background(), "sess-42")
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	var got []sink.Result
	if err := h.consume(func(r sink.Result) { got = append(got, r) }); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results: %d", len(got))
	}
	if got[0].ClientID != "sess-42" {
		t.Fatalf("argv session id not passed: %+v", got[0])
	}
	if got[0].Origin != spool {
		t.Fatalf("spool dir not in environment: %+v", got[0])
	}
}

func TestSpawnMissingBinary(t *testing.T) {
	spawn := newSpawner(filepath.Join(t.TempDir(), "does-not-exist"), t.TempDir(), quietLogger())
	if _, err := spawn(context.Background(), "x"); err == nil {
		t.Fatalf("expected spawn error for missing binary")
	}
}
