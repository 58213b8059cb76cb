package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"

	"github.com/ggarber/rtcstats-server/internal/sink"
	logpkg "github.com/ggarber/rtcstats-server/pkg/log"
)

// maxResultLine bounds a single worker stdout line.
const maxResultLine = 4 << 20

// handle is one spawned worker. consume streams its messages and returns
// the exit status; tests substitute scripted handles through spawnFunc.
type handle interface {
	consume(onResult func(sink.Result)) error
}

type spawnFunc func(ctx context.Context, id string) (handle, error)

// procWorker wraps a running extraction process.
type procWorker struct {
	cmd    *exec.Cmd
	stdout *bufio.Scanner
}

// newSpawner builds the default process spawner: one short-lived process
// per session, given the identifier as its sole argument. The spool
// directory travels in the environment.
func newSpawner(command, spoolDir string, logger logpkg.Logger) spawnFunc {
	return func(ctx context.Context, id string) (handle, error) {
		cmd := exec.CommandContext(ctx, command, id)
		cmd.Env = append(os.Environ(), "RTCSTATS_SPOOL_DIR="+spoolDir)
		cmd.Stderr = logpkg.ToStdLogger(logger.With(logpkg.Str("session", id))).Writer()
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		sc := bufio.NewScanner(pipe)
		sc.Buffer(make([]byte, 64<<10), maxResultLine)
		return &procWorker{cmd: cmd, stdout: sc}, nil
	}
}

// consume forwards each stdout line that decodes as a result record,
// then waits for the process. A non-nil return means abnormal exit.
// Undecodable lines are skipped: a chatty worker must not kill its own
// extraction.
func (w *procWorker) consume(onResult func(sink.Result)) error {
	for w.stdout.Scan() {
		line := bytes.TrimSpace(w.stdout.Bytes())
		if len(line) == 0 {
			continue
		}
		var res sink.Result
		if err := json.Unmarshal(line, &res); err != nil {
			continue
		}
		onResult(res)
	}
	return w.cmd.Wait()
}
