package reasoner

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Subprocess invokes the external reasoner as an opaque child process
// (§5: "external reasoner processes are opaque subprocesses; the system
// tracks their identifiers for cancellation"). Each call gets a fresh
// reasoner_session_id independent of the OS pid, since the reasoner may
// itself be a wrapper around a longer-lived remote session.
type Subprocess struct {
	Command string

	mu  sync.Mutex
	pid map[string]int // reasoner_session_id -> OS pid, held while the call runs
}

// NewSubprocess builds a Subprocess reasoner invoking command.
func NewSubprocess(command string) *Subprocess {
	return &Subprocess{Command: command, pid: make(map[string]int)}
}

// Execute runs the reasoner with prompt on stdin and opts.ExtraArgs on
// the command line, streaming stdout lines to sink as progress events.
// Result.Output is the stdout lines joined with "\n".
// Cancelling ctx kills the subprocess (os/exec propagates ctx
// cancellation to the child via CommandContext).
func (s *Subprocess) Execute(ctx context.Context, prompt string, opts Options, sink ProgressSink) (Result, error) {
	sessionID := uuid.NewString()

	args := make([]string, 0, len(opts.ExtraArgs)+2)
	if opts.ToolConfigPath != "" {
		args = append(args, "--tool-config", opts.ToolConfigPath)
	}
	args = append(args, opts.ExtraArgs...)

	cmd := exec.CommandContext(ctx, s.Command, args...)
	cmd.Stdin = strings.NewReader(prompt)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Success: false, Error: err.Error(), ReasonerSessionID: sessionID}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{Success: false, Error: err.Error(), ReasonerSessionID: sessionID}, err
	}

	if err := cmd.Start(); err != nil {
		return Result{Success: false, Error: err.Error(), ReasonerSessionID: sessionID}, err
	}

	s.mu.Lock()
	s.pid[sessionID] = cmd.Process.Pid
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pid, sessionID)
		s.mu.Unlock()
	}()

	var output strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go drainLines(&wg, stdout, func(line string) {
		if output.Len() > 0 {
			output.WriteString("\n")
		}
		output.WriteString(line)
		if sink != nil {
			sink(ProgressEvent{Text: line})
		}
	})
	go drainLines(&wg, stderr, func(line string) {
		slog.Warn("reasoner stderr", "session_id", sessionID, "line", line)
	})
	wg.Wait()

	waitErr := cmd.Wait()
	if waitErr != nil {
		return Result{
			Success:           false,
			Output:            output.String(),
			Error:             waitErr.Error(),
			ReasonerSessionID: sessionID,
		}, nil
	}

	return Result{
		Success:           true,
		Output:            output.String(),
		ReasonerSessionID: sessionID,
	}, nil
}

func drainLines(wg *sync.WaitGroup, r io.Reader, onLine func(string)) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
}
