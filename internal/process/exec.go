package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// For mocking in tests
var execCommand = exec.Command

const (
	// DefaultGracePeriod is how long a cancelled child gets between the
	// polite termination request and a hard kill.
	DefaultGracePeriod = 5 * time.Second

	lineBufferSize   = 256
	maxLineLength    = 1024 * 1024
	exitDrainTimeout = 500 * time.Millisecond
)

// ExecRunner runs commands as operating system processes.
type ExecRunner struct {
	GracePeriod time.Duration
}

// NewExecRunner creates an ExecRunner. A non-positive grace period selects
// DefaultGracePeriod.
func NewExecRunner(gracePeriod time.Duration) *ExecRunner {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &ExecRunner{GracePeriod: gracePeriod}
}

// Spawn starts cmd in the background and returns its handle immediately.
func (r *ExecRunner) Spawn(cmd Command) Handle {
	grace := r.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	h := &execHandle{
		stdout:    make(chan string, lineBufferSize),
		stderr:    make(chan string, lineBufferSize),
		done:      make(chan Result, 1),
		cancelled: make(chan struct{}),
	}
	go h.run(cmd, grace)
	return h
}

type execHandle struct {
	stdout    chan string
	stderr    chan string
	done      chan Result
	cancelled chan struct{}
	once      sync.Once
}

func (h *execHandle) Stdout() <-chan string { return h.stdout }
func (h *execHandle) Stderr() <-chan string { return h.stderr }
func (h *execHandle) Done() <-chan Result { return h.done }

func (h *execHandle) Cancel() {
	h.once.Do(func() { close(h.cancelled) })
}

func (h *execHandle) fail(err error) {
	close(h.stdout)
	close(h.stderr)
	h.done <- Result{ExitCode: -1, Err: err}
	close(h.done)
}

func (h *execHandle) run(c Command, grace time.Duration) {
	cmd := execCommand(c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Environ(os.Environ())
	setProcessGroup(cmd)

	// The readers belong to this handle rather than to cmd, so Wait
	// returns when the child exits even if a descendant still holds the
	// write ends.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.fail(fmt.Errorf("stdout pipe for %s: %w", c.Name, err))
		return
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		h.fail(fmt.Errorf("stderr pipe for %s: %w", c.Name, err))
		return
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	err = cmd.Start()
	closeAll(stdoutW, stderrW)
	if err != nil {
		closeAll(stdoutR, stderrR)
		h.fail(fmt.Errorf("failed to start process %s: %w", c.Name, err))
		return
	}

	exited := make(chan struct{})
	go func() {
		select {
		case <-h.cancelled:
			terminate(cmd, grace, exited)
		case <-exited:
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go scanLines(stdoutR, h.stdout, &wg)
	go scanLines(stderrR, h.stderr, &wg)
	scanned := make(chan struct{})
	go func() {
		wg.Wait()
		close(scanned)
	}()

	waitErr := cmd.Wait()
	close(exited)

	// Output already written is read within the drain window; after that
	// the readers are closed so a lingering descendant cannot hold Done.
	select {
	case <-scanned:
	case <-time.After(exitDrainTimeout):
		closeAll(stdoutR, stderrR)
		<-scanned
	}
	closeAll(stdoutR, stderrR)

	h.done <- exitResult(waitErr)
	close(h.done)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func scanLines(r io.Reader, out chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	// A scanner error (for example an over-long line) leaves the rest of
	// the stream unread; drain it so the child never blocks on a full pipe.
	if scanner.Err() != nil {
		_, _ = io.Copy(io.Discard, r)
	}
}

func exitResult(err error) Result {
	if err == nil {
		return Result{ExitCode: 0}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when the child was ended by a signal.
		return Result{ExitCode: exitErr.ExitCode()}
	}
	return Result{ExitCode: -1, Err: fmt.Errorf("waiting for process: %w", err)}
}
