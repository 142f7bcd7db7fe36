package karma

import (
	"sync"
	"sync/atomic"

	"karmactl/internal/process"
)

// fakeHandle is a scripted child process driven by the test.
type fakeHandle struct {
	cmd      process.Command
	stdout   chan string
	stderr   chan string
	done     chan process.Result
	cancels  atomic.Int32
	exitOnce sync.Once
	onCancel func(h *fakeHandle)
}

func newFakeHandle(cmd process.Command) *fakeHandle {
	return &fakeHandle{
		cmd:    cmd,
		stdout: make(chan string, 64),
		stderr: make(chan string, 64),
		done:   make(chan process.Result, 1),
	}
}

func (h *fakeHandle) Stdout() <-chan string { return h.stdout }
func (h *fakeHandle) Stderr() <-chan string { return h.stderr }
func (h *fakeHandle) Done() <-chan process.Result { return h.done }

func (h *fakeHandle) Cancel() {
	h.cancels.Add(1)
	if h.onCancel != nil {
		h.onCancel(h)
	}
}

func (h *fakeHandle) out(lines ...string) {
	for _, l := range lines {
		h.stdout <- l
	}
}

func (h *fakeHandle) errOut(lines ...string) {
	for _, l := range lines {
		h.stderr <- l
	}
}

func (h *fakeHandle) finish(res process.Result) {
	h.exitOnce.Do(func() {
		close(h.stdout)
		close(h.stderr)
		h.done <- res
		close(h.done)
	})
}

func (h *fakeHandle) exit(code int) {
	h.finish(process.Result{ExitCode: code})
}

// fakeRunner hands every spawned handle to the test.
type fakeRunner struct {
	handles  chan *fakeHandle
	spawns   atomic.Int32
	onCancel func(h *fakeHandle)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{handles: make(chan *fakeHandle, 8)}
}

func (r *fakeRunner) Spawn(cmd process.Command) process.Handle {
	r.spawns.Add(1)
	h := newFakeHandle(cmd)
	h.onCancel = r.onCancel
	r.handles <- h
	return h
}
