package karma

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karmactl/internal/process"
)

const startLine = "[VS Server]: Started - port: 51234"

type testEnv struct {
	dir        string
	libDir     string
	configFile string
	runner     *fakeRunner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	projectDir := filepath.Join(root, "project")
	libDir := filepath.Join(root, "lib")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.MkdirAll(libDir, 0o755))

	configFile := filepath.Join(projectDir, "karma.conf.js")
	require.NoError(t, os.WriteFile(configFile, []byte("module.exports = function () {};\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, DefaultStartScript), []byte("// start\n"), 0o644))

	return &testEnv{dir: projectDir, libDir: libDir, configFile: configFile, runner: newFakeRunner()}
}

func (e *testEnv) server(t *testing.T, opts ...Option) *Server {
	t.Helper()
	base := []Option{WithRunner(e.runner), WithLibDirectory(e.libDir), WithLogger(nopLogger{})}
	s, err := New(e.configFile, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func (e *testEnv) nextHandle(t *testing.T) *fakeHandle {
	t.Helper()
	select {
	case h := <-e.runner.handles:
		return h
	case <-time.After(5 * time.Second):
		t.Fatal("no process was spawned")
		return nil
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{}) {}
func (nopLogger) Error(error, string, ...interface{}) {}

// recorder captures every event of a server in arrival order.
type recorder struct {
	mu      sync.Mutex
	started []int
	outputs []string
	errors  []string
	stops   []stopEvent
	stopped chan stopEvent
}

type stopEvent struct {
	exitCode *int
	failure  error
}

func record(s *Server) *recorder {
	r := &recorder{stopped: make(chan stopEvent, 4)}
	s.OnStarted(func(port int) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.started = append(r.started, port)
	})
	s.OnOutputReceived(func(line string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.outputs = append(r.outputs, line)
	})
	s.OnErrorReceived(func(line string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errors = append(r.errors, line)
	})
	s.OnStopped(func(exitCode *int, failure error) {
		ev := stopEvent{exitCode: exitCode, failure: failure}
		r.mu.Lock()
		r.stops = append(r.stops, ev)
		r.mu.Unlock()
		r.stopped <- ev
	})
	return r
}

func (r *recorder) waitStopped(t *testing.T) stopEvent {
	t.Helper()
	select {
	case ev := <-r.stopped:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("stopped event never fired")
		return stopEvent{}
	}
}

func (r *recorder) snapshot() (started []int, outputs, errs []string, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.started...), append([]string(nil), r.outputs...), append([]string(nil), r.errors...), len(r.stops)
}

func waitPort(t *testing.T, o *Outcome[int]) (int, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	port, err := o.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "start outcome never settled")
	return port, err
}

func TestNew(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := New(filepath.Join(env.dir, "nope.conf.js"))
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "configFile", cfgErr.Field)
	})

	t.Run("blank path", func(t *testing.T) {
		_, err := New("   ")
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("existing file", func(t *testing.T) {
		s, err := New(env.configFile, WithRunner(env.runner))
		require.NoError(t, err)
		assert.Equal(t, StateIdle, s.State())
		assert.Equal(t, 0, s.Port())
		assert.Nil(t, s.Finished())
		assert.Equal(t, env.dir, s.WorkingDirectory())
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := New(env.configFile, WithStartPattern(`port: \d+`))
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "startPattern", cfgErr.Field)
	})
}

func TestStart_DiscoversPort(t *testing.T) {
	env := newTestEnv(t)
	s := env.server(t)
	rec := record(s)

	outcome, err := s.Start(0)
	require.NoError(t, err)
	assert.Equal(t, StateStarting, s.State())

	h := env.nextHandle(t)
	h.out("Karma v6 server starting", startLine)

	port, err := waitPort(t, outcome)
	require.NoError(t, err)
	assert.Equal(t, 51234, port)
	assert.Equal(t, StateRunning, s.State())
	assert.Equal(t, 51234, s.Port())

	h.exit(0)
	ev := rec.waitStopped(t)
	require.NotNil(t, ev.exitCode)
	assert.Equal(t, 0, *ev.exitCode)
	assert.NoError(t, ev.failure)

	started, _, _, stops := rec.snapshot()
	assert.Equal(t, []int{51234}, started)
	assert.Equal(t, 1, stops)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 0, s.Port())
}

func TestStart_RejectedWhileActive(t *testing.T) {
	env := newTestEnv(t)
	s := env.server(t)

	outcome, err := s.Start(0)
	require.NoError(t, err)
	h := env.nextHandle(t)

	_, err = s.Start(0)
	var opErr *InvalidOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, StateStarting, opErr.State)
	assert.Contains(t, err.Error(), "starting")

	h.out(startLine)
	port, err := waitPort(t, outcome)
	require.NoError(t, err)
	assert.Equal(t, 51234, port)

	_, err = s.Start(0)
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, StateRunning, opErr.State)

	assert.Equal(t, int32(1), env.runner.spawns.Load())
	assert.Equal(t, StateRunning, s.State())
	h.exit(0)
}

func TestStart_TimeoutCancelsOnlyTheWait(t *testing.T) {
	env := newTestEnv(t)
	s := env.server(t)
	rec := record(s)

	begin := time.Now()
	outcome, err := s.Start(50 * time.Millisecond)
	require.NoError(t, err)
	h := env.nextHandle(t)
	h.out("compiling bundles")

	_, err = waitPort(t, outcome)
	assert.ErrorIs(t, err, ErrStartTimeout)
	assert.ErrorIs(t, err, ErrStartCancelled)
	assert.GreaterOrEqual(t, time.Since(begin), 50*time.Millisecond)

	// The process outlives the timeout.
	assert.Equal(t, StateStarting, s.State())
	assert.Equal(t, int32(0), h.cancels.Load())

	h.exit(1)
	ev := rec.waitStopped(t)
	require.NotNil(t, ev.exitCode)
	assert.Equal(t, 1, *ev.exitCode)
	assert.Equal(t, StateIdle, s.State())

	code, err := s.Finished().Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestStart_ExitBeforePortCancelsStart(t *testing.T) {
	env := newTestEnv(t)
	s := env.server(t)
	rec := record(s)

	outcome, err := s.Start(time.Minute)
	require.NoError(t, err)
	h := env.nextHandle(t)
	h.errOut("Error: Cannot find module 'karma'")
	h.exit(1)

	_, err = waitPort(t, outcome)
	assert.ErrorIs(t, err, ErrStartCancelled)
	assert.NotErrorIs(t, err, ErrStartTimeout)

	rec.waitStopped(t)
	_, _, errs, _ := rec.snapshot()
	assert.Equal(t, []string{"Error: Cannot find module 'karma'"}, errs)
}

func TestStart_OnlyFirstStartLineCounts(t *testing.T) {
	env := newTestEnv(t)
	s := env.server(t)
	rec := record(s)

	outcome, err := s.Start(0)
	require.NoError(t, err)
	h := env.nextHandle(t)
	h.out(startLine, "[VS Server]: Started - port: 60000", "marker")

	port, err := waitPort(t, outcome)
	require.NoError(t, err)
	assert.Equal(t, 51234, port)

	require.Eventually(t, func() bool {
		_, outputs, _, _ := rec.snapshot()
		return len(outputs) == 3
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 51234, s.Port())

	h.exit(0)
	rec.waitStopped(t)
	started, _, _, _ := rec.snapshot()
	assert.Equal(t, []int{51234}, started)
}

func TestStart_InvalidPortIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	s := env.server(t)

	outcome, err := s.Start(0)
	require.NoError(t, err)
	h := env.nextHandle(t)
	h.out("Started - port: 0", "Started - port: 99999", "Started - port: 9876")

	port, err := waitPort(t, outcome)
	require.NoError(t, err)
	assert.Equal(t, 9876, port)
	h.exit(0)
}

func TestStop(t *testing.T) {
	t.Run("running server", func(t *testing.T) {
		env := newTestEnv(t)
		env.runner.onCancel = func(h *fakeHandle) { go h.exit(143) }
		s := env.server(t)
		rec := record(s)

		outcome, err := s.Start(0)
		require.NoError(t, err)
		h := env.nextHandle(t)
		h.out(startLine)
		_, err = waitPort(t, outcome)
		require.NoError(t, err)

		s.Stop("shutdown")
		ev := rec.waitStopped(t)
		require.NotNil(t, ev.exitCode)
		assert.Equal(t, 143, *ev.exitCode)
		assert.Equal(t, int32(1), h.cancels.Load())

		// Nothing is tracked any more.
		s.Stop("again")
		assert.Equal(t, int32(1), h.cancels.Load())

		time.Sleep(20 * time.Millisecond)
		_, _, _, stops := rec.snapshot()
		assert.Equal(t, 1, stops)
		assert.Equal(t, StateIdle, s.State())
	})

	t.Run("never started", func(t *testing.T) {
		env := newTestEnv(t)
		s := env.server(t)
		rec := record(s)

		assert.NotPanics(t, func() { s.Stop("shutdown") })
		_, _, _, stops := rec.snapshot()
		assert.Equal(t, 0, stops)
		assert.Nil(t, s.Finished())
	})

	t.Run("restart after stop", func(t *testing.T) {
		env := newTestEnv(t)
		env.runner.onCancel = func(h *fakeHandle) { go h.exit(143) }
		s := env.server(t)
		rec := record(s)

		_, err := s.Start(0)
		require.NoError(t, err)
		first := env.nextHandle(t)
		s.Stop("restart")
		rec.waitStopped(t)

		outcome, err := s.Start(0)
		require.NoError(t, err)
		second := env.nextHandle(t)
		assert.NotSame(t, first, second)
		second.out(startLine)
		port, err := waitPort(t, outcome)
		require.NoError(t, err)
		assert.Equal(t, 51234, port)
		second.exit(0)
		rec.waitStopped(t)
	})
}

func TestStart_ForwardsLinesInOrder(t *testing.T) {
	env := newTestEnv(t)
	s := env.server(t)
	rec := record(s)

	_, err := s.Start(0)
	require.NoError(t, err)
	h := env.nextHandle(t)
	h.out("a", startLine, "b", "c")
	h.errOut("e1", "e2")
	h.exit(0)
	rec.waitStopped(t)

	_, outputs, errs, _ := rec.snapshot()
	assert.Equal(t, []string{"a", startLine, "b", "c"}, outputs)
	assert.Equal(t, []string{"e1", "e2"}, errs)
}

func TestStart_ProcessFailureSurfacesThroughStopped(t *testing.T) {
	env := newTestEnv(t)
	s := env.server(t)
	rec := record(s)

	outcome, err := s.Start(0)
	require.NoError(t, err)
	h := env.nextHandle(t)
	spawnErr := errors.New("exec: \"node\": executable file not found in $PATH")
	h.finish(process.Result{ExitCode: -1, Err: spawnErr})

	ev := rec.waitStopped(t)
	assert.Nil(t, ev.exitCode)
	assert.ErrorIs(t, ev.failure, spawnErr)

	_, err = waitPort(t, outcome)
	assert.ErrorIs(t, err, ErrStartCancelled)

	_, err = s.Finished().Wait(context.Background())
	assert.ErrorIs(t, err, spawnErr)
	assert.Equal(t, StateIdle, s.State())
}

func TestStart_ConfigurationErrors(t *testing.T) {
	t.Run("missing start script", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, os.Remove(filepath.Join(env.libDir, DefaultStartScript)))
		s := env.server(t)

		_, err := s.Start(0)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "startScript", cfgErr.Field)
		assert.Equal(t, StateIdle, s.State())
		assert.Equal(t, int32(0), env.runner.spawns.Load())
	})

	t.Run("working directory removed", func(t *testing.T) {
		env := newTestEnv(t)
		s := env.server(t)
		require.NoError(t, os.RemoveAll(env.dir))

		_, err := s.Start(0)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "workingDirectory", cfgErr.Field)
		assert.Equal(t, int32(0), env.runner.spawns.Load())
	})
}

func TestStart_BuildsNodeCommand(t *testing.T) {
	env := newTestEnv(t)
	parentModules := filepath.Join(filepath.Dir(env.dir), "node_modules")
	localModules := filepath.Join(env.dir, "node_modules")
	require.NoError(t, os.MkdirAll(parentModules, 0o755))
	require.NoError(t, os.MkdirAll(localModules, 0o755))

	s := env.server(t, WithNodeCommand([]string{"/usr/bin/node", "--max-old-space-size=4096"}))
	_, err := s.Start(0)
	require.NoError(t, err)
	h := env.nextHandle(t)
	defer h.exit(0)

	assert.Equal(t, "/usr/bin/node", h.cmd.Name)
	assert.Equal(t, []string{
		"--max-old-space-size=4096",
		filepath.Join(env.libDir, DefaultStartScript),
		"--karma", "karma.conf.js",
	}, h.cmd.Args)
	assert.Equal(t, env.dir, h.cmd.Dir)

	nodePath := strings.Split(h.cmd.Env["NODE_PATH"], string(os.PathListSeparator))
	require.GreaterOrEqual(t, len(nodePath), 2)
	assert.Equal(t, localModules, nodePath[0])
	assert.Equal(t, parentModules, nodePath[1])
}

func TestUnsubscribe(t *testing.T) {
	env := newTestEnv(t)
	s := env.server(t)

	var count int
	var mu sync.Mutex
	unsubscribe := s.OnOutputReceived(func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	rec := record(s)
	unsubscribe()
	unsubscribe()

	_, err := s.Start(0)
	require.NoError(t, err)
	h := env.nextHandle(t)
	h.out("line")
	h.exit(0)
	rec.waitStopped(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, count)
}
