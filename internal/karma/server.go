package karma

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"karmactl/internal/process"
	"karmactl/pkg/logging"
)

// DefaultStartPattern matches the line the adapter prints once Karma is
// listening. The first submatch is the port.
const DefaultStartPattern = `Started - port: (\d+)`

// Logger is the leveled logging the server needs.
type Logger interface {
	Debug(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(err error, format string, args ...interface{})
}

// Option configures a Server.
type Option func(*Server) error

// WithRunner replaces the process runner.
func WithRunner(r process.Runner) Option {
	return func(s *Server) error {
		if r == nil {
			return &ConfigurationError{Field: "runner", Reason: "runner is required"}
		}
		s.runner = r
		return nil
	}
}

// WithLogger replaces the logger.
func WithLogger(l Logger) Option {
	return func(s *Server) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// WithLibDirectory sets where the start script is looked up.
func WithLibDirectory(dir string) Option {
	return func(s *Server) error {
		if strings.TrimSpace(dir) != "" {
			s.libDirectory = dir
		}
		return nil
	}
}

// WithStartScript sets the start script file name inside the lib directory.
func WithStartScript(name string) Option {
	return func(s *Server) error {
		if strings.TrimSpace(name) != "" {
			s.startScript = name
		}
		return nil
	}
}

// WithNodeCommand sets the node executable and any leading arguments.
func WithNodeCommand(fields []string) Option {
	return func(s *Server) error {
		if len(fields) == 0 || strings.TrimSpace(fields[0]) == "" {
			return &ConfigurationError{Field: "node", Reason: "node command is empty"}
		}
		s.node = append([]string(nil), fields...)
		return nil
	}
}

// WithStartPattern overrides the start line pattern. It must contain one
// capture group for the port.
func WithStartPattern(pattern string) Option {
	return func(s *Server) error {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return &ConfigurationError{Field: "startPattern", Reason: err.Error()}
		}
		if re.NumSubexp() < 1 {
			return &ConfigurationError{Field: "startPattern", Reason: "pattern needs a capture group for the port"}
		}
		s.pattern = re
		return nil
	}
}

// Server supervises one Karma server process at a time.
type Server struct {
	configFile   string
	libDirectory string
	startScript  string
	node         []string
	pattern      *regexp.Regexp
	runner       process.Runner
	logger       Logger

	mu       sync.Mutex
	state    State
	port     int
	handle   process.Handle
	finished *Outcome[int]

	listeners listeners
}

// New creates a Server for the given Karma config file. The file must
// exist; the process is not started until Start.
func New(configFile string, opts ...Option) (*Server, error) {
	if strings.TrimSpace(configFile) == "" {
		return nil, &ConfigurationError{Field: "configFile", Reason: "path is required"}
	}
	abs, err := filepath.Abs(configFile)
	if err != nil {
		return nil, &ConfigurationError{Field: "configFile", Path: configFile, Reason: err.Error()}
	}
	if !isFile(abs) {
		return nil, &ConfigurationError{Field: "configFile", Path: abs, Reason: "configuration file does not exist"}
	}

	s := &Server{
		configFile:   abs,
		libDirectory: DefaultLibDirectory(),
		startScript:  DefaultStartScript,
		node:         []string{"node"},
		pattern:      regexp.MustCompile(DefaultStartPattern),
		runner:       process.NewExecRunner(0),
		logger:       logging.ForSubsystem("KarmaServer"),
		state:        StateIdle,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ConfigFile is the absolute path of the Karma config file.
func (s *Server) ConfigFile() string {
	return s.configFile
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Port returns the discovered port, or 0 while it is unknown.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Finished returns the exit outcome of the latest run, or nil if Start has
// never been called.
func (s *Server) Finished() *Outcome[int] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// OnStarted registers fn for the started event. The returned func
// unregisters it.
func (s *Server) OnStarted(fn func(port int)) func() {
	return s.listeners.started.add(fn)
}

// OnStopped registers fn for the stopped event. exitCode is nil when the
// process failed without an exit code, in which case failure is set.
func (s *Server) OnStopped(fn func(exitCode *int, failure error)) func() {
	return s.listeners.stopped.add(fn)
}

// OnOutputReceived registers fn for every standard output line.
func (s *Server) OnOutputReceived(fn func(line string)) func() {
	return s.listeners.output.add(fn)
}

// OnErrorReceived registers fn for every standard error line.
func (s *Server) OnErrorReceived(fn func(line string)) func() {
	return s.listeners.errLines.add(fn)
}

// Start launches the server and returns immediately. The returned outcome
// resolves with the port once the start line is seen, or is cancelled with
// ErrStartTimeout after timeout (if positive) or ErrStartCancelled when
// the process ends first. The timeout never stops the process.
func (s *Server) Start(timeout time.Duration) (*Outcome[int], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return nil, &InvalidOperationError{State: s.state}
	}

	cmd, err := s.processCommand()
	if err != nil {
		return nil, err
	}

	s.port = 0
	s.state = StateStarting
	started := newOutcome[int]()
	finished := newOutcome[int]()
	s.finished = finished

	s.logger.Debug("Starting Karma: %s", cmd)
	h := s.runner.Spawn(cmd)
	s.handle = h

	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			if started.cancel(ErrStartTimeout) {
				s.logger.Warn("Karma server did not report a port within %s", timeout)
			}
		})
	}

	go s.supervise(h, started, finished, timer)
	return started, nil
}

// Stop asks the running process to terminate. It does not wait; the
// stopped event reports the termination. Without a process it is a no-op.
func (s *Server) Stop(reason string) {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()

	if h == nil {
		return
	}
	s.logger.Warn("Killing karma server: %s", reason)
	h.Cancel()
}

// supervise owns one run. Every event of the run is dispatched from here,
// which keeps them in order and serialises the port check.
func (s *Server) supervise(h process.Handle, started, finished *Outcome[int], timer *time.Timer) {
	stdout, stderr := h.Stdout(), h.Stderr()
	for stdout != nil || stderr != nil {
		select {
		case line, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			if port, found := s.detectPort(h, line); found {
				s.listeners.emitStarted(port)
				started.resolve(port)
			}
			s.listeners.emitOutput(line)
		case line, ok := <-stderr:
			if !ok {
				stderr = nil
				continue
			}
			s.listeners.emitError(line)
		}
	}

	res := <-h.Done()
	s.complete(h, res, started, finished, timer)
}

func (s *Server) detectPort(h process.Handle, line string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != h || s.port != 0 {
		return 0, false
	}
	m := s.pattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	port, err := strconv.Atoi(m[1])
	if err != nil || port <= 0 || port > 65535 {
		s.logger.Warn("Ignoring start line with invalid port %q", m[1])
		return 0, false
	}
	s.port = port
	s.state = StateRunning
	return port, true
}

func (s *Server) complete(h process.Handle, res process.Result, started, finished *Outcome[int], timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}

	s.mu.Lock()
	if s.handle == h {
		s.state = StateIdle
		s.port = 0
		s.handle = nil
	}
	s.mu.Unlock()

	started.cancel(ErrStartCancelled)

	var exitCode *int
	if res.Err != nil {
		s.logger.Error(res.Err, "KarmaServer error")
		finished.settle(res.ExitCode, fmt.Errorf("karma server failed: %w", res.Err))
	} else {
		code := res.ExitCode
		exitCode = &code
		finished.resolve(code)
		s.logger.Debug("Karma server exited with code %d", code)
	}
	s.listeners.emitStopped(exitCode, res.Err)
}
