package process

import (
	"sort"
	"strconv"
	"strings"
)

// Command describes a child process to launch.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries are added on top of the parent environment.
	Env map[string]string
}

// String renders the command line for logs, quoting arguments that need it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

// Environ merges Env into base. Keys from Env replace matching base entries.
func (c Command) Environ(base []string) []string {
	if len(c.Env) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(c.Env))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := c.Env[key]; overridden {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

func quoteArg(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return strconv.Quote(s)
	}
	return s
}

// Result is the terminal outcome of a child process.
// Err is set when the process could not be run or waited on; an ordinary
// non-zero exit is reported through ExitCode alone.
type Result struct {
	ExitCode int
	Err      error
}

// Handle is a live child process.
//
// Stdout and Stderr deliver lines in emission order and are closed once the
// corresponding stream reaches EOF. Done yields exactly one Result, and only
// after both line channels have been closed, so a consumer that drains the
// streams before reading Done observes every line before termination.
type Handle interface {
	Stdout() <-chan string
	Stderr() <-chan string
	// Cancel requests termination. It does not wait and is safe to call
	// more than once or after the process has exited.
	Cancel()
	Done() <-chan Result
}

// Runner spawns child processes. Spawn never blocks on the child and never
// fails synchronously: launch errors are reported through Handle.Done.
type Runner interface {
	Spawn(cmd Command) Handle
}
