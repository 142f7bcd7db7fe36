// Package karma supervises a Karma test server launched through Node.js.
//
// A Server owns at most one child process at a time. Start spawns
//
//	node <libDirectory>/Start.js --karma <config file name>
//
// in the config file's directory, with NODE_PATH set to every node_modules
// directory above it, and watches standard output for the start line:
//
//	[VS Server]: Started - port: 51234
//
// # Lifecycle
//
// The server moves Idle -> Starting on Start, Starting -> Running on the
// first start line, and back to Idle when the process ends for any
// reason. Start fails with *InvalidOperationError unless the server is
// Idle, and with *ConfigurationError when the working directory or start
// script is missing.
//
// Start returns an Outcome that resolves with the port. It is cancelled
// with ErrStartTimeout if the timeout passes first (the process keeps
// running) and with ErrStartCancelled if the process exits first.
// Finished returns a second Outcome for the exit code, which always
// settles once a run has begun.
//
// # Events
//
// Listeners registered with OnStarted, OnOutputReceived, OnErrorReceived
// and OnStopped are called from the run's supervising goroutine. Within
// one run they fire in order: at most one started, any number of output
// and error lines, then exactly one stopped. Listeners must not block.
package karma
