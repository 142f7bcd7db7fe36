package reporting

import (
	"fmt"
	"sync"
	"time"
)

// Stream identifies where a line came from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
	// StreamLifecycle marks lines synthesised from started/stopped events.
	StreamLifecycle Stream = "lifecycle"
)

// OutputLine is one captured line.
type OutputLine struct {
	Timestamp time.Time `json:"timestamp"`
	Stream    Stream    `json:"stream"`
	Text      string    `json:"text"`
}

// LineBuffer keeps the most recent lines, evicting the oldest when full.
type LineBuffer struct {
	mu      sync.RWMutex
	lines   []OutputLine
	start   int
	size    int
	evicted int64
}

// NewLineBuffer creates a buffer holding up to capacity lines.
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &LineBuffer{lines: make([]OutputLine, capacity)}
}

// Add appends a line.
func (b *LineBuffer) Add(line OutputLine) {
	if line.Timestamp.IsZero() {
		line.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.start + b.size) % len(b.lines)
	b.lines[idx] = line
	if b.size < len(b.lines) {
		b.size++
		return
	}
	b.start = (b.start + 1) % len(b.lines)
	b.evicted++
}

// Last returns up to n of the newest lines, oldest first. n <= 0 returns
// everything held.
func (b *LineBuffer) Last(n int) []OutputLine {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > b.size {
		n = b.size
	}
	out := make([]OutputLine, n)
	first := b.start + b.size - n
	for i := 0; i < n; i++ {
		out[i] = b.lines[(first+i)%len(b.lines)]
	}
	return out
}

// Len returns the number of lines held.
func (b *LineBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Evicted returns how many lines were dropped to make room.
func (b *LineBuffer) Evicted() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.evicted
}

// Attach records every event of src into the buffer until the returned
// func is called.
func (b *LineBuffer) Attach(src Source) func() {
	return subscribeAll(src,
		func(port int) {
			b.Add(OutputLine{Stream: StreamLifecycle, Text: fmt.Sprintf("Karma server started on port %d", port)})
		},
		func(exitCode *int, failure error) {
			b.Add(OutputLine{Stream: StreamLifecycle, Text: StoppedMessage(exitCode, failure)})
		},
		func(line string) { b.Add(OutputLine{Stream: StreamStdout, Text: line}) },
		func(line string) { b.Add(OutputLine{Stream: StreamStderr, Text: line}) },
	)
}

// StoppedMessage describes a stopped event for humans.
func StoppedMessage(exitCode *int, failure error) string {
	switch {
	case failure != nil:
		return fmt.Sprintf("Karma server failed: %v", failure)
	case exitCode != nil:
		return fmt.Sprintf("Karma server stopped with exit code %d", *exitCode)
	default:
		return "Karma server stopped"
	}
}
