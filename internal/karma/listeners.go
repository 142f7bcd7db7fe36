package karma

import "sync"

type listenerEntry[F any] struct {
	id uint64
	fn F
}

// listenerSet is a registration list of callbacks of one kind.
type listenerSet[F any] struct {
	mu      sync.RWMutex
	nextID  uint64
	entries []listenerEntry[F]
}

// add registers fn and returns a func that removes it again.
func (l *listenerSet[F]) add(fn F) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, listenerEntry[F]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, e := range l.entries {
				if e.id == id {
					l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
					return
				}
			}
		})
	}
}

// snapshot copies the callbacks so they run without the lock held.
func (l *listenerSet[F]) snapshot() []F {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fns := make([]F, len(l.entries))
	for i, e := range l.entries {
		fns[i] = e.fn
	}
	return fns
}

type listeners struct {
	started  listenerSet[func(port int)]
	stopped  listenerSet[func(exitCode *int, failure error)]
	output   listenerSet[func(line string)]
	errLines listenerSet[func(line string)]
}

func (l *listeners) emitStarted(port int) {
	for _, fn := range l.started.snapshot() {
		fn(port)
	}
}

func (l *listeners) emitStopped(exitCode *int, failure error) {
	for _, fn := range l.stopped.snapshot() {
		fn(exitCode, failure)
	}
}

func (l *listeners) emitOutput(line string) {
	for _, fn := range l.output.snapshot() {
		fn(line)
	}
}

func (l *listeners) emitError(line string) {
	for _, fn := range l.errLines.snapshot() {
		fn(line)
	}
}
