package reporting

import "sync"

// fakeSource lets tests fire server events by hand.
type fakeSource struct {
	mu      sync.Mutex
	started []func(int)
	stopped []func(*int, error)
	output  []func(string)
	errs    []func(string)
	removed int
}

func (f *fakeSource) remove() func() {
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.removed++
	}
}

func (f *fakeSource) OnStarted(fn func(port int)) func() {
	f.started = append(f.started, fn)
	return f.remove()
}

func (f *fakeSource) OnStopped(fn func(exitCode *int, failure error)) func() {
	f.stopped = append(f.stopped, fn)
	return f.remove()
}

func (f *fakeSource) OnOutputReceived(fn func(line string)) func() {
	f.output = append(f.output, fn)
	return f.remove()
}

func (f *fakeSource) OnErrorReceived(fn func(line string)) func() {
	f.errs = append(f.errs, fn)
	return f.remove()
}

func (f *fakeSource) fireStarted(port int) {
	for _, fn := range f.started {
		fn(port)
	}
}

func (f *fakeSource) fireStopped(code *int, err error) {
	for _, fn := range f.stopped {
		fn(code, err)
	}
}

func (f *fakeSource) fireOutput(line string) {
	for _, fn := range f.output {
		fn(line)
	}
}

func (f *fakeSource) fireError(line string) {
	for _, fn := range f.errs {
		fn(line)
	}
}
