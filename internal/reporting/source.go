package reporting

// Source is anything that publishes Karma server lifecycle events.
// *karma.Server satisfies it.
type Source interface {
	OnStarted(fn func(port int)) func()
	OnStopped(fn func(exitCode *int, failure error)) func()
	OnOutputReceived(fn func(line string)) func()
	OnErrorReceived(fn func(line string)) func()
}

// subscribeAll registers the four handlers and returns one func that
// removes them all.
func subscribeAll(src Source, started func(int), stopped func(*int, error), output, errLine func(string)) func() {
	unsubs := []func(){
		src.OnStarted(started),
		src.OnStopped(stopped),
		src.OnOutputReceived(output),
		src.OnErrorReceived(errLine),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
