package wm

// Progress is an advisory progress report emitted during a backup or
// restore run. Callbacks are invoked synchronously from within the run and
// carry no backpressure; a run's terminal outcome is reported only by its
// return values, never through progress.
type Progress struct {
	Percent int
	Message string
}

// ProgressFunc receives progress reports. A nil ProgressFunc is valid.
type ProgressFunc func(Progress)

// report invokes fn if it is non-nil.
func (fn ProgressFunc) report(percent int, message string) {
	if fn != nil {
		fn(Progress{Percent: percent, Message: message})
	}
}
