package metrics

import "time"

// Timer measures a single pipeline stage's duration and reports it to
// ComponentLatency when Stop is called.
type Timer struct {
	component string
	start     time.Time
}

// StartTimer begins timing component.
func StartTimer(component string) Timer {
	return Timer{component: component, start: time.Now()}
}

// Stop records the elapsed time under outcome and returns it.
func (t Timer) Stop(outcome string) time.Duration {
	elapsed := time.Since(t.start)
	ObserveComponentLatency(t.component, outcome, elapsed.Seconds())
	return elapsed
}
