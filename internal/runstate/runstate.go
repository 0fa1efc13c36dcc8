// Package runstate provides the single shared running flag that the outer
// supervisor (tray icon, service manager, test harness — never this module)
// owns and clears to signal shutdown. Every long-running component here
// takes a *Flag by reference rather than holding process-wide state; see
// spec.md §9 ("Do not introduce process-wide singletons").
package runstate

import "sync/atomic"

// Flag is a concurrency-safe running indicator. The zero value starts
// stopped; call Start before handing a Flag to a component's Run loop.
type Flag struct {
	running atomic.Bool
}

// New returns a Flag that is already running.
func New() *Flag {
	f := &Flag{}
	f.running.Store(true)
	return f
}

// Running reports whether the flag is currently set.
func (f *Flag) Running() bool {
	return f.running.Load()
}

// Start sets the flag.
func (f *Flag) Start() {
	f.running.Store(true)
}

// Stop clears the flag. Components watching it finish their current
// frame/batch, flush pending rows, finalize open chunks, and exit.
func (f *Flag) Stop() {
	f.running.Store(false)
}
