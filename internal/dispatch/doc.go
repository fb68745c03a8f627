// Package dispatch stages uploaded images, registers them in the job store,
// and launches the out-of-process enhancement worker. The worker signals
// completion by writing an artifact into the results directory; dispatch
// never waits on it.
package dispatch
