// Package sim provides the regime-scheduling core for long-running,
// time-stepped simulations.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - simulation.go: the single-regime controller and its pull cursor
//   - endgame.go: the schedule-driven controller layered on top of it
//   - params.go: schema-validated parameter sets and sparse change overlays
//
// # Architecture
//
// A domain supplies three collaborators (Model): a StateFactory, an
// AdvanceFunc that mutates the state by exactly one step, and a
// StepSizeFunc that derives the step size from the installed parameters.
// Simulation sequences steps between two fixed parameter installs;
// Endgame owns a Schedule of (activation time, ParameterSet) regimes and
// installs each one as simulated time crosses its boundary. Sampled
// states come back through pull cursors that suspend exactly at each
// emitted sample.
//
// Persistence (checkpoint.go) writes the inner state's opaque bytes, a
// portable encoding of the schedule, and the next-regime index as one
// document, sufficient to resume execution exactly.
//
// Diagnostics are advisory: ReadOnlyDifferences reports read-only fields
// that changed value across an install, and CloseMatchWarnings suggests
// likely typos among dropped configuration keys. Neither blocks anything.
package sim
