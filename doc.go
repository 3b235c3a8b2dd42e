// Package countbench measures counting sort under three execution strategies:
// sequential, shared-memory parallel, and offloaded to a compute device.
//
// The benchmark sweeps a strictly increasing series of input sizes, runs each
// strategy a fixed number of times per size against an identical,
// deterministically generated input, and records the mean elapsed time per
// size. Results are index-aligned across strategies so they can be compared
// point for point.
//
// Countbench provides the following subpackages:
//
// countbench/countsort provides the three-phase counting sort (count,
// accumulate, scatter) in sequential and parallel form.
//
// countbench/parallel provides fork-join functions for executing thunks and
// range functions in parallel; countbench/sequential provides sequential
// implementations of the same functions, and countbench/speculative provides
// early-terminating variants.
//
// countbench/accel provides the contract of the accelerator execution service
// and an emulated device that implements it.
//
// countbench/strategy provides the strategy variants that run one sort trial
// each.
//
// countbench/bench provides the benchmark session: the size sweep, the input
// generator, the timing loop, and progress reporting.
//
// countbench/export writes collected results as a delimited text table.
//
// countbench/config loads settings from files, the environment, and flags,
// and cmd/countbench is the command-line front end.
package countbench
