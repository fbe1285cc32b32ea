// Package analysis derives statistics, trends, leak suspicion, bottlenecks,
// recommendations and predictions from windows of memory snapshots.
//
// Every function is a pure projection over the slice it is given: nothing
// blocks, performs I/O or consults the wall clock, and insufficient data
// yields a defined zero-valued result rather than an error. Snapshots recorded
// after a failed capture (all counters zero) are ignored.
package analysis
