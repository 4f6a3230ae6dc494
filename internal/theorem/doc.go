// Package theorem implements the rewrite-rule registry used for automatic
// evaluation of signal values.
//
// A Theorem pairs a Pattern with a priority and a way to produce a new value
// from the pattern's capture bindings. Theorems are grouped by Aspect, a tag
// naming the lookup domain (for example "simplify"). LookupBest returns the
// highest-priority matching theorem of an aspect; among equal priorities the
// most recently added theorem wins.
//
// The registry is guarded for concurrent lookup, but it is meant to be
// populated before a run and left alone during it. Matching is read-only and
// may be spread over several goroutines (WithParallelism); the reduction back
// to one result is deterministic.
package theorem
