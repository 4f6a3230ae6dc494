// Package testutil provides deterministic fixtures shared by tests: a
// discarding logger, a scheduler with a trace recorder attached, and run
// id generators that never repeat.
package testutil
