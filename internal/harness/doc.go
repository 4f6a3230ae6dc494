// Package harness runs simulation scenarios as executable tests.
//
// A scenario names a model (a CUE directory or inline CUE source), adds
// stimuli, advances the simulation in steps and then checks assertions
// against the recorded trace and the final signal values:
//
//	name: half_adder
//	model: ../models/half_adder
//	steps:
//	  - for: 30s
//	assertions:
//	  - type: final_value
//	    signal: carry
//	    value: true
//
// Every run builds a fresh simulation with a discarded logger, so results
// depend only on the scenario. RunWithGolden compares the trace against a
// golden file under testdata/golden; regenerate with
//
//	go test ./internal/harness -update
package harness
