package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/value"
)

func TestCompareTraces_Equal(t *testing.T) {
	a := clockTrace(3)
	b := clockTrace(3)
	for i := range b {
		b[i].Seq += 100 // sequence numbers are not compared
	}
	assert.Nil(t, CompareTraces(a, b))
	assert.Nil(t, CompareTraces(nil, nil))
}

func TestCompareTraces_Differences(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(got []engine.Assignment) []engine.Assignment
		ordinal int
		want    string
	}{
		{
			name: "value",
			mutate: func(got []engine.Assignment) []engine.Assignment {
				got[3].Value = value.Integer(99)
				return got
			},
			ordinal: 3,
			want:    "count = 99, want 2",
		},
		{
			name: "delta",
			mutate: func(got []engine.Assignment) []engine.Assignment {
				got[1].Delta = 2
				return got
			},
			ordinal: 1,
			want:    "time 1s+2, want 1s+1",
		},
		{
			name: "signal",
			mutate: func(got []engine.Assignment) []engine.Assignment {
				got[0].Signal = "clock"
				return got
			},
			ordinal: 0,
			want:    `signal "clock", want "clk"`,
		},
		{
			name:    "missing",
			mutate:  func(got []engine.Assignment) []engine.Assignment { return got[:4] },
			ordinal: 4,
			want:    "missing assignment clk = true at 3s+0",
		},
		{
			name: "extra",
			mutate: func(got []engine.Assignment) []engine.Assignment {
				return append(got, engine.Assignment{Signal: "x", Value: value.Integer(1)})
			},
			ordinal: 6,
			want:    "extra assignment x = 1 at 0s+0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CompareTraces(clockTrace(3), tt.mutate(clockTrace(3)))
			require.NotNil(t, d)
			assert.Equal(t, tt.ordinal, d.Ordinal)
			assert.Equal(t, tt.want, d.Describe)
		})
	}
}
