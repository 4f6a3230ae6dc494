package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/value"
)

func TestNetwork_SharedNamespace(t *testing.T) {
	n := NewNetwork(quietScheduler())

	_, err := n.AddSignal("clk", value.Bool(false))
	require.NoError(t, err)
	_, err = n.AddBus("data")
	require.NoError(t, err)
	_, err = n.AddPort("d0", Input, nil)
	require.NoError(t, err)

	for _, name := range []string{"clk", "data", "d0"} {
		_, err := n.AddBus(name)
		assert.True(t, IsDuplicateName(err), name)
		_, err = n.AddPort(name, Input, nil)
		assert.True(t, IsDuplicateName(err), name)
		_, err = n.AddSignal(name, nil)
		assert.True(t, IsDuplicateName(err), name)
	}
}

func TestNetwork_Lookup(t *testing.T) {
	n := NewNetwork(quietScheduler())
	sig, err := n.AddSignal("clk", nil)
	require.NoError(t, err)
	bus, err := n.AddBus("data")
	require.NoError(t, err)
	port, err := n.AddPort("d0", Output, nil)
	require.NoError(t, err)

	got, ok := n.Lookup("clk")
	require.True(t, ok)
	assert.Same(t, sig, got.(*engine.Signal))

	got, ok = n.Lookup("data")
	require.True(t, ok)
	assert.Same(t, bus, got.(*Bus))

	got, ok = n.Lookup("d0")
	require.True(t, ok)
	assert.Same(t, port, got.(*Port))

	_, ok = n.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []*Bus{bus}, n.Buses())
	assert.Equal(t, []*Port{port}, n.Ports())
}

func TestNetwork_RemoveSignal(t *testing.T) {
	n := NewNetwork(quietScheduler())
	sig, err := n.AddSignal("d0", nil)
	require.NoError(t, err)
	bus, err := n.AddBus("data")
	require.NoError(t, err)
	port, err := n.AddPort("d0.port", Input, nil)
	require.NoError(t, err)
	require.NoError(t, port.Connect(sig))
	require.NoError(t, bus.Add(port))

	require.NoError(t, n.RemoveSignal(sig))

	_, ok := n.Lookup("d0")
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Len())
}
