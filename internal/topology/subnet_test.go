package topology

import (
	"testing"

	"github.com/netkit-project/netkit/internal/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateP2PSequential(t *testing.T) {
	a := NewSubnetAllocator()
	subnet, addrA, addrB, err := a.AllocateP2P()
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.0/24", subnet)
	assert.Equal(t, "10.0.1.1", addrA)
	assert.Equal(t, "10.0.1.2", addrB)

	subnet2, _, _, err := a.AllocateP2P()
	require.NoError(t, err)
	assert.Equal(t, "10.0.2.0/24", subnet2)
}

func TestAllocateP2PReleaseRewindsPool(t *testing.T) {
	a := NewSubnetAllocator()
	subnet, _, _, err := a.AllocateP2P()
	require.NoError(t, err)

	a.ReleaseP2P(subnet)

	again, _, _, err := a.AllocateP2P()
	require.NoError(t, err)
	assert.Equal(t, subnet, again, "releasing and reallocating should reuse the same subnet number")
}

func TestAllocateP2PWrapsWithResourceExhausted(t *testing.T) {
	a := NewSubnetAllocator()
	for i := 0; i < maxSubnet; i++ {
		_, _, _, err := a.AllocateP2P()
		require.NoError(t, err)
	}
	_, _, _, err := a.AllocateP2P()
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	assert.Equal(t, apierr.ResourceExhausted, apiErr.Kind)
}

func TestSwitchSubnetSharedAcrossEndpoints(t *testing.T) {
	a := NewSubnetAllocator()
	subnet, err := a.AllocateSwitchSubnet("sw1")
	require.NoError(t, err)

	subnetAgain, err := a.AllocateSwitchSubnet("sw1")
	require.NoError(t, err)
	assert.Equal(t, subnet, subnetAgain)

	h1, err := a.AllocateSwitchHost("sw1")
	require.NoError(t, err)
	h2, err := a.AllocateSwitchHost("sw1")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, "10.0.1.1", h1)
	assert.Equal(t, "10.0.1.2", h2)
}

func TestSwitchSubnetReleaseAllowsReuse(t *testing.T) {
	a := NewSubnetAllocator()
	subnet, err := a.AllocateSwitchSubnet("sw1")
	require.NoError(t, err)
	a.ReleaseSwitchSubnet("sw1")

	other, _, _, err := a.AllocateP2P()
	require.NoError(t, err)
	assert.Equal(t, subnet, other)
}
