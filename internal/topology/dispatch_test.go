package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideLinkRolesPlainHosts(t *testing.T) {
	switched, bridge, endpoint, err := decideLinkRoles(Host, Host, "h1", "h2")
	require.NoError(t, err)
	assert.False(t, switched)
	assert.Empty(t, bridge)
	assert.Empty(t, endpoint)
}

func TestDecideLinkRolesSwitchOnLeft(t *testing.T) {
	switched, bridge, endpoint, err := decideLinkRoles(Switch, Host, "sw1", "h1")
	require.NoError(t, err)
	assert.True(t, switched)
	assert.Equal(t, "sw1", bridge)
	assert.Equal(t, "h1", endpoint)
}

func TestDecideLinkRolesSwitchOnRight(t *testing.T) {
	switched, bridge, endpoint, err := decideLinkRoles(Host, Switch, "h1", "sw1")
	require.NoError(t, err)
	assert.True(t, switched)
	assert.Equal(t, "sw1", bridge)
	assert.Equal(t, "h1", endpoint)
}

func TestDecideLinkRolesRejectsSwitchToSwitch(t *testing.T) {
	_, _, _, err := decideLinkRoles(Switch, Switch, "sw1", "sw2")
	require.Error(t, err)
}
