package governable

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"rcavault/core/events"
	"rcavault/core/state"
	nativecommon "rcavault/native/common"
)

func TestTwoStepOwnership(t *testing.T) {
	manager, err := state.NewMemoryManager()
	require.NoError(t, err)
	contract := common.HexToAddress("0xc0")
	gov := common.HexToAddress("0x01")
	next := common.HexToAddress("0x02")
	stranger := common.HexToAddress("0x03")

	g := New(manager, contract)
	require.NoError(t, g.Init(gov))
	require.ErrorIs(t, g.Init(next), nativecommon.ErrState)
	require.NoError(t, g.RequireGovernor(gov))
	require.ErrorIs(t, g.RequireGovernor(stranger), nativecommon.ErrAuthorization)

	_, err = g.TransferOwnership(stranger, next)
	require.ErrorIs(t, err, nativecommon.ErrAuthorization)
	evt, err := g.TransferOwnership(gov, next)
	require.NoError(t, err)
	require.Equal(t, events.TypePendingOwnershipTransfer, evt.EventType())

	pending, err := g.PendingGovernor()
	require.NoError(t, err)
	require.Equal(t, next, pending)
	current, err := g.Governor()
	require.NoError(t, err)
	require.Equal(t, gov, current)

	_, err = g.ReceiveOwnership(stranger)
	require.ErrorIs(t, err, nativecommon.ErrAuthorization)
	evt, err = g.ReceiveOwnership(next)
	require.NoError(t, err)
	require.Equal(t, events.TypeOwnershipTransferred, evt.EventType())
	current, err = g.Governor()
	require.NoError(t, err)
	require.Equal(t, next, current)
	require.ErrorIs(t, g.RequireGovernor(gov), nativecommon.ErrAuthorization)
}
