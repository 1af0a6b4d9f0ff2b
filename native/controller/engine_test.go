package controller

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"rcavault/core/events"
	"rcavault/core/state"
	"rcavault/core/types"
	"rcavault/native/capacity"
	nativecommon "rcavault/native/common"
	"rcavault/native/merkle"
	"rcavault/native/params"
)

var (
	governor    = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	guardian    = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	priceOracle = common.HexToAddress("0x0000000000000000000000000000000000000a03")
	treasury    = common.HexToAddress("0x0000000000000000000000000000000000000a04")
	stranger    = common.HexToAddress("0x0000000000000000000000000000000000000bad")
	shieldAddr  = common.HexToAddress("0x0000000000000000000000000000000000005e01")
	uToken      = common.HexToAddress("0x0000000000000000000000000000000000001001")
	user        = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
)

type fixture struct {
	engine   *Engine
	manager  *state.Manager
	recorder *events.Recorder
	capKey   *ecdsa.PrivateKey
	now      int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	manager, err := state.NewMemoryManager()
	require.NoError(t, err)
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	f := &fixture{manager: manager, recorder: &events.Recorder{}, capKey: key, now: 1_000}
	f.engine = NewEngine(common.HexToAddress("0xc0"), 1337)
	f.engine.SetState(manager)
	f.engine.SetEmitter(f.recorder)
	f.engine.SetNowFunc(func() int64 { return f.now })
	require.NoError(t, f.engine.Initialize(Genesis{
		Governor:    governor,
		Guardian:    guardian,
		PriceOracle: priceOracle,
		CapOracle:   ethcrypto.PubkeyToAddress(key.PublicKey),
		Global:      params.Global{Apr: 0, Discount: 200, WithdrawalDelay: 86_400, Treasury: treasury},
	}))
	return f
}

func TestInitializeOnce(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Initialize(Genesis{Governor: stranger, Global: params.Global{Treasury: treasury}})
	require.ErrorIs(t, err, nativecommon.ErrState)

	global, updates, err := f.engine.Params()
	require.NoError(t, err)
	require.Equal(t, uint64(200), global.Discount)
	require.Equal(t, uint64(1_000), updates.Latest())
	gov, err := f.engine.Governor()
	require.NoError(t, err)
	require.Equal(t, governor, gov)
}

func TestParameterSettersEnforceRoleAndBounds(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.engine.SetApr(stranger, 100), nativecommon.ErrAuthorization)

	root := f.manager.Root()
	require.ErrorIs(t, f.engine.SetApr(governor, params.MaxApr+1), nativecommon.ErrState)
	require.ErrorIs(t, f.engine.SetDiscount(governor, params.MaxDiscount+1), nativecommon.ErrState)
	require.ErrorIs(t, f.engine.SetWithdrawalDelay(governor, params.MaxWithdrawalDelay+1), nativecommon.ErrState)
	require.ErrorIs(t, f.engine.SetTreasury(governor, common.Address{}), nativecommon.ErrState)
	require.Equal(t, root, f.manager.Root())

	f.now = 2_000
	require.NoError(t, f.engine.SetApr(governor, params.MaxApr))
	require.NoError(t, f.engine.SetDiscount(governor, params.MaxDiscount))
	f.now = 3_000
	require.NoError(t, f.engine.SetWithdrawalDelay(governor, params.MaxWithdrawalDelay))

	global, updates, err := f.engine.Params()
	require.NoError(t, err)
	require.Equal(t, params.MaxApr, global.Apr)
	require.Equal(t, uint64(2_000), updates.Apr)
	require.Equal(t, uint64(3_000), updates.WithdrawalDelay)
	require.Equal(t, uint64(1_000), updates.Treasury)
	require.Len(t, f.recorder.OfType(events.TypeParamUpdated), 3)
}

func TestRootsByRole(t *testing.T) {
	f := newFixture(t)
	priceRoot := common.HexToHash("0x01")
	require.ErrorIs(t, f.engine.SetPrices(governor, priceRoot), nativecommon.ErrAuthorization)
	require.NoError(t, f.engine.SetPrices(priceOracle, priceRoot))

	liqRoot := common.HexToHash("0x02")
	resRoot := common.HexToHash("0x03")
	require.ErrorIs(t, f.engine.SetLiqTotal(guardian, liqRoot, resRoot), nativecommon.ErrAuthorization)
	f.now = 5_000
	require.NoError(t, f.engine.SetLiqTotal(governor, liqRoot, resRoot))

	newRes := common.HexToHash("0x04")
	require.ErrorIs(t, f.engine.SetPercentReserved(governor, newRes), nativecommon.ErrAuthorization)
	f.now = 6_000
	require.NoError(t, f.engine.SetPercentReserved(guardian, newRes))

	roots, err := f.engine.Roots()
	require.NoError(t, err)
	require.Equal(t, Roots{Price: priceRoot, Liq: liqRoot, Reserved: newRes}, roots)
	_, updates, err := f.engine.Params()
	require.NoError(t, err)
	require.Equal(t, uint64(5_000), updates.Liq)
	require.Equal(t, uint64(6_000), updates.Reserved)
	require.Len(t, f.recorder.OfType(events.TypeRootUpdated), 4)
}

func TestVerifyAgainstCommittedRoots(t *testing.T) {
	f := newFixture(t)
	other := common.HexToAddress("0x5e02")
	liqTree, err := merkle.NewTree([]common.Hash{
		merkle.LiquidationLeaf(shieldAddr, big.NewInt(10)),
		merkle.LiquidationLeaf(other, big.NewInt(0)),
	})
	require.NoError(t, err)
	resTree, err := merkle.NewTree([]common.Hash{
		merkle.ReservedLeaf(shieldAddr, 500),
		merkle.ReservedLeaf(other, 0),
	})
	require.NoError(t, err)
	priceTree, err := merkle.NewTree([]common.Hash{merkle.PriceLeaf(uToken, big.NewInt(1e15))})
	require.NoError(t, err)

	// Nothing verifies before roots are committed.
	require.ErrorIs(t, f.engine.VerifyPrice(uToken, big.NewInt(1e15), nil), nativecommon.ErrProof)

	require.NoError(t, f.engine.SetLiqTotal(governor, liqTree.Root(), resTree.Root()))
	require.NoError(t, f.engine.SetPrices(priceOracle, priceTree.Root()))

	liqProof, err := liqTree.Proof(0)
	require.NoError(t, err)
	resProof, err := resTree.Proof(0)
	require.NoError(t, err)

	require.NoError(t, f.engine.VerifyLiq(shieldAddr, big.NewInt(10), liqProof))
	require.ErrorIs(t, f.engine.VerifyLiq(shieldAddr, big.NewInt(11), liqProof), nativecommon.ErrProof)
	require.ErrorIs(t, f.engine.VerifyLiq(other, big.NewInt(10), liqProof), nativecommon.ErrProof)
	require.NoError(t, f.engine.VerifyReserved(shieldAddr, 500, resProof))
	require.ErrorIs(t, f.engine.VerifyReserved(shieldAddr, 501, resProof), nativecommon.ErrProof)
	require.NoError(t, f.engine.VerifyPrice(uToken, big.NewInt(1e15), nil))

	mutated := append([]common.Hash(nil), liqProof...)
	mutated[0][31] ^= 0x01
	require.ErrorIs(t, f.engine.VerifyLiq(shieldAddr, big.NewInt(10), mutated), nativecommon.ErrProof)
}

func TestShieldRegistry(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.engine.InitializeShield(stranger, shieldAddr, uToken, "Shield", "rcaX"), nativecommon.ErrAuthorization)
	require.NoError(t, f.engine.InitializeShield(governor, shieldAddr, uToken, "Shield", "rcaX"))
	require.ErrorIs(t, f.engine.InitializeShield(governor, shieldAddr, uToken, "Shield", "rcaX"), nativecommon.ErrState)

	active, err := f.engine.ActiveShields()
	require.NoError(t, err)
	require.Equal(t, []common.Address{shieldAddr}, active)

	require.NoError(t, f.engine.CancelShield(governor, shieldAddr))
	require.ErrorIs(t, f.engine.CancelShield(governor, shieldAddr), nativecommon.ErrState)
	active, err = f.engine.ActiveShields()
	require.NoError(t, err)
	require.Empty(t, active)

	ok, err := f.engine.IsActive(shieldAddr)
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, f.recorder.OfType(events.TypeShieldCreated), 1)
	require.Len(t, f.recorder.OfType(events.TypeShieldCancelled), 1)
}

func TestRouterWhitelist(t *testing.T) {
	f := newFixture(t)
	router := common.HexToAddress("0x7007")
	require.ErrorIs(t, f.engine.SetRouterVerified(governor, router, true), nativecommon.ErrAuthorization)
	require.NoError(t, f.engine.SetRouterVerified(guardian, router, true))
	ok, err := f.engine.IsRouterVerified(router)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, f.engine.SetRouterVerified(guardian, router, false))
	ok, err = f.engine.IsRouterVerified(router)
	require.NoError(t, err)
	require.False(t, ok)
}

func singleLeafLiq(t *testing.T, f *fixture, cumLiq *big.Int) {
	t.Helper()
	liq := merkle.LiquidationLeaf(shieldAddr, cumLiq)
	res := merkle.ReservedLeaf(shieldAddr, 0)
	require.NoError(t, f.engine.SetLiqTotal(governor, liq, res))
}

func TestMintHookConsumesNonce(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.InitializeShield(governor, shieldAddr, uToken, "Shield", "rcaX"))
	singleLeafLiq(t, f, big.NewInt(0))

	amount := big.NewInt(100)
	claim := capacity.Claim{User: user, Shield: shieldAddr, Amount: amount, Nonce: 0, Expiry: 2_000}
	sig, err := capacity.Sign(f.capKey, f.engine.CapacityDomain(), claim)
	require.NoError(t, err)

	err = f.engine.Mint(stranger, user, amount, 2_000, sig, big.NewInt(0), nil)
	require.ErrorIs(t, err, nativecommon.ErrAuthorization)

	err = f.engine.Mint(shieldAddr, user, amount, 2_000, sig, big.NewInt(1), nil)
	require.ErrorIs(t, err, nativecommon.ErrProof)
	nonce, err := f.engine.Nonce(user)
	require.NoError(t, err)
	require.Zero(t, nonce)

	require.NoError(t, f.engine.Mint(shieldAddr, user, amount, 2_000, sig, big.NewInt(0), nil))
	nonce, err = f.engine.Nonce(user)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	require.ErrorIs(t, f.engine.Mint(shieldAddr, user, amount, 2_000, sig, big.NewInt(0), nil), nativecommon.ErrSignature)
}

func TestPauseBlocksMintAndRedeemRequest(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.InitializeShield(governor, shieldAddr, uToken, "Shield", "rcaX"))
	singleLeafLiq(t, f, big.NewInt(0))

	require.ErrorIs(t, f.engine.Pause(governor), nativecommon.ErrAuthorization)
	require.NoError(t, f.engine.Pause(guardian))
	require.True(t, f.engine.IsPaused(ModuleName))

	claim := capacity.Claim{User: user, Shield: shieldAddr, Amount: big.NewInt(1), Expiry: 2_000}
	sig, err := capacity.Sign(f.capKey, f.engine.CapacityDomain(), claim)
	require.NoError(t, err)
	err = f.engine.Mint(shieldAddr, user, big.NewInt(1), 2_000, sig, big.NewInt(0), nil)
	require.ErrorIs(t, err, nativecommon.ErrState)
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	require.ErrorIs(t, f.engine.RedeemRequest(shieldAddr, big.NewInt(0), nil, 0, nil), nativecommon.ErrState)
	require.NoError(t, f.engine.RedeemFinalize(shieldAddr, common.Address{}, big.NewInt(0), nil, 0, nil))

	require.ErrorIs(t, f.engine.Unpause(guardian), nativecommon.ErrAuthorization)
	require.NoError(t, f.engine.Unpause(governor))
	require.NoError(t, f.engine.RedeemRequest(shieldAddr, big.NewInt(0), nil, 0, nil))
}

func TestRedeemFinalizeRejectsUnverifiedRouter(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.InitializeShield(governor, shieldAddr, uToken, "Shield", "rcaX"))
	singleLeafLiq(t, f, big.NewInt(0))
	router := common.HexToAddress("0x7007")

	require.ErrorIs(t, f.engine.RedeemFinalize(shieldAddr, router, big.NewInt(0), nil, 0, nil), nativecommon.ErrRouter)
	require.NoError(t, f.engine.SetRouterVerified(guardian, router, true))
	require.NoError(t, f.engine.RedeemFinalize(shieldAddr, router, big.NewInt(0), nil, 0, nil))
}

type requestView map[common.Address]*types.WithdrawRequest

func (v requestView) WithdrawRequest(u common.Address) (*types.WithdrawRequest, error) {
	return v[u], nil
}

func TestBatchViews(t *testing.T) {
	f := newFixture(t)
	other := common.HexToAddress("0x5e02")
	f.engine.AttachShield(shieldAddr, requestView{user: {RcaAmount: big.NewInt(5), UAmount: big.NewInt(4), EndTime: 99}})

	reqs, err := f.engine.RequestOfs(user, []common.Address{shieldAddr, other})
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	require.Equal(t, int64(4), reqs[0].UAmount.Int64())
	require.Equal(t, uint64(99), reqs[0].EndTime)
	require.Zero(t, reqs[1].UAmount.Sign())

	bals, err := f.engine.BalanceOfs(user, []common.Address{shieldAddr, other})
	require.NoError(t, err)
	require.Zero(t, bals[0].Sign())
	require.Zero(t, bals[1].Sign())
}

func TestGovernorHandoff(t *testing.T) {
	f := newFixture(t)
	next := common.HexToAddress("0xa0a0")
	require.NoError(t, f.engine.TransferOwnership(governor, next))
	require.ErrorIs(t, f.engine.ReceiveOwnership(stranger), nativecommon.ErrAuthorization)
	require.NoError(t, f.engine.ReceiveOwnership(next))
	require.ErrorIs(t, f.engine.SetApr(governor, 1), nativecommon.ErrAuthorization)
	require.NoError(t, f.engine.SetApr(next, 1))
	require.NoError(t, f.engine.SetCapOracle(next, stranger))
	roles, err := f.engine.Roles()
	require.NoError(t, err)
	require.Equal(t, stranger, roles.CapOracle)
}
