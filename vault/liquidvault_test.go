package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hardcorefi/hardcore-client/types"
)

// mockRouter is a deterministic AMM: reserves move by exactly the supplied
// amounts and the liquidity minted equals the eth leg.
type mockRouter struct {
	pair         common.Address
	tokenReserve sdkmath.Int
	ethReserve   sdkmath.Int
	lp           *bank
	failAdd      bool
}

func (m *mockRouter) Pair() common.Address { return m.pair }

func (m *mockRouter) GetReserves(_ context.Context) (sdkmath.Int, sdkmath.Int, error) {
	return m.tokenReserve, m.ethReserve, nil
}

func (m *mockRouter) AddLiquidityETH(_ context.Context, tokenAmount, ethAmount sdkmath.Int, to common.Address) (sdkmath.Int, sdkmath.Int, sdkmath.Int, error) {
	if m.failAdd {
		return sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, errors.New("router down")
	}
	m.tokenReserve = m.tokenReserve.Add(tokenAmount)
	m.ethReserve = m.ethReserve.Add(ethAmount)
	m.lp.Mint(to, ethAmount)
	return tokenAmount, ethAmount, ethAmount, nil
}

type stubOracle struct {
	factor int64
}

func (o *stubOracle) Update(_ context.Context) error { return nil }

func (o *stubOracle) Consult(ethAmountIn sdkmath.Int) (sdkmath.Int, error) {
	return ethAmountIn.MulRaw(o.factor), nil
}

type testEnv struct {
	bank     *bank
	lp       *bank
	router   *mockRouter
	token    *HardCoreToken
	approver *FeeApprover
	vault    *LiquidVault
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	b := newBank()
	lp := newBank()
	router := &mockRouter{
		pair:         pairAddr,
		tokenReserve: sdkmath.NewInt(1_000_000_000_000),
		ethReserve:   sdkmath.NewInt(1_000_000_000_000),
		lp:           lp,
	}

	token := NewHardCoreToken(tokenAddr, ownerAddr, sdkmath.NewInt(10_000_000_000_000), logger)
	approver := NewFeeApprover(ownerAddr, 10, logger)
	vault := NewLiquidVault(vaultAddr, ownerAddr, lp, router, b, nil, nil, logger)

	token.InitialSetup(approver, distAddr, vault)
	require.NoError(t, approver.Initialize(ownerAddr, pairAddr, vaultAddr, distAddr))
	require.NoError(t, approver.UnPause(ownerAddr))

	require.NoError(t, vault.Seed(ownerAddr, 2, token, distAddr, charityAddr, 10, 10, nil))
	require.NoError(t, token.Transfer(ownerAddr, vaultAddr, sdkmath.NewInt(2_000_000_000_000)))

	return &testEnv{
		bank:     b,
		lp:       lp,
		router:   router,
		token:    token,
		approver: approver,
		vault:    vault,
	}
}

func TestLiquidVault_purchaseLP(t *testing.T) {
	env := newTestEnv(t)
	env.bank.Mint(aliceAddr, sdkmath.NewInt(100_000_000_000))

	claim, err := env.vault.PurchaseLP(aliceAddr, sdkmath.NewInt(100_000_000_000))
	require.NoError(t, err)

	// 10% off the top, the rest paired 1:1 with vault tokens
	assert.Equal(t, int64(90_000_000_000), claim.Amount.Int64())
	assert.Equal(t, aliceAddr, claim.Holder)
	assert.Equal(t, int64(10_000_000_000), env.bank.BalanceOf(charityAddr).Int64())
	assert.Equal(t, int64(0), env.bank.BalanceOf(aliceAddr).Int64())

	// both legs landed on the pair
	assert.Equal(t, int64(90_000_000_000), env.bank.BalanceOf(pairAddr).Int64())
	assert.Equal(t, int64(90_000_000_000), env.token.BalanceOf(pairAddr).Int64())

	// minted LP is held by the vault until claimed
	assert.Equal(t, int64(90_000_000_000), env.lp.BalanceOf(vaultAddr).Int64())
	assert.Equal(t, 1, env.vault.LockedLPLength(aliceAddr))
}

func TestLiquidVault_purchaseErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.vault.PurchaseLP(aliceAddr, sdkmath.ZeroInt())
	require.ErrorIs(t, err, types.ErrZeroValue)

	// buyer has no eth
	_, err = env.vault.PurchaseLP(aliceAddr, sdkmath.NewInt(1000))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	// vault token holdings too small for the pairing
	env.bank.Mint(bobAddr, sdkmath.NewInt(9_000_000_000_000))
	_, err = env.vault.PurchaseLP(bobAddr, sdkmath.NewInt(9_000_000_000_000))
	require.ErrorIs(t, err, types.ErrInsufficientTokenBalance)

	unseeded := NewLiquidVault(vaultAddr, ownerAddr, env.lp, env.router, env.bank, nil, nil, zap.NewNop())
	_, err = unseeded.PurchaseLP(aliceAddr, sdkmath.NewInt(1000))
	require.ErrorIs(t, err, types.ErrNotSeeded)
}

func TestLiquidVault_purchaseFailedLeavesNoClaim(t *testing.T) {
	env := newTestEnv(t)
	env.bank.Mint(aliceAddr, sdkmath.NewInt(100_000))
	env.router.failAdd = true

	_, err := env.vault.PurchaseLP(aliceAddr, sdkmath.NewInt(100_000))
	require.Error(t, err)

	// every settled leg was unwound, the buyer keeps the full amount
	assert.Equal(t, int64(100_000), env.bank.BalanceOf(aliceAddr).Int64())
	assert.Equal(t, int64(0), env.bank.BalanceOf(charityAddr).Int64())
	assert.Equal(t, int64(0), env.bank.BalanceOf(pairAddr).Int64())
	assert.Equal(t, int64(0), env.token.BalanceOf(pairAddr).Int64())
	assert.Equal(t, int64(2_000_000_000_000), env.token.BalanceOf(vaultAddr).Int64())
	assert.Equal(t, 0, env.vault.LockedLPLength(aliceAddr))
}

// flakyLedger fails the Nth Transfer and delegates the rest.
type flakyLedger struct {
	*bank
	calls  int
	failAt int
}

func (f *flakyLedger) Transfer(from, to common.Address, amount sdkmath.Int) error {
	f.calls++
	if f.calls == f.failAt {
		return errors.New("ledger down")
	}
	return f.bank.Transfer(from, to, amount)
}

func TestLiquidVault_claimFeeLegFailureRestoresPayout(t *testing.T) {
	env := newTestEnv(t)
	env.lp.Mint(vaultAddr, sdkmath.NewInt(1000))
	_, err := env.vault.InsertUnclaimedBatchFor(ownerAddr, aliceAddr, sdkmath.NewInt(1000), time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)

	// the payout leg settles, the exit fee leg fails
	env.vault.lpToken = &flakyLedger{bank: env.lp, failAt: 2}

	_, _, err = env.vault.ClaimLP(aliceAddr)
	require.Error(t, err)

	assert.Equal(t, int64(0), env.lp.BalanceOf(aliceAddr).Int64())
	assert.Equal(t, int64(1000), env.lp.BalanceOf(vaultAddr).Int64())

	// the batch is still claimable in full
	require.Equal(t, 1, env.vault.LockedLPLength(aliceAddr))
	front, err := env.vault.GetLockedLP(aliceAddr, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), front.Amount.Int64())
}

func TestLiquidVault_claimLP(t *testing.T) {
	env := newTestEnv(t)
	env.bank.Mint(aliceAddr, sdkmath.NewInt(100_000_000_000))

	claim, err := env.vault.PurchaseLP(aliceAddr, sdkmath.NewInt(100_000_000_000))
	require.NoError(t, err)

	_, _, err = env.vault.ClaimLP(aliceAddr)
	require.ErrorIs(t, err, types.ErrStillLocked)
	assert.False(t, env.vault.CanClaim(aliceAddr))

	env.vault.now = func() time.Time { return time.Unix(claim.UnlockTimestamp, 0) }
	assert.True(t, env.vault.CanClaim(aliceAddr))

	claimed, exitFee, err := env.vault.ClaimLP(aliceAddr)
	require.NoError(t, err)

	assert.Equal(t, int64(90_000_000_000), claimed.Amount.Int64())
	assert.Equal(t, int64(9_000_000_000), exitFee.Int64())
	assert.Equal(t, int64(81_000_000_000), env.lp.BalanceOf(aliceAddr).Int64())
	assert.Equal(t, int64(9_000_000_000), env.lp.BalanceOf(charityAddr).Int64())
	assert.Equal(t, 0, env.vault.LockedLPLength(aliceAddr))

	_, _, err = env.vault.ClaimLP(aliceAddr)
	require.ErrorIs(t, err, types.ErrNoLockedLP)
}

func TestLiquidVault_claimSurfacesNewestAfterRemoval(t *testing.T) {
	env := newTestEnv(t)

	amounts := []int64{100_000, 200_000, 300_000}
	for _, a := range amounts {
		env.bank.Mint(aliceAddr, sdkmath.NewInt(a))
		_, err := env.vault.PurchaseLP(aliceAddr, sdkmath.NewInt(a))
		require.NoError(t, err)
	}
	require.Equal(t, 3, env.vault.LockedLPLength(aliceAddr))

	env.vault.now = func() time.Time { return time.Now().Add(72 * time.Hour) }

	claimed, _, err := env.vault.ClaimLP(aliceAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(90_000), claimed.Amount.Int64())

	// the last batch was swapped into the freed slot
	front, err := env.vault.GetLockedLP(aliceAddr, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(270_000), front.Amount.Int64())
	assert.Equal(t, 2, env.vault.LockedLPLength(aliceAddr))
}

func TestLiquidVault_insertUnclaimedBatch(t *testing.T) {
	env := newTestEnv(t)
	unlock := time.Now().Add(time.Hour).Unix()

	_, err := env.vault.InsertUnclaimedBatchFor(aliceAddr, bobAddr, sdkmath.NewInt(500), unlock)
	require.ErrorIs(t, err, types.ErrNotOwner)

	_, err = env.vault.InsertUnclaimedBatchFor(ownerAddr, bobAddr, sdkmath.ZeroInt(), unlock)
	require.ErrorIs(t, err, types.ErrZeroAmount)

	// custody not yet transferred
	_, err = env.vault.InsertUnclaimedBatchFor(ownerAddr, bobAddr, sdkmath.NewInt(500), unlock)
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	env.lp.Mint(vaultAddr, sdkmath.NewInt(500))
	claim, err := env.vault.InsertUnclaimedBatchFor(ownerAddr, bobAddr, sdkmath.NewInt(500), unlock)
	require.NoError(t, err)
	assert.Equal(t, int64(500), claim.Amount.Int64())
	assert.Equal(t, 1, env.vault.LockedLPLength(bobAddr))

	require.NoError(t, env.vault.DisableManualBatchInsertion(ownerAddr))
	assert.False(t, env.vault.BatchInsertionAllowed())

	_, err = env.vault.InsertUnclaimedBatchFor(ownerAddr, bobAddr, sdkmath.NewInt(500), unlock)
	require.ErrorIs(t, err, types.ErrBatchInsertionDisabled)

	// the latch stays shut
	require.NoError(t, env.vault.DisableManualBatchInsertion(ownerAddr))
	assert.False(t, env.vault.BatchInsertionAllowed())
}

func TestLiquidVault_priceGate(t *testing.T) {
	env := newTestEnv(t)

	// twap says one eth buys twice the spot amount
	require.NoError(t, env.vault.Seed(ownerAddr, 2, env.token, distAddr, charityAddr, 10, 10, &stubOracle{factor: 2}))
	require.NoError(t, env.vault.SetPriceTolerance(ownerAddr, 10))

	env.bank.Mint(aliceAddr, sdkmath.NewInt(100_000))
	_, err := env.vault.PurchaseLP(aliceAddr, sdkmath.NewInt(100_000))
	require.ErrorIs(t, err, types.ErrPriceTooHigh)

	// spot matching the twap passes
	require.NoError(t, env.vault.Seed(ownerAddr, 2, env.token, distAddr, charityAddr, 10, 10, &stubOracle{factor: 1}))
	_, err = env.vault.PurchaseLP(aliceAddr, sdkmath.NewInt(100_000))
	require.NoError(t, err)
}

func TestLiquidVault_ownerOperations(t *testing.T) {
	env := newTestEnv(t)

	require.ErrorIs(t, env.vault.SetParameters(aliceAddr, 1, 5, 5), types.ErrNotOwner)
	require.NoError(t, env.vault.SetParameters(ownerAddr, 1, 5, 5))

	require.ErrorIs(t, env.vault.SetEthFeeAddress(ownerAddr, common.Address{}), types.ErrZeroAddress)
	require.NoError(t, env.vault.SetEthFeeAddress(ownerAddr, fundAddr))

	require.ErrorIs(t, env.vault.TransferOwnership(ownerAddr, common.Address{}), types.ErrZeroAddress)
	require.NoError(t, env.vault.TransferOwnership(ownerAddr, rescueAddr))
	assert.Equal(t, rescueAddr, env.vault.Owner())

	require.ErrorIs(t, env.vault.SetParameters(ownerAddr, 1, 5, 5), types.ErrNotOwner)
}

func TestLiquidVault_seedValidation(t *testing.T) {
	env := newTestEnv(t)

	err := env.vault.Seed(ownerAddr, 2, env.token, distAddr, common.Address{}, 10, 10, nil)
	require.ErrorIs(t, err, types.ErrZeroAddress)

	err = env.vault.Seed(aliceAddr, 2, env.token, distAddr, charityAddr, 10, 10, nil)
	require.ErrorIs(t, err, types.ErrNotOwner)
}
