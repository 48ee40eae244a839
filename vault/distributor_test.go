package vault

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hardcorefi/hardcore-client/types"
)

func TestDistributor_requiresSeed(t *testing.T) {
	d := NewFeeDistributor(distAddr, ownerAddr, nil, zap.NewNop())

	err := d.DistributeFees()
	require.ErrorIs(t, err, types.ErrDistributorNotSeeded)

	env := newTestEnv(t)
	err = d.Seed(aliceAddr, env.token, vaultAddr, fundAddr, 15, 30)
	require.ErrorIs(t, err, types.ErrNotOwner)
}

func TestDistributor_split(t *testing.T) {
	env := newTestEnv(t)
	d := NewFeeDistributor(distAddr, ownerAddr, nil, zap.NewNop())
	require.NoError(t, d.Seed(ownerAddr, env.token, vaultAddr, fundAddr, 15, 30))

	// the 10% fee lands on the distributor too, so it collects the full 100
	require.NoError(t, env.token.Transfer(ownerAddr, distAddr, sdkmath.NewInt(100)))
	require.Equal(t, int64(100), d.Balance().Int64())

	supplyBefore := env.token.TotalSupply()
	vaultBefore := env.token.BalanceOf(vaultAddr)

	require.NoError(t, d.DistributeFees())

	assert.Equal(t, int64(30), supplyBefore.Sub(env.token.TotalSupply()).Int64())
	assert.Equal(t, int64(15), env.token.BalanceOf(vaultAddr).Sub(vaultBefore).Int64())
	assert.Equal(t, int64(55), env.token.BalanceOf(fundAddr).Int64())
	assert.Equal(t, int64(0), d.Balance().Int64())
}

func TestDistributor_emptyBalanceIsNoop(t *testing.T) {
	env := newTestEnv(t)
	d := NewFeeDistributor(distAddr, ownerAddr, nil, zap.NewNop())
	require.NoError(t, d.Seed(ownerAddr, env.token, vaultAddr, fundAddr, 15, 30))

	supplyBefore := env.token.TotalSupply()
	require.NoError(t, d.DistributeFees())
	assert.Equal(t, supplyBefore, env.token.TotalSupply())
}
