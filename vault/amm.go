package vault

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// NewTransactOpts builds the signer used for router transactions from a hex
// encoded private key.
func NewTransactOpts(privateKeyHex string, chainID int64) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transact opts: %w", err)
	}
	return opts, nil
}

// Router is the Uniswap-V2 compatible surface the vault consumes. The AMM is
// a black box: pool math, LP minting and slippage live behind this interface.
type Router interface {
	// AddLiquidityETH supplies tokenAmount and ethAmount to the pool and
	// reports the amounts actually used plus the liquidity minted to `to`.
	AddLiquidityETH(ctx context.Context, tokenAmount, ethAmount sdkmath.Int, to common.Address) (tokenUsed, ethUsed, liquidity sdkmath.Int, err error)
	// GetReserves returns the pool reserves as (tokenReserve, ethReserve).
	GetReserves(ctx context.Context) (sdkmath.Int, sdkmath.Int, error)
	// Pair returns the address of the pool's LP token.
	Pair() common.Address
}

const routerABI = `[{"name":"addLiquidityETH","type":"function","stateMutability":"payable","inputs":[{"name":"token","type":"address"},{"name":"amountTokenDesired","type":"uint256"},{"name":"amountTokenMin","type":"uint256"},{"name":"amountETHMin","type":"uint256"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amountToken","type":"uint256"},{"name":"amountETH","type":"uint256"},{"name":"liquidity","type":"uint256"}]}]`

const pairABI = `[{"name":"getReserves","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]},{"name":"token0","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}]`

// ethRouter is the production Router adapter speaking to a deployed
// Uniswap-V2 router over JSON-RPC.
type ethRouter struct {
	client *ethclient.Client
	opts   *bind.TransactOpts

	router *bind.BoundContract
	pair   *bind.BoundContract

	pairAddr     common.Address
	tokenAddr    common.Address
	tokenIsFirst bool

	txTimeout time.Duration
}

func NewEthRouter(
	ctx context.Context,
	nodeAddress string,
	routerAddr, pairAddr, tokenAddr common.Address,
	opts *bind.TransactOpts,
) (Router, error) {
	client, err := ethclient.DialContext(ctx, nodeAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to dial eth node: %w", err)
	}

	rABI, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	pABI, err := abi.JSON(strings.NewReader(pairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	r := &ethRouter{
		client:    client,
		opts:      opts,
		router:    bind.NewBoundContract(routerAddr, rABI, client, client, client),
		pair:      bind.NewBoundContract(pairAddr, pABI, client, client, client),
		pairAddr:  pairAddr,
		tokenAddr: tokenAddr,
		txTimeout: 2 * time.Minute,
	}

	var out []interface{}
	if err := r.pair.Call(&bind.CallOpts{Context: ctx}, &out, "token0"); err != nil {
		return nil, fmt.Errorf("failed to read pair token0: %w", err)
	}
	token0 := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	r.tokenIsFirst = token0 == tokenAddr

	return r, nil
}

func (r *ethRouter) Pair() common.Address { return r.pairAddr }

func (r *ethRouter) GetReserves(ctx context.Context) (sdkmath.Int, sdkmath.Int, error) {
	var out []interface{}
	if err := r.pair.Call(&bind.CallOpts{Context: ctx}, &out, "getReserves"); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("failed to read reserves: %w", err)
	}

	reserve0 := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	reserve1 := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)

	if r.tokenIsFirst {
		return sdkmath.NewIntFromBigInt(reserve0), sdkmath.NewIntFromBigInt(reserve1), nil
	}
	return sdkmath.NewIntFromBigInt(reserve1), sdkmath.NewIntFromBigInt(reserve0), nil
}

func (r *ethRouter) AddLiquidityETH(
	ctx context.Context,
	tokenAmount, ethAmount sdkmath.Int,
	to common.Address,
) (sdkmath.Int, sdkmath.Int, sdkmath.Int, error) {
	balBefore, err := r.lpBalanceOf(ctx, to)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, err
	}

	opts := *r.opts
	opts.Context = ctx
	opts.Value = ethAmount.BigInt()
	deadline := big.NewInt(time.Now().Add(r.txTimeout).Unix())

	tx, err := r.router.Transact(&opts, "addLiquidityETH",
		r.tokenAddr, tokenAmount.BigInt(), big.NewInt(0), big.NewInt(0), to, deadline)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("failed to add liquidity: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, r.client, tx)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("failed to wait for add-liquidity tx: %w", err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("add-liquidity tx %s reverted", tx.Hash())
	}

	balAfter, err := r.lpBalanceOf(ctx, to)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, sdkmath.Int{}, err
	}

	// The router refunds unused dust itself; the desired amounts are what the
	// vault budgeted and what its ledger accounting uses.
	return tokenAmount, ethAmount, balAfter.Sub(balBefore), nil
}

func (r *ethRouter) lpBalanceOf(ctx context.Context, addr common.Address) (sdkmath.Int, error) {
	var out []interface{}
	if err := r.pair.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", addr); err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to read LP balance: %w", err)
	}
	bal := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return sdkmath.NewIntFromBigInt(bal), nil
}
