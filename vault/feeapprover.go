package vault

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hardcorefi/hardcore-client/types"
)

// FeeApprover decides, per transfer, whether a fee applies and how large it
// is. It starts paused: until UnPause only owner-initiated transfers pass,
// which serves as the pre-launch gate.
//
/// Scales are reproduced from the HardCore contract suite: feePercentX100 is a
// plain percent (10 == 10%), discounts are permille reductions of the fee
// (600 == 60% off), blacklist entries are a plain percent charged instead of
// the base fee, sender side only.
type FeeApprover struct {
	fmu sync.Mutex

	owner            common.Address
	tokenUniswapPair common.Address

	feePercentX100 int64
	discountFrom   map[common.Address]int64
	discountTo     map[common.Address]int64
	blackList      map[common.Address]int64
	paused         bool
	initialized    bool

	logger *zap.Logger
}

func NewFeeApprover(owner common.Address, feePercentX100 int64, logger *zap.Logger) *FeeApprover {
	return &FeeApprover{
		owner:          owner,
		feePercentX100: feePercentX100,
		discountFrom:   make(map[common.Address]int64),
		discountTo:     make(map[common.Address]int64),
		blackList:      make(map[common.Address]int64),
		paused:         true,
		logger:         logger.With(zap.String("module", "fee-approver")),
	}
}

// Initialize registers the AMM pair and grants the vault and distributor a
// full fee discount so internal routing is never taxed.
func (f *FeeApprover) Initialize(caller, pair, liquidVault, distributor common.Address) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}

	f.fmu.Lock()
	defer f.fmu.Unlock()

	f.tokenUniswapPair = pair
	f.discountFrom[liquidVault] = 1000
	f.discountTo[liquidVault] = 1000
	f.discountFrom[distributor] = 1000
	f.initialized = true
	return nil
}

// UnPause opens the system for trading. There is no way back.
func (f *FeeApprover) UnPause(caller common.Address) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}

	f.fmu.Lock()
	defer f.fmu.Unlock()
	f.paused = false
	return nil
}

func (f *FeeApprover) Paused() bool {
	f.fmu.Lock()
	defer f.fmu.Unlock()
	return f.paused
}

func (f *FeeApprover) FeePercentX100() int64 {
	f.fmu.Lock()
	defer f.fmu.Unlock()
	return f.feePercentX100
}

func (f *FeeApprover) SetFeeMultiplier(caller common.Address, feePercentX100 int64) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}

	f.fmu.Lock()
	defer f.fmu.Unlock()
	f.feePercentX100 = feePercentX100
	return nil
}

func (f *FeeApprover) SetFeeDiscountTo(caller, to common.Address, permille int64) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}

	f.fmu.Lock()
	defer f.fmu.Unlock()
	f.discountTo[to] = permille
	return nil
}

func (f *FeeApprover) SetFeeDiscountFrom(caller, from common.Address, permille int64) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}

	f.fmu.Lock()
	defer f.fmu.Unlock()
	f.discountFrom[from] = permille
	return nil
}

func (f *FeeApprover) SetFeeBlackList(caller, addr common.Address, feePercent int64) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}

	f.fmu.Lock()
	defer f.fmu.Unlock()
	f.blackList[addr] = feePercent
	return nil
}

// CalculateAmountsAfterFee computes (amountAfterFee, feeAmount) for a transfer
// of amount from -> to. Pure: routing the fee is the token hook's job.
func (f *FeeApprover) CalculateAmountsAfterFee(from, to common.Address, amount sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	f.fmu.Lock()
	defer f.fmu.Unlock()

	if f.paused && from != f.owner {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("transfer from %s: %w", from, types.ErrSystemNotInitialized)
	}

	// blacklist overrides everything, sender side only
	if pct, ok := f.blackList[from]; ok && pct > 0 {
		fee := amount.MulRaw(pct).QuoRaw(100)
		return amount.Sub(fee), fee, nil
	}

	fee := amount.MulRaw(f.feePercentX100).QuoRaw(100)
	if d, ok := f.discountTo[to]; ok && d > 0 {
		fee = fee.MulRaw(1000 - d).QuoRaw(1000)
	}
	if d, ok := f.discountFrom[from]; ok && d > 0 {
		fee = fee.MulRaw(1000 - d).QuoRaw(1000)
	}

	return amount.Sub(fee), fee, nil
}

func (f *FeeApprover) onlyOwner(caller common.Address) error {
	f.fmu.Lock()
	defer f.fmu.Unlock()

	if caller != f.owner {
		return fmt.Errorf("fee approver: %w", types.ErrNotOwner)
	}
	return nil
}
