package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hardcorefi/hardcore-client/store"
	"github.com/hardcorefi/hardcore-client/types"
)

// LiquidVault accepts native currency purchases, pairs them with its own
// token holdings into AMM liquidity, and locks the minted LP tokens behind a
// per-holder claim queue with an exit fee on release.
//
// Every public operation runs under one lock: it validates, settles
// collaborator transfers, and mutates the claim ledger last, so a failed call
// leaves no partial state behind.
type LiquidVault struct {
	vmu sync.Mutex

	address common.Address
	owner   common.Address

	token   Ledger
	lpToken Ledger
	bank    *bank
	router  Router
	oracle  PriceOracle

	distributor    common.Address
	ethFeeReceiver common.Address

	lockDuration          time.Duration
	purchaseFeePercent    int64
	exitFeePercent        int64
	priceTolerancePercent int64

	seeded                bool
	batchInsertionAllowed bool

	claims *claimLedger
	store  Store
	events *eventEmitter
	logger *zap.Logger
	now    func() time.Time
}

func NewLiquidVault(
	address, owner common.Address,
	lpToken Ledger,
	router Router,
	bank *bank,
	eventCh chan<- Event,
	st Store,
	logger *zap.Logger,
) *LiquidVault {
	return &LiquidVault{
		address:               address,
		owner:                 owner,
		lpToken:               lpToken,
		router:                router,
		bank:                  bank,
		batchInsertionAllowed: true,
		claims:                newClaimLedger(),
		store:                 st,
		events:                newEventEmitter(eventCh, logger),
		logger:                logger.With(zap.String("module", "liquid-vault")),
		now:                   time.Now,
	}
}

// Seed configures the vault. Owner only; the fee receiver must be non-zero.
func (v *LiquidVault) Seed(
	caller common.Address,
	lockDurationDays int64,
	token Ledger,
	distributor, ethFeeReceiver common.Address,
	purchaseFeePercent, exitFeePercent int64,
	oracle PriceOracle,
) error {
	v.vmu.Lock()
	defer v.vmu.Unlock()

	if err := v.onlyOwner(caller); err != nil {
		return err
	}
	if isZeroAddress(ethFeeReceiver) {
		return fmt.Errorf("seed fee receiver: %w", types.ErrZeroAddress)
	}

	v.lockDuration = time.Duration(lockDurationDays) * 24 * time.Hour
	v.token = token
	v.distributor = distributor
	v.ethFeeReceiver = ethFeeReceiver
	v.purchaseFeePercent = purchaseFeePercent
	v.exitFeePercent = exitFeePercent
	v.oracle = oracle
	v.seeded = true

	v.persistState(context.Background())
	return nil
}

// PurchaseLP converts value native currency into locked AMM liquidity
// credited to buyer. The purchase fee comes off the top; the remainder is
// paired with vault tokens at the current pool ratio.
func (v *LiquidVault) PurchaseLP(buyer common.Address, value sdkmath.Int) (*LockedClaim, error) {
	return v.PurchaseLPContext(context.Background(), buyer, value)
}

func (v *LiquidVault) PurchaseLPContext(ctx context.Context, buyer common.Address, value sdkmath.Int) (*LockedClaim, error) {
	v.vmu.Lock()
	defer v.vmu.Unlock()

	if !v.seeded {
		return nil, fmt.Errorf("purchase LP: %w", types.ErrNotSeeded)
	}
	if v.router == nil {
		return nil, fmt.Errorf("purchase LP: no AMM router configured: %w", types.ErrNotSeeded)
	}
	if value.IsNil() || value.IsZero() {
		return nil, fmt.Errorf("purchase LP: %w", types.ErrZeroValue)
	}

	feeAmount := value.MulRaw(v.purchaseFeePercent).QuoRaw(100)
	ethForPurchase := value.Sub(feeAmount)

	tokenReserve, ethReserve, err := v.router.GetReserves(ctx)
	if err != nil {
		return nil, fmt.Errorf("purchase LP: %w", err)
	}
	if ethReserve.IsZero() {
		return nil, fmt.Errorf("purchase LP: pool has no eth reserve")
	}
	tokenAmount := ethForPurchase.Mul(tokenReserve).Quo(ethReserve)

	if err := v.checkPurchasePrice(ethForPurchase, tokenAmount); err != nil {
		return nil, err
	}

	if v.token.BalanceOf(v.address).LT(tokenAmount) {
		return nil, fmt.Errorf("purchase LP: need %s tokens: %w", tokenAmount, types.ErrInsufficientTokenBalance)
	}

	// every settled leg is recorded so a later failure unwinds all of them
	var undo []func()
	revert := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	if err := v.bank.Transfer(buyer, v.address, value); err != nil {
		return nil, fmt.Errorf("purchase LP: %w", err)
	}
	undo = append(undo, func() {
		if err := v.bank.Transfer(v.address, buyer, value); err != nil {
			v.logger.Error("failed to refund purchase", zap.Error(err))
		}
	})

	if !isZeroAddress(v.ethFeeReceiver) && feeAmount.IsPositive() {
		if err := v.bank.Transfer(v.address, v.ethFeeReceiver, feeAmount); err != nil {
			revert()
			return nil, fmt.Errorf("purchase LP fee: %w", err)
		}
		undo = append(undo, func() {
			if err := v.bank.Transfer(v.ethFeeReceiver, v.address, feeAmount); err != nil {
				v.logger.Error("failed to unwind purchase fee", zap.Error(err))
			}
		})
	}

	pair := v.router.Pair()
	if err := v.token.Transfer(v.address, pair, tokenAmount); err != nil {
		revert()
		return nil, fmt.Errorf("purchase LP token leg: %w", err)
	}
	undo = append(undo, func() {
		if err := v.token.Transfer(pair, v.address, tokenAmount); err != nil {
			v.logger.Error("failed to unwind purchase token leg", zap.Error(err))
		}
	})

	if err := v.bank.Transfer(v.address, pair, ethForPurchase); err != nil {
		revert()
		return nil, fmt.Errorf("purchase LP eth leg: %w", err)
	}
	undo = append(undo, func() {
		if err := v.bank.Transfer(pair, v.address, ethForPurchase); err != nil {
			v.logger.Error("failed to unwind purchase eth leg", zap.Error(err))
		}
	})

	_, _, liquidity, err := v.router.AddLiquidityETH(ctx, tokenAmount, ethForPurchase, v.address)
	if err != nil {
		revert()
		return nil, fmt.Errorf("purchase LP: %w", err)
	}

	claim := &LockedClaim{
		Holder:          buyer,
		Amount:          liquidity,
		UnlockTimestamp: v.now().Add(v.lockDuration).Unix(),
	}
	v.claims.append(claim)
	v.persistClaims(ctx, buyer)

	v.events.emit(Event{
		Kind:            EventPurchase,
		Holder:          buyer,
		Amount:          liquidity,
		EthForPurchase:  ethForPurchase,
		FeeAmount:       feeAmount,
		UnlockTimestamp: claim.UnlockTimestamp,
	})
	return claim, nil
}

// ClaimLP releases the holder's front batch if its lock has expired, minus
// the exit fee which goes to the donation address. Removal swaps the last
// batch into the front slot, so the newest batch surfaces next.
func (v *LiquidVault) ClaimLP(holder common.Address) (*LockedClaim, sdkmath.Int, error) {
	return v.ClaimLPContext(context.Background(), holder)
}

func (v *LiquidVault) ClaimLPContext(ctx context.Context, holder common.Address) (*LockedClaim, sdkmath.Int, error) {
	v.vmu.Lock()
	defer v.vmu.Unlock()

	claim, ok := v.claims.front(holder)
	if !ok {
		return nil, sdkmath.Int{}, fmt.Errorf("claim LP for %s: %w", holder, types.ErrNoLockedLP)
	}
	if v.now().Unix() < claim.UnlockTimestamp {
		return nil, sdkmath.Int{}, fmt.Errorf("claim LP unlocks at %d: %w", claim.UnlockTimestamp, types.ErrStillLocked)
	}

	exitFee := claim.Amount.MulRaw(v.exitFeePercent).QuoRaw(100)
	net := claim.Amount.Sub(exitFee)

	if err := v.lpToken.Transfer(v.address, holder, net); err != nil {
		return nil, sdkmath.Int{}, fmt.Errorf("claim LP: %w", err)
	}
	if exitFee.IsPositive() {
		if err := v.lpToken.Transfer(v.address, v.ethFeeReceiver, exitFee); err != nil {
			// unwind the payout so the claim stays whole
			if rbErr := v.lpToken.Transfer(holder, v.address, net); rbErr != nil {
				v.logger.Error("failed to unwind claim payout", zap.Error(rbErr))
			}
			return nil, sdkmath.Int{}, fmt.Errorf("claim LP exit fee: %w", err)
		}
	}

	v.claims.removeFront(holder)
	v.persistClaims(ctx, holder)

	v.events.emit(Event{
		Kind:            EventClaim,
		Holder:          holder,
		Amount:          claim.Amount,
		ExitFee:         exitFee,
		UnlockTimestamp: claim.UnlockTimestamp,
	})
	return claim, exitFee, nil
}

// CanClaim reports whether a ClaimLP call by holder would release a batch.
func (v *LiquidVault) CanClaim(holder common.Address) bool {
	claim, ok := v.claims.front(holder)
	return ok && v.now().Unix() >= claim.UnlockTimestamp
}

// InsertUnclaimedBatchFor directly credits a holder's queue, bypassing the
// AMM. Migration escape hatch; the vault must already hold the LP custody.
func (v *LiquidVault) InsertUnclaimedBatchFor(caller, holder common.Address, amount sdkmath.Int, timestamp int64) (*LockedClaim, error) {
	v.vmu.Lock()
	defer v.vmu.Unlock()

	if err := v.onlyOwner(caller); err != nil {
		return nil, err
	}
	if !v.batchInsertionAllowed {
		return nil, fmt.Errorf("insert batch: %w", types.ErrBatchInsertionDisabled)
	}
	if amount.IsNil() || amount.IsZero() {
		return nil, fmt.Errorf("insert batch: %w", types.ErrZeroAmount)
	}

	required := v.claims.totalLocked().Add(amount)
	if v.lpToken.BalanceOf(v.address).LT(required) {
		return nil, fmt.Errorf("insert batch: custody below %s: %w", required, types.ErrInsufficientBalance)
	}

	claim := &LockedClaim{Holder: holder, Amount: amount, UnlockTimestamp: timestamp}
	v.claims.append(claim)
	v.persistClaims(context.Background(), holder)

	v.events.emit(Event{
		Kind:            EventBatchInsert,
		Holder:          holder,
		Amount:          amount,
		UnlockTimestamp: timestamp,
	})
	return claim, nil
}

// DisableManualBatchInsertion flips the one-way latch. Idempotent; there is
// no way to re-enable.
func (v *LiquidVault) DisableManualBatchInsertion(caller common.Address) error {
	v.vmu.Lock()
	defer v.vmu.Unlock()

	if err := v.onlyOwner(caller); err != nil {
		return err
	}
	v.batchInsertionAllowed = false
	v.persistState(context.Background())
	return nil
}

func (v *LiquidVault) BatchInsertionAllowed() bool {
	v.vmu.Lock()
	defer v.vmu.Unlock()
	return v.batchInsertionAllowed
}

func (v *LiquidVault) SetParameters(caller common.Address, lockDurationDays, purchaseFeePercent, exitFeePercent int64) error {
	v.vmu.Lock()
	defer v.vmu.Unlock()

	if err := v.onlyOwner(caller); err != nil {
		return err
	}
	v.lockDuration = time.Duration(lockDurationDays) * 24 * time.Hour
	v.purchaseFeePercent = purchaseFeePercent
	v.exitFeePercent = exitFeePercent
	v.persistState(context.Background())
	return nil
}

func (v *LiquidVault) SetEthFeeAddress(caller, addr common.Address) error {
	v.vmu.Lock()
	defer v.vmu.Unlock()

	if err := v.onlyOwner(caller); err != nil {
		return err
	}
	if isZeroAddress(addr) {
		return fmt.Errorf("set eth fee address: %w", types.ErrZeroAddress)
	}
	v.ethFeeReceiver = addr
	v.persistState(context.Background())
	return nil
}

func (v *LiquidVault) SetPriceTolerance(caller common.Address, percent int64) error {
	v.vmu.Lock()
	defer v.vmu.Unlock()

	if err := v.onlyOwner(caller); err != nil {
		return err
	}
	v.priceTolerancePercent = percent
	return nil
}

func (v *LiquidVault) TransferOwnership(caller, newOwner common.Address) error {
	v.vmu.Lock()
	defer v.vmu.Unlock()

	if err := v.onlyOwner(caller); err != nil {
		return err
	}
	if isZeroAddress(newOwner) {
		return fmt.Errorf("transfer ownership: %w", types.ErrZeroAddress)
	}
	v.owner = newOwner
	v.persistState(context.Background())
	return nil
}

func (v *LiquidVault) Owner() common.Address {
	v.vmu.Lock()
	defer v.vmu.Unlock()
	return v.owner
}

func (v *LiquidVault) Address() common.Address { return v.address }

func (v *LiquidVault) LPToken() Ledger { return v.lpToken }

func (v *LiquidVault) LockedLPLength(holder common.Address) int {
	return v.claims.length(holder)
}

func (v *LiquidVault) GetLockedLP(holder common.Address, i int) (*LockedClaim, error) {
	claim, ok := v.claims.get(holder, i)
	if !ok {
		return nil, fmt.Errorf("locked LP %d for %s: %w", i, holder, types.ErrNoLockedLP)
	}
	return claim, nil
}

// LoadState restores claims and configuration latches from the store.
func (v *LiquidVault) LoadState(ctx context.Context) error {
	if v.store == nil {
		return nil
	}

	v.vmu.Lock()
	defer v.vmu.Unlock()

	docs, err := v.store.GetClaims(ctx)
	if err != nil {
		return fmt.Errorf("failed to load claims: %w", err)
	}
	claims, err := docsToClaims(docs)
	if err != nil {
		return err
	}
	v.claims.restore(claims)

	state, err := v.store.GetVaultState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vault state: %w", err)
	}
	if state != nil {
		v.owner = common.HexToAddress(state.Owner)
		v.lockDuration = time.Duration(state.LockDurationDays) * 24 * time.Hour
		v.purchaseFeePercent = state.PurchaseFeePercent
		v.exitFeePercent = state.ExitFeePercent
		v.ethFeeReceiver = common.HexToAddress(state.EthFeeReceiver)
		v.distributor = common.HexToAddress(state.Distributor)
		v.seeded = state.Seeded
		v.batchInsertionAllowed = state.BatchInsertionAllowed
	}
	return nil
}

// checkPurchasePrice is the optional oracle gate: the spot token amount must
// not fall below the time-weighted average by more than the tolerance.
// Oracle trouble is advisory only.
func (v *LiquidVault) checkPurchasePrice(ethForPurchase, tokenAmount sdkmath.Int) error {
	if v.oracle == nil || v.priceTolerancePercent <= 0 {
		return nil
	}

	twap, err := v.oracle.Consult(ethForPurchase)
	if err != nil {
		v.logger.Debug("oracle consult failed, skipping price check", zap.Error(err))
		return nil
	}
	floor := twap.MulRaw(100 - v.priceTolerancePercent).QuoRaw(100)
	if tokenAmount.LT(floor) {
		return fmt.Errorf("purchase LP: spot %s below twap floor %s: %w", tokenAmount, floor, types.ErrPriceTooHigh)
	}
	return nil
}

// onlyOwner must be called with vmu held.
func (v *LiquidVault) onlyOwner(caller common.Address) error {
	if caller != v.owner {
		return fmt.Errorf("liquid vault: %w", types.ErrNotOwner)
	}
	return nil
}

func (v *LiquidVault) persistClaims(ctx context.Context, holder common.Address) {
	if v.store == nil {
		return
	}
	docs := claimsToDocs(v.claims.snapshot(holder))
	if err := v.store.ReplaceClaims(ctx, holder.Hex(), docs); err != nil {
		v.logger.Error("failed to persist claims", zap.Error(err))
	}
}

func (v *LiquidVault) persistState(ctx context.Context) {
	if v.store == nil {
		return
	}
	state := &store.VaultState{
		Owner:                 v.owner.Hex(),
		LockDurationDays:      int64(v.lockDuration / (24 * time.Hour)),
		PurchaseFeePercent:    v.purchaseFeePercent,
		ExitFeePercent:        v.exitFeePercent,
		EthFeeReceiver:        v.ethFeeReceiver.Hex(),
		Distributor:           v.distributor.Hex(),
		Seeded:                v.seeded,
		BatchInsertionAllowed: v.batchInsertionAllowed,
	}
	if err := v.store.SaveVaultState(ctx, state); err != nil {
		v.logger.Error("failed to persist vault state", zap.Error(err))
	}
}
