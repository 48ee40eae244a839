package vault

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hardcorefi/hardcore-client/store"
	"github.com/hardcorefi/hardcore-client/types"
)

// Flash rescue steps. The sequence only ever moves forward.
const (
	StepLPTransferred = 0
	StepClaiming      = 1
	StepDone          = 3
)

// FlashRescue recovers LP stranded in the vault. It takes vault ownership,
// re-seeds the vault with a zero lock so its own purchases unlock immediately,
// claims everything out and hands the recovered LP to the rescue owner.
type FlashRescue struct {
	rmu sync.Mutex

	address common.Address
	owner   common.Address

	vault *LiquidVault
	token *HardCoreToken
	bank  *bank

	currentStep    int
	seeded         bool
	configCaptured bool

	store  Store
	events *eventEmitter
	logger *zap.Logger
}

func NewFlashRescue(
	address, owner common.Address,
	bank *bank,
	eventCh chan<- Event,
	st Store,
	logger *zap.Logger,
) *FlashRescue {
	return &FlashRescue{
		address: address,
		owner:   owner,
		bank:    bank,
		store:   st,
		events:  newEventEmitter(eventCh, logger),
		logger:  logger.With(zap.String("module", "flash-rescue")),
	}
}

func (r *FlashRescue) Address() common.Address { return r.address }

func (r *FlashRescue) CurrentStep() int {
	r.rmu.Lock()
	defer r.rmu.Unlock()
	return r.currentStep
}

func (r *FlashRescue) Seeded() bool {
	r.rmu.Lock()
	defer r.rmu.Unlock()
	return r.seeded
}

func (r *FlashRescue) ConfigCaptured() bool {
	r.rmu.Lock()
	defer r.rmu.Unlock()
	return r.configCaptured
}

// Bind attaches the rescue to its collaborators without touching the latches.
// Required before a LoadState can restore a captured configuration.
func (r *FlashRescue) Bind(vault *LiquidVault, token *HardCoreToken) {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	r.vault = vault
	r.token = token
}

// Seed binds the rescue to its target vault and funds it with value native
// currency from the caller. The rescue must already own the vault.
func (r *FlashRescue) Seed(caller common.Address, vault *LiquidVault, token *HardCoreToken, value sdkmath.Int) error {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("flash rescue: %w", types.ErrNotOwner)
	}
	if vault.Owner() != r.address {
		return fmt.Errorf("rescue seed: %w", types.ErrOwnershipNotTransferred)
	}
	if value.IsNil() || value.IsZero() {
		return fmt.Errorf("rescue seed: %w", types.ErrNoEtherProvided)
	}
	if err := r.bank.Transfer(caller, r.address, value); err != nil {
		return fmt.Errorf("rescue seed: %w", err)
	}

	r.vault = vault
	r.token = token
	r.seeded = true

	r.persistState(context.Background())
	return nil
}

// CaptureConfig re-seeds the vault under the rescue's ownership with the
// vault's full original configuration, so purchases and claims made during the
// rescue behave exactly like regular ones, exit fee included.
func (r *FlashRescue) CaptureConfig(
	caller common.Address,
	lockDurationDays int64,
	token *HardCoreToken,
	distributor, feeReceiver common.Address,
	purchaseFeePercent, exitFeePercent int64,
	oracle PriceOracle,
) error {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("flash rescue: %w", types.ErrNotOwner)
	}
	if !r.seeded || r.vault == nil {
		return fmt.Errorf("capture config: %w", types.ErrNotSeeded)
	}

	r.token = token
	err := r.vault.Seed(r.address, lockDurationDays, token, distributor, feeReceiver, purchaseFeePercent, exitFeePercent, oracle)
	if err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	r.configCaptured = true
	r.currentStep = StepLPTransferred

	r.persistState(context.Background())
	r.events.emit(Event{Kind: EventRescueStep, Holder: r.address, Step: r.currentStep})
	return nil
}

// AdminPurchaseLP spends the rescue's entire native balance on a vault
// purchase, crediting the rescue's own claim queue.
func (r *FlashRescue) AdminPurchaseLP(caller common.Address) error {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("flash rescue: %w", types.ErrNotOwner)
	}
	return r.adminPurchaseLP()
}

func (r *FlashRescue) adminPurchaseLP() error {
	if !r.configCaptured || r.vault == nil {
		return fmt.Errorf("admin purchase: %w", types.ErrConfigNotCaptured)
	}

	value := r.bank.BalanceOf(r.address)
	if value.IsZero() {
		return fmt.Errorf("admin purchase: %w", types.ErrNoEtherProvided)
	}
	if _, err := r.vault.PurchaseLP(r.address, value); err != nil {
		return fmt.Errorf("admin purchase: %w", err)
	}
	return nil
}

// CanStillClaim reports whether the rescue's queue has an unlocked batch.
func (r *FlashRescue) CanStillClaim() bool {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	if r.vault == nil {
		return false
	}
	return r.vault.CanClaim(r.address)
}

// ClaimLP releases up to n batches from the rescue's queue.
func (r *FlashRescue) ClaimLP(caller common.Address, n int) error {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("flash rescue: %w", types.ErrNotOwner)
	}
	if !r.seeded || r.vault == nil {
		return fmt.Errorf("rescue claim: %w", types.ErrNotSeeded)
	}

	claimed := 0
	for i := 0; i < n && r.vault.CanClaim(r.address); i++ {
		if _, _, err := r.vault.ClaimLP(r.address); err != nil {
			return fmt.Errorf("rescue claim: %w", err)
		}
		claimed++
	}
	if claimed == 0 {
		return fmt.Errorf("rescue claim: %w", types.ErrNothingToClaim)
	}
	return nil
}

// DoInSequence advances the rescue by up to the given number of iterations.
// Step 0 purchases and moves to claiming; each claiming iteration releases at
// most one batch, and only a call finding nothing left to claim gathers the
// recovered LP to the owner and finishes. A failed iteration returns its
// error with the step unchanged.
func (r *FlashRescue) DoInSequence(caller common.Address, iterations int) error {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("flash rescue: %w", types.ErrNotOwner)
	}
	if !r.configCaptured || r.vault == nil {
		return fmt.Errorf("do in sequence: %w", types.ErrConfigNotCaptured)
	}

	for i := 0; i < iterations; i++ {
		switch {
		case r.currentStep < StepClaiming:
			if err := r.adminPurchaseLP(); err != nil {
				return err
			}
			r.advance(StepClaiming)

		case r.currentStep == StepClaiming:
			if r.vault.CanClaim(r.address) {
				if _, _, err := r.vault.ClaimLP(r.address); err != nil {
					return fmt.Errorf("do in sequence: %w", err)
				}
				break
			}
			if r.vault.LockedLPLength(r.address) > 0 {
				// Remaining batches are still time locked.
				return nil
			}
			if err := r.gatherLP(r.owner); err != nil {
				return err
			}
			r.advance(StepDone)
			return nil

		default:
			return fmt.Errorf("do in sequence: %w", types.ErrSequenceExhausted)
		}
	}
	return nil
}

// WithdrawLPTo moves all LP held by the rescue to the recipient.
func (r *FlashRescue) WithdrawLPTo(caller, recipient common.Address) error {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("flash rescue: %w", types.ErrNotOwner)
	}
	if !r.seeded || r.vault == nil {
		return fmt.Errorf("withdraw LP: %w", types.ErrNotSeeded)
	}
	return r.gatherLP(recipient)
}

func (r *FlashRescue) gatherLP(recipient common.Address) error {
	lp := r.vault.LPToken()
	balance := lp.BalanceOf(r.address)
	if balance.IsZero() {
		return nil
	}
	if err := lp.Transfer(r.address, recipient, balance); err != nil {
		return fmt.Errorf("gather LP: %w", err)
	}
	r.logger.Info("recovered LP withdrawn",
		zap.String("recipient", recipient.Hex()),
		zap.String("amount", balance.String()),
	)
	return nil
}

// EmergencyWithdrawETH returns amount of the rescue's native balance to the
// owner, bypassing the sequence. Partial withdraws are allowed; more than the
// balance is not.
func (r *FlashRescue) EmergencyWithdrawETH(caller common.Address, amount sdkmath.Int) error {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("flash rescue: %w", types.ErrNotOwner)
	}
	if amount.IsNil() || amount.IsZero() {
		return nil
	}
	if err := r.bank.Transfer(r.address, r.owner, amount); err != nil {
		return fmt.Errorf("emergency withdraw: %w", err)
	}
	return nil
}

// ReturnOwnershipOfLvWithoutWithdraw hands the vault back to the rescue owner
// without touching any balances.
func (r *FlashRescue) ReturnOwnershipOfLvWithoutWithdraw(caller common.Address) error {
	r.rmu.Lock()
	defer r.rmu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("flash rescue: %w", types.ErrNotOwner)
	}
	if !r.seeded || r.vault == nil {
		return fmt.Errorf("return ownership: %w", types.ErrNotSeeded)
	}
	if err := r.vault.TransferOwnership(r.address, r.owner); err != nil {
		return fmt.Errorf("return ownership: %w", err)
	}
	return nil
}

// LoadState restores the rescue progress from the store. A snapshot taken
// mid-rescue needs the vault and token bound first, otherwise the restored
// latches would point at nothing.
func (r *FlashRescue) LoadState(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.rmu.Lock()
	defer r.rmu.Unlock()

	state, err := r.store.GetRescueState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rescue state: %w", err)
	}
	if state == nil {
		return nil
	}
	if (state.Seeded || state.ConfigCaptured) && r.vault == nil {
		return fmt.Errorf("restore rescue state: vault not bound: %w", types.ErrSystemNotInitialized)
	}

	r.currentStep = state.CurrentStep
	r.seeded = state.Seeded
	r.configCaptured = state.ConfigCaptured
	return nil
}

// advance must be called with rmu held.
func (r *FlashRescue) advance(step int) {
	r.currentStep = step
	r.persistState(context.Background())
	r.events.emit(Event{Kind: EventRescueStep, Holder: r.address, Step: step})
}

func (r *FlashRescue) persistState(ctx context.Context) {
	if r.store == nil {
		return
	}
	state := &store.RescueState{
		CurrentStep:    r.currentStep,
		Seeded:         r.seeded,
		ConfigCaptured: r.configCaptured,
	}
	if r.vault != nil {
		state.Vault = r.vault.Address().Hex()
	}
	if r.token != nil {
		state.Token = r.token.Address().Hex()
	}
	if err := r.store.SaveRescueState(ctx, state); err != nil {
		r.logger.Error("failed to persist rescue state", zap.Error(err))
	}
}
