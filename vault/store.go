package vault

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/hardcorefi/hardcore-client/store"
)

// Store is the persistence surface the vault and rescue snapshot through.
// A nil Store keeps state in memory only.
type Store interface {
	GetClaims(ctx context.Context, opts ...store.ClaimOption) ([]*store.Claim, error)
	ReplaceClaims(ctx context.Context, holder string, claims []*store.Claim) error
	SaveVaultState(ctx context.Context, state *store.VaultState) error
	GetVaultState(ctx context.Context) (*store.VaultState, error)
	SaveRescueState(ctx context.Context, state *store.RescueState) error
	GetRescueState(ctx context.Context) (*store.RescueState, error)
}

func claimsToDocs(claims []*LockedClaim) []*store.Claim {
	docs := make([]*store.Claim, 0, len(claims))
	for _, c := range claims {
		docs = append(docs, &store.Claim{
			ID:              uuid.NewString(),
			Holder:          c.Holder.Hex(),
			Amount:          c.Amount.String(),
			UnlockTimestamp: c.UnlockTimestamp,
		})
	}
	return docs
}

func docsToClaims(docs []*store.Claim) ([]*LockedClaim, error) {
	claims := make([]*LockedClaim, 0, len(docs))
	for _, d := range docs {
		amount, ok := sdkmath.NewIntFromString(d.Amount)
		if !ok {
			return nil, fmt.Errorf("invalid stored claim amount: %q", d.Amount)
		}
		claims = append(claims, &LockedClaim{
			Holder:          common.HexToAddress(d.Holder),
			Amount:          amount,
			UnlockTimestamp: d.UnlockTimestamp,
		})
	}
	return claims, nil
}
