package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Claim is one locked LP batch. Amount is kept as a decimal string so 256-bit
// values survive the round trip.
type Claim struct {
	ID              string `bson:"_id,omitempty"`
	Holder          string
	Amount          string
	UnlockTimestamp int64
}

type ClaimOption func(*claimFilter)

type claimFilter struct {
	holder string
}

func FilterByHolder(holder string) ClaimOption {
	return func(f *claimFilter) {
		f.holder = holder
	}
}

func (s *vaultStore) GetClaims(ctx context.Context, opts ...ClaimOption) ([]*Claim, error) {
	claimsCollection := s.Database(vaultDatabase).Collection(claimCollection)

	var filter claimFilter
	for _, opt := range opts {
		opt(&filter)
	}

	query := bson.M{}
	if filter.holder != "" {
		query["holder"] = filter.holder
	}

	cursor, err := claimsCollection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}

	var claims []*Claim
	if err = cursor.All(ctx, &claims); err != nil {
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}

	return claims, nil
}

// ReplaceClaims overwrites one holder's claim set with the given batch.
func (s *vaultStore) ReplaceClaims(ctx context.Context, holder string, claims []*Claim) error {
	claimsCollection := s.Database(vaultDatabase).Collection(claimCollection)

	if _, err := claimsCollection.DeleteMany(ctx, bson.M{"holder": holder}); err != nil {
		return fmt.Errorf("failed to clear claims: %w", err)
	}
	if len(claims) == 0 {
		return nil
	}

	records := make([]interface{}, len(claims))
	for i, claim := range claims {
		records[i] = claim
	}

	if _, err := claimsCollection.InsertMany(ctx, records); err != nil {
		return fmt.Errorf("failed to insert claims: %w", err)
	}

	return nil
}
