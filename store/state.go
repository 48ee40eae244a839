package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VaultState is the durable snapshot of the vault configuration and latches.
type VaultState struct {
	ID                    string `bson:"_id,omitempty"`
	Owner                 string
	LockDurationDays      int64
	PurchaseFeePercent    int64
	ExitFeePercent        int64
	EthFeeReceiver        string
	Distributor           string
	Seeded                bool
	BatchInsertionAllowed bool
}

// RescueState is the durable snapshot of the flash rescue sequence.
type RescueState struct {
	ID             string `bson:"_id,omitempty"`
	CurrentStep    int
	Seeded         bool
	ConfigCaptured bool
	Vault          string
	Token          string
}

const (
	vaultStateID  = "vault"
	rescueStateID = "rescue"
)

func (s *vaultStore) SaveVaultState(ctx context.Context, state *VaultState) error {
	state.ID = vaultStateID
	return s.upsert(ctx, stateCollection, vaultStateID, state)
}

func (s *vaultStore) GetVaultState(ctx context.Context) (*VaultState, error) {
	var state VaultState
	found, err := s.findOne(ctx, stateCollection, vaultStateID, &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (s *vaultStore) SaveRescueState(ctx context.Context, state *RescueState) error {
	state.ID = rescueStateID
	return s.upsert(ctx, rescueCollection, rescueStateID, state)
}

func (s *vaultStore) GetRescueState(ctx context.Context) (*RescueState, error) {
	var state RescueState
	found, err := s.findOne(ctx, rescueCollection, rescueStateID, &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (s *vaultStore) upsert(ctx context.Context, collection, id string, doc interface{}) error {
	coll := s.Database(vaultDatabase).Collection(collection)
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", collection, err)
	}
	return nil
}

func (s *vaultStore) findOne(ctx context.Context, collection, id string, out interface{}) (bool, error) {
	coll := s.Database(vaultDatabase).Collection(collection)
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", collection, err)
	}
	return true, nil
}
