package store

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

type vaultStore struct {
	*mongo.Client
}

const (
	vaultDatabase     = "hardcorevault"
	claimCollection   = "claims"
	stateCollection   = "vaultstate"
	rescueCollection  = "rescuestate"
)

func NewVaultStore(client *mongo.Client) *vaultStore {
	return &vaultStore{client}
}

func (s *vaultStore) Close() {
	_ = s.Client.Disconnect(context.Background())
}
