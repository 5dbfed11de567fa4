package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/store"
)

type PairingRequestRepository interface {
	FindByScreenID(ctx context.Context, screenID string) (*model.PairingRequest, error)
	Save(ctx context.Context, req *model.PairingRequest) error
	Delete(ctx context.Context, screenID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type pairingRequestRepo struct {
	kv store.Store
}

func NewPairingRequestRepository(kv store.Store) PairingRequestRepository {
	return &pairingRequestRepo{kv: kv}
}

func (r *pairingRequestRepo) FindByScreenID(ctx context.Context, screenID string) (*model.PairingRequest, error) {
	return store.GetJSON[model.PairingRequest](ctx, r.kv, store.NamespacePairing, screenID)
}

// Save overwrites any earlier request for the same screen.
func (r *pairingRequestRepo) Save(ctx context.Context, req *model.PairingRequest) error {
	return store.PutJSON(ctx, r.kv, store.NamespacePairing, req.ScreenID, req)
}

func (r *pairingRequestRepo) Delete(ctx context.Context, screenID string) error {
	return r.kv.Delete(ctx, store.NamespacePairing, screenID)
}

// DeleteExpired removes requests past their expiry, used or not, except those
// still holding a token the device may collect.
func (r *pairingRequestRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	reqs, skipped, err := store.ListJSON[model.PairingRequest](ctx, r.kv, store.NamespacePairing)
	if err != nil {
		return 0, err
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("undecodable pairing requests in store")
	}

	var deleted int64
	for i := range reqs {
		if !reqs[i].IsExpired(now) || reqs[i].PickupOpen(now) {
			continue
		}
		if err := r.kv.Delete(ctx, store.NamespacePairing, reqs[i].ScreenID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
