package repository

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/store"
)

type ScreenRepository interface {
	FindByID(ctx context.Context, screenID string) (*model.PairedScreen, error)
	FindByOwnerID(ctx context.Context, ownerID string) ([]model.PairedScreen, error)
	Save(ctx context.Context, screen *model.PairedScreen) error
	Delete(ctx context.Context, screenID string) error
	DeleteTokenExpired(ctx context.Context, now time.Time) ([]string, error)
}

type screenRepo struct {
	kv store.Store
}

func NewScreenRepository(kv store.Store) ScreenRepository {
	return &screenRepo{kv: kv}
}

func (r *screenRepo) FindByID(ctx context.Context, screenID string) (*model.PairedScreen, error) {
	return store.GetJSON[model.PairedScreen](ctx, r.kv, store.NamespaceScreens, screenID)
}

// FindByOwnerID returns the owner's screens, most recently paired first.
func (r *screenRepo) FindByOwnerID(ctx context.Context, ownerID string) ([]model.PairedScreen, error) {
	all, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	screens := make([]model.PairedScreen, 0)
	for _, s := range all {
		if s.OwnerID == ownerID {
			screens = append(screens, s)
		}
	}
	sort.Slice(screens, func(i, j int) bool {
		return screens[i].PairedAt.After(screens[j].PairedAt)
	})
	return screens, nil
}

func (r *screenRepo) Save(ctx context.Context, screen *model.PairedScreen) error {
	return store.PutJSON(ctx, r.kv, store.NamespaceScreens, screen.ScreenID, screen)
}

func (r *screenRepo) Delete(ctx context.Context, screenID string) error {
	return r.kv.Delete(ctx, store.NamespaceScreens, screenID)
}

// DeleteTokenExpired removes sessions whose token can no longer validate and
// returns their screen ids.
func (r *screenRepo) DeleteTokenExpired(ctx context.Context, now time.Time) ([]string, error) {
	all, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for i := range all {
		if !all[i].TokenExpired(now) {
			continue
		}
		if err := r.kv.Delete(ctx, store.NamespaceScreens, all[i].ScreenID); err != nil {
			return removed, err
		}
		removed = append(removed, all[i].ScreenID)
	}
	return removed, nil
}

func (r *screenRepo) list(ctx context.Context) ([]model.PairedScreen, error) {
	all, skipped, err := store.ListJSON[model.PairedScreen](ctx, r.kv, store.NamespaceScreens)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("undecodable screen records in store")
	}
	return all, nil
}
