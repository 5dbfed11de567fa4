package repository

import (
	"context"

	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/store"
)

type SettingsRepository interface {
	FindByScreenID(ctx context.Context, screenID string) (*model.ScreenSettings, error)
	Save(ctx context.Context, settings *model.ScreenSettings) error
	Delete(ctx context.Context, screenID string) error
}

type settingsRepo struct {
	kv store.Store
}

func NewSettingsRepository(kv store.Store) SettingsRepository {
	return &settingsRepo{kv: kv}
}

func (r *settingsRepo) FindByScreenID(ctx context.Context, screenID string) (*model.ScreenSettings, error) {
	return store.GetJSON[model.ScreenSettings](ctx, r.kv, store.NamespaceSettings, screenID)
}

func (r *settingsRepo) Save(ctx context.Context, settings *model.ScreenSettings) error {
	return store.PutJSON(ctx, r.kv, store.NamespaceSettings, settings.ScreenID, settings)
}

func (r *settingsRepo) Delete(ctx context.Context, screenID string) error {
	return r.kv.Delete(ctx, store.NamespaceSettings, screenID)
}
