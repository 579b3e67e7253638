package repository

import (
	"context"
	"errors"
	"time"

	"github.com/example/bakery/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SettingsStore struct {
	settings collection[models.Settings]
}

func NewSettingsStore(m *MongoRepository) *SettingsStore {
	return &SettingsStore{settings: newCollection[models.Settings](m, SettingsCollection)}
}

// Get returns the store settings, or the defaults when none were saved.
func (s *SettingsStore) Get(ctx context.Context) (*models.Settings, error) {
	st, err := s.settings.findOne(ctx, bson.M{"_id": models.SettingsID})
	if errors.Is(err, ErrNotFound) {
		d := models.DefaultSettings()
		return &d, nil
	}
	return st, err
}

func (s *SettingsStore) Put(ctx context.Context, st *models.Settings) error {
	st.ID = models.SettingsID
	st.UpdatedAt = time.Now().UTC()
	_, err := s.settings.coll.ReplaceOne(ctx, bson.M{"_id": models.SettingsID}, st, options.Replace().SetUpsert(true))
	return err
}
