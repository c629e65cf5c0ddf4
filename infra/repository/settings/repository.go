package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirasaad/awgen/infra/repository"
	"github.com/amirasaad/awgen/pkg/domain"
	"github.com/amirasaad/awgen/pkg/repository/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

// New returns a gorm backed settings store.
func New(db *gorm.DB) settings.Store {
	return &gormStore{db: db}
}

// Migrate creates the settings table if it does not exist.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Setting{})
}

func (r *gormStore) GetSetting(
	ctx context.Context,
	key string,
) (*string, error) {
	if key == "" {
		return nil, fmt.Errorf("empty setting key: %w", domain.ErrValidation)
	}
	var s Setting
	err := repository.WrapError(func() error {
		return r.db.WithContext(ctx).Where(&Setting{Key: key}).First(&s).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}
	return &s.Value, nil
}

func (r *gormStore) SetSetting(
	ctx context.Context,
	key string,
	value *string,
) error {
	if key == "" {
		return fmt.Errorf("empty setting key: %w", domain.ErrValidation)
	}
	if value == nil {
		err := repository.WrapError(func() error {
			return r.db.WithContext(ctx).Delete(&Setting{Key: key}).Error
		})
		if err != nil {
			return fmt.Errorf("clear setting %q: %w", key, err)
		}
		return nil
	}

	err := repository.WrapError(func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&Setting{Key: key, Value: *value}).Error
	})
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (r *gormStore) All(ctx context.Context) (map[string]string, error) {
	var rows []Setting
	err := repository.WrapError(func() error {
		return r.db.WithContext(ctx).Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}
