package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/infrastructure/persistence/schema"
	"recetario/internal/ports"
)

// keyPrefix keeps desk keys apart from the store's own schema entries.
const keyPrefix = "desk."

// Store implements ports.KeyValueStore on the schema_meta table.
type Store struct {
	db *gorm.DB
}

var _ ports.KeyValueStore = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	fullKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row schema.Meta
	if err := s.db.WithContext(ctx).Where("key = ?", fullKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query key")
	}
	return row.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	fullKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	row := schema.Meta{
		Key:       fullKey,
		Value:     value,
		UpdatedAt: prescription.FormatTimestamp(time.Now()),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert key")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	fullKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Where("key = ?", fullKey).Delete(&schema.Meta{}).Error; err != nil {
		return errs.Wrap(err, "delete key")
	}
	return nil
}

func checkKey(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("key is required")
	}
	return keyPrefix + trimmed, nil
}
