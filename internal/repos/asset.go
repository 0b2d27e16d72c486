package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mememonize/backend/internal/logger"
	"github.com/mememonize/backend/internal/types"
)

// AssetSearch narrows ListAvailable results. Zero values mean "no filter".
type AssetSearch struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

type AssetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, asset *types.Asset) (*types.Asset, error)
	GetByID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.Asset, error)
	GetByTokenID(ctx context.Context, tx *gorm.DB, tokenID string) (*types.Asset, error)
	ListAvailable(ctx context.Context, tx *gorm.DB, search AssetSearch, offset, limit int) ([]*types.Asset, error)
	Categories(ctx context.Context, tx *gorm.DB) ([]string, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) error
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: baseLog.With("repo", "AssetRepo")}
}

func (ar *assetRepo) Create(ctx context.Context, tx *gorm.DB, asset *types.Asset) (*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if err := transaction.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

func (ar *assetRepo) GetByID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result types.Asset
	if err := transaction.WithContext(ctx).
		Where("id = ?", assetID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (ar *assetRepo) GetByTokenID(ctx context.Context, tx *gorm.DB, tokenID string) (*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result types.Asset
	if err := transaction.WithContext(ctx).
		Where("token_id = ?", tokenID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (ar *assetRepo) ListAvailable(ctx context.Context, tx *gorm.DB, search AssetSearch, offset, limit int) ([]*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	q := transaction.WithContext(ctx).
		Model(&types.Asset{}).
		Where("is_available = ?", true)
	if search.Query != "" {
		pattern := "%" + search.Query + "%"
		q = q.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if search.Category != "" {
		q = q.Where("category = ?", search.Category)
	}
	if search.MinPrice != nil {
		q = q.Where("price >= ?", search.MinPrice)
	}
	if search.MaxPrice != nil {
		q = q.Where("price <= ?", search.MaxPrice)
	}
	var results []*types.Asset
	if err := q.Offset(offset).Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *assetRepo) Categories(ctx context.Context, tx *gorm.DB) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []string
	if err := transaction.WithContext(ctx).
		Model(&types.Asset{}).
		Distinct("category").
		Where("category <> ''").
		Pluck("category", &results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *assetRepo) UpdateFields(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Asset{}).
		Where("id = ?", assetID).
		Updates(fields).Error
}

func (ar *assetRepo) Delete(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", assetID).
		Delete(&types.Asset{}).Error
}
