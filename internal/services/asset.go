package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mememonize/backend/internal/logger"
	"github.com/mememonize/backend/internal/repos"
	"github.com/mememonize/backend/internal/types"
)

type AssetService interface {
	ListAvailable(ctx context.Context, offset, limit int) ([]*types.Asset, error)
	Get(ctx context.Context, assetID uuid.UUID) (*types.Asset, error)
	Create(ctx context.Context, asset *types.Asset) (*types.Asset, error)
	Update(ctx context.Context, assetID uuid.UUID, fields map[string]interface{}) (*types.Asset, error)
	SetAvailability(ctx context.Context, assetID uuid.UUID, available bool) (*types.Asset, error)
	Delete(ctx context.Context, assetID uuid.UUID) error
	Search(ctx context.Context, search repos.AssetSearch) ([]*types.Asset, error)
	Categories(ctx context.Context) ([]string, error)
}

type assetService struct {
	db     *gorm.DB
	log    *logger.Logger
	assets repos.AssetRepo
}

func NewAssetService(db *gorm.DB, baseLog *logger.Logger, assets repos.AssetRepo) AssetService {
	return &assetService{
		db:     db,
		log:    baseLog.With("service", "AssetService"),
		assets: assets,
	}
}

func (s *assetService) ListAvailable(ctx context.Context, offset, limit int) ([]*types.Asset, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.assets.ListAvailable(ctx, nil, repos.AssetSearch{}, offset, limit)
}

func (s *assetService) Get(ctx context.Context, assetID uuid.UUID) (*types.Asset, error) {
	return s.assets.GetByID(ctx, nil, assetID)
}

func (s *assetService) Create(ctx context.Context, asset *types.Asset) (*types.Asset, error) {
	if strings.TrimSpace(asset.Name) == "" {
		return nil, fmt.Errorf("asset name required")
	}
	if !asset.Price.IsPositive() {
		return nil, fmt.Errorf("asset price must be > 0")
	}
	if !types.ValidCategory(asset.Category) {
		return nil, fmt.Errorf("unknown category %q", asset.Category)
	}
	asset.OwnerAddress = strings.ToLower(asset.OwnerAddress)

	// token_id is assigned once, at list/mint time, and is immutable. Guard
	// against a second row claiming the same token.
	if asset.TokenID != "" {
		existing, err := s.assets.GetByTokenID(ctx, nil, asset.TokenID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("token id %s already recorded", asset.TokenID)
		}
	}
	return s.assets.Create(ctx, nil, asset)
}

func (s *assetService) Update(ctx context.Context, assetID uuid.UUID, fields map[string]interface{}) (*types.Asset, error) {
	existing, err := s.assets.GetByID(ctx, nil, assetID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	// Immutable after assignment.
	if tokenID, ok := fields["token_id"]; ok && existing.TokenID != "" && tokenID != existing.TokenID {
		return nil, fmt.Errorf("token id is immutable once set")
	}
	if category, ok := fields["category"].(string); ok && !types.ValidCategory(category) {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if err := s.assets.UpdateFields(ctx, nil, assetID, fields); err != nil {
		return nil, err
	}
	return s.assets.GetByID(ctx, nil, assetID)
}

func (s *assetService) SetAvailability(ctx context.Context, assetID uuid.UUID, available bool) (*types.Asset, error) {
	return s.Update(ctx, assetID, map[string]interface{}{"is_available": available})
}

func (s *assetService) Delete(ctx context.Context, assetID uuid.UUID) error {
	return s.assets.Delete(ctx, nil, assetID)
}

func (s *assetService) Search(ctx context.Context, search repos.AssetSearch) ([]*types.Asset, error) {
	return s.assets.ListAvailable(ctx, nil, search, 0, 100)
}

func (s *assetService) Categories(ctx context.Context) ([]string, error) {
	return s.assets.Categories(ctx, nil)
}
