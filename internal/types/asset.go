package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetCategories is the closed set accepted by the API.
var AssetCategories = []string{"art", "music", "collectible", "meme", "utility", "other"}

// Asset mirrors a listed token. TokenID is assigned by the ledger at
// list/mint time and never changes afterwards.
type Asset struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name         string          `gorm:"not null;column:name" json:"name"`
	Description  string          `gorm:"type:text;column:description" json:"description,omitempty"`
	Price        decimal.Decimal `gorm:"type:numeric(38,18);not null;column:price" json:"price"`
	ImageURL     string          `gorm:"column:image_url" json:"image_url,omitempty"`
	Category     string          `gorm:"column:category;index" json:"category,omitempty"`
	TokenID      string          `gorm:"uniqueIndex;column:token_id" json:"token_id,omitempty"`
	OwnerAddress string          `gorm:"column:owner_address;index" json:"owner_address,omitempty"`
	IsAvailable  bool            `gorm:"not null;default:true;column:is_available" json:"is_available"`
	CreatedAt    time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Asset) TableName() string { return "asset" }

func ValidCategory(category string) bool {
	if category == "" {
		return true
	}
	for _, c := range AssetCategories {
		if c == category {
			return true
		}
	}
	return false
}
