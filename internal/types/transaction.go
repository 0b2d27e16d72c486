package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusCancelled = "cancelled"
)

// Transaction is the off-chain record of a purchase. The ledger is the source
// of truth for whether value moved; a row here only controls what renders as
// pending or completed. A row must not carry status "completed" unless the
// corresponding ledger completion call succeeded.
type Transaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID         uuid.UUID       `gorm:"type:uuid;not null;column:asset_id;index" json:"asset_id"`
	BuyerID         uuid.UUID       `gorm:"type:uuid;column:buyer_id;index" json:"buyer_id"`
	SellerID        uuid.UUID       `gorm:"type:uuid;column:seller_id;index" json:"seller_id"`
	Price           decimal.Decimal `gorm:"type:numeric(38,18);not null;column:price" json:"price"`
	TransactionHash string          `gorm:"column:transaction_hash;index" json:"transaction_hash,omitempty"`
	LedgerID        string          `gorm:"column:ledger_id" json:"ledger_id,omitempty"`
	Status          string          `gorm:"not null;default:pending;column:status;index" json:"status"`
	CreatedAt       time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;default:now()" json:"updated_at"`

	Asset  *Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Buyer  *User  `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller *User  `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

func (Transaction) TableName() string { return "transaction" }

func ValidTransactionStatus(status string) bool {
	switch status {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusCancelled:
		return true
	default:
		return false
	}
}
