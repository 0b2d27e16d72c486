package types

import (
	"time"

	"github.com/google/uuid"
)

// User is the off-chain mirror of a ledger account. Rows are created lazily
// on first interaction; a wallet address never has to pre-exist here.
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WalletAddress string    `gorm:"uniqueIndex;not null;column:wallet_address" json:"wallet_address"`
	Username      string    `gorm:"column:username" json:"username,omitempty"`
	Email         string    `gorm:"column:email" json:"email,omitempty"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (User) TableName() string { return "user" }
