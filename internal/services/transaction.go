package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mememonize/backend/internal/logger"
	"github.com/mememonize/backend/internal/repos"
	"github.com/mememonize/backend/internal/types"
)

type CreateTransactionInput struct {
	AssetID         uuid.UUID
	BuyerAddress    string
	SellerAddress   string
	Price           decimal.Decimal
	TransactionHash string
	LedgerID        string
	Status          string
}

type TransactionService interface {
	List(ctx context.Context, offset, limit int) ([]*types.Transaction, error)
	Get(ctx context.Context, transactionID uuid.UUID) (*types.Transaction, error)
	GetByHash(ctx context.Context, transactionHash string) (*types.Transaction, error)
	GetByLedgerID(ctx context.Context, ledgerID string) (*types.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.Transaction, error)
	Create(ctx context.Context, in CreateTransactionInput) (*types.Transaction, error)
	UpdateStatus(ctx context.Context, transactionID uuid.UUID, status string) (*types.Transaction, error)
}

type transactionService struct {
	db           *gorm.DB
	log          *logger.Logger
	transactions repos.TransactionRepo
	assets       repos.AssetRepo
	users        repos.UserRepo
	userService  UserService
}

func NewTransactionService(db *gorm.DB, baseLog *logger.Logger, transactions repos.TransactionRepo, assets repos.AssetRepo, users repos.UserRepo, userService UserService) TransactionService {
	return &transactionService{
		db:           db,
		log:          baseLog.With("service", "TransactionService"),
		transactions: transactions,
		assets:       assets,
		users:        users,
		userService:  userService,
	}
}

func (s *transactionService) List(ctx context.Context, offset, limit int) ([]*types.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.transactions.List(ctx, nil, offset, limit)
}

func (s *transactionService) Get(ctx context.Context, transactionID uuid.UUID) (*types.Transaction, error) {
	return s.transactions.GetByID(ctx, nil, transactionID)
}

func (s *transactionService) GetByHash(ctx context.Context, transactionHash string) (*types.Transaction, error) {
	return s.transactions.GetByHash(ctx, nil, transactionHash)
}

func (s *transactionService) GetByLedgerID(ctx context.Context, ledgerID string) (*types.Transaction, error) {
	return s.transactions.GetByLedgerID(ctx, nil, ledgerID)
}

func (s *transactionService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.Transaction, error) {
	return s.transactions.ListByUser(ctx, nil, userID)
}

// Create records a purchase. Buyer and seller rows are created lazily from
// their wallet addresses; the asset is flipped unavailable unless the row
// arrives already cancelled. A completed status is refused here: completion
// only happens through the status update path, after the ledger settled.
func (s *transactionService) Create(ctx context.Context, in CreateTransactionInput) (*types.Transaction, error) {
	if in.Status == "" {
		in.Status = types.TransactionStatusPending
	}
	if !types.ValidTransactionStatus(in.Status) {
		return nil, fmt.Errorf("invalid status %q", in.Status)
	}
	if in.Status == types.TransactionStatusCompleted {
		return nil, fmt.Errorf("a transaction cannot be created as completed")
	}
	if !in.Price.IsPositive() {
		return nil, fmt.Errorf("price must be > 0")
	}

	asset, err := s.assets.GetByID(ctx, nil, in.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("asset not found")
	}

	buyerAddress := strings.ToLower(strings.TrimSpace(in.BuyerAddress))
	if buyerAddress == "" {
		return nil, fmt.Errorf("buyer address required")
	}
	sellerAddress := strings.ToLower(strings.TrimSpace(in.SellerAddress))
	if sellerAddress == "" {
		sellerAddress = strings.ToLower(asset.OwnerAddress)
	}
	if sellerAddress == "" {
		return nil, fmt.Errorf("seller address required")
	}

	// The store enforces uniqueness by hash; posting the same confirmed
	// ledger transaction twice returns the original row.
	if in.TransactionHash != "" {
		existing, err := s.transactions.GetByHash(ctx, nil, in.TransactionHash)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	buyer, err := s.userService.GetOrCreate(ctx, buyerAddress)
	if err != nil {
		return nil, err
	}
	seller, err := s.userService.GetOrCreate(ctx, sellerAddress)
	if err != nil {
		return nil, err
	}

	var row *types.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row = &types.Transaction{
			AssetID:         asset.ID,
			BuyerID:         buyer.ID,
			SellerID:        seller.ID,
			Price:           in.Price,
			TransactionHash: in.TransactionHash,
			LedgerID:        in.LedgerID,
			Status:          in.Status,
		}
		if _, err := s.transactions.Create(ctx, tx, row); err != nil {
			return err
		}
		if in.Status != types.TransactionStatusCancelled {
			if err := s.assets.UpdateFields(ctx, tx, asset.ID, map[string]interface{}{"is_available": false}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.transactions.GetByID(ctx, nil, row.ID)
}

// UpdateStatus moves a row between pending/completed/cancelled. Completion
// transfers asset ownership to the buyer and re-lists it under the new
// owner; cancellation just re-lists it.
func (s *transactionService) UpdateStatus(ctx context.Context, transactionID uuid.UUID, status string) (*types.Transaction, error) {
	if !types.ValidTransactionStatus(status) {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	row, err := s.transactions.GetByID(ctx, nil, transactionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.transactions.UpdateFields(ctx, tx, transactionID, map[string]interface{}{"status": status}); err != nil {
			return err
		}

		switch status {
		case types.TransactionStatusCompleted:
			buyer, err := s.users.GetByID(ctx, tx, row.BuyerID)
			if err != nil {
				return err
			}
			if buyer == nil {
				s.log.Warn("Completed transaction has no buyer record; ownership not transferred",
					"transaction_id", transactionID.String())
				return nil
			}
			return s.assets.UpdateFields(ctx, tx, row.AssetID, map[string]interface{}{
				"owner_address": buyer.WalletAddress,
				"is_available":  true,
			})
		case types.TransactionStatusCancelled:
			return s.assets.UpdateFields(ctx, tx, row.AssetID, map[string]interface{}{"is_available": true})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.transactions.GetByID(ctx, nil, transactionID)
}
