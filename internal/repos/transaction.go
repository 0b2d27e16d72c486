package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mememonize/backend/internal/logger"
	"github.com/mememonize/backend/internal/types"
)

type TransactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Transaction) (*types.Transaction, error)
	GetByID(ctx context.Context, tx *gorm.DB, transactionID uuid.UUID) (*types.Transaction, error)
	GetByHash(ctx context.Context, tx *gorm.DB, transactionHash string) (*types.Transaction, error)
	GetPendingByHash(ctx context.Context, tx *gorm.DB, transactionHash string) (*types.Transaction, error)
	GetByLedgerID(ctx context.Context, tx *gorm.DB, ledgerID string) (*types.Transaction, error)
	List(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.Transaction, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Transaction, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, transactionID uuid.UUID, fields map[string]interface{}) error
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return &transactionRepo{db: db, log: baseLog.With("repo", "TransactionRepo")}
}

func (tr *transactionRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Transaction) (*types.Transaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (tr *transactionRepo) GetByID(ctx context.Context, tx *gorm.DB, transactionID uuid.UUID) (*types.Transaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var result types.Transaction
	if err := transaction.WithContext(ctx).
		Preload("Asset").
		Preload("Buyer").
		Preload("Seller").
		Where("id = ?", transactionID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (tr *transactionRepo) GetByHash(ctx context.Context, tx *gorm.DB, transactionHash string) (*types.Transaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var result types.Transaction
	if err := transaction.WithContext(ctx).
		Where("transaction_hash = ?", transactionHash).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (tr *transactionRepo) GetPendingByHash(ctx context.Context, tx *gorm.DB, transactionHash string) (*types.Transaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var result types.Transaction
	if err := transaction.WithContext(ctx).
		Where("transaction_hash = ? AND status = ?", transactionHash, types.TransactionStatusPending).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (tr *transactionRepo) GetByLedgerID(ctx context.Context, tx *gorm.DB, ledgerID string) (*types.Transaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var result types.Transaction
	if err := transaction.WithContext(ctx).
		Where("ledger_id = ?", ledgerID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (tr *transactionRepo) List(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.Transaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var results []*types.Transaction
	if err := transaction.WithContext(ctx).
		Preload("Asset").
		Preload("Buyer").
		Preload("Seller").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *transactionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Transaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var results []*types.Transaction
	if err := transaction.WithContext(ctx).
		Preload("Asset").
		Preload("Buyer").
		Preload("Seller").
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *transactionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, transactionID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Transaction{}).
		Where("id = ?", transactionID).
		Updates(fields).Error
}
