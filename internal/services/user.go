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

type UserService interface {
	List(ctx context.Context, offset, limit int) ([]*types.User, error)
	Get(ctx context.Context, userID uuid.UUID) (*types.User, error)
	GetByWallet(ctx context.Context, walletAddress string) (*types.User, error)
	Create(ctx context.Context, user *types.User) (*types.User, error)
	GetOrCreate(ctx context.Context, walletAddress string) (*types.User, error)
	Update(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) (*types.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type userService struct {
	db    *gorm.DB
	log   *logger.Logger
	users repos.UserRepo
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, users repos.UserRepo) UserService {
	return &userService{
		db:    db,
		log:   baseLog.With("service", "UserService"),
		users: users,
	}
}

func (s *userService) List(ctx context.Context, offset, limit int) ([]*types.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.users.List(ctx, nil, offset, limit)
}

func (s *userService) Get(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return s.users.GetByID(ctx, nil, userID)
}

func (s *userService) GetByWallet(ctx context.Context, walletAddress string) (*types.User, error) {
	return s.users.GetByWallet(ctx, nil, strings.ToLower(walletAddress))
}

// Create is upsert-by-wallet: posting an address that already exists returns
// the existing row instead of failing.
func (s *userService) Create(ctx context.Context, user *types.User) (*types.User, error) {
	user.WalletAddress = strings.ToLower(strings.TrimSpace(user.WalletAddress))
	if user.WalletAddress == "" {
		return nil, fmt.Errorf("wallet address required")
	}
	existing, err := s.users.GetByWallet(ctx, nil, user.WalletAddress)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.users.Create(ctx, nil, user)
}

func (s *userService) GetOrCreate(ctx context.Context, walletAddress string) (*types.User, error) {
	walletAddress = strings.ToLower(strings.TrimSpace(walletAddress))
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address required")
	}
	existing, err := s.users.GetByWallet(ctx, nil, walletAddress)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	short := strings.TrimPrefix(walletAddress, "0x")
	if len(short) > 8 {
		short = short[:8]
	}
	return s.users.Create(ctx, nil, &types.User{
		WalletAddress: walletAddress,
		Username:      "User_" + short,
	})
}

func (s *userService) Update(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) (*types.User, error) {
	existing, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if wallet, ok := fields["wallet_address"].(string); ok {
		fields["wallet_address"] = strings.ToLower(wallet)
	}
	if err := s.users.UpdateFields(ctx, nil, userID, fields); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, nil, userID)
}

func (s *userService) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.users.Delete(ctx, nil, userID)
}
