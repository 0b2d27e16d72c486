package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mememonize/backend/internal/ledger"
	"github.com/mememonize/backend/internal/logger"
	"github.com/mememonize/backend/internal/repos"
	"github.com/mememonize/backend/internal/types"
)

// SettlementService consumes purchase events off the ledger watcher and
// settles the mirrored state: the matching pending transaction is marked
// completed and the asset is handed to the buyer.
type SettlementService struct {
	db           *gorm.DB
	log          *logger.Logger
	watcher      *ledger.Watcher
	transactions repos.TransactionRepo
	assets       repos.AssetRepo
}

func NewSettlementService(db *gorm.DB, baseLog *logger.Logger, watcher *ledger.Watcher, transactions repos.TransactionRepo, assets repos.AssetRepo) *SettlementService {
	return &SettlementService{
		db:           db,
		log:          baseLog.With("service", "SettlementService"),
		watcher:      watcher,
		transactions: transactions,
		assets:       assets,
	}
}

// Start subscribes to purchase events and consumes them until the
// subscription is closed or ctx is cancelled. The returned subscription is
// the caller's teardown handle.
func (s *SettlementService) Start(ctx context.Context) (*ledger.Subscription, error) {
	sub, err := s.watcher.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	go func() {
		for ev := range sub.Events() {
			s.handlePurchased(ctx, ev)
		}
	}()
	return sub, nil
}

func (s *SettlementService) handlePurchased(ctx context.Context, ev ledger.Event) {
	hash := ev.TransactionHash
	if !strings.HasPrefix(hash, "0x") {
		hash = "0x" + hash
	}
	log := s.log.With("tx_hash", hash, "event", ev.Name)

	tokenID, _ := ev.Value("tokenId")
	buyer, _ := ev.Value("buyer")

	row, err := s.transactions.GetPendingByHash(ctx, nil, hash)
	if err != nil {
		log.Error("Failed to look up pending transaction", "error", err)
		return
	}
	if row != nil {
		if err := s.transactions.UpdateFields(ctx, nil, row.ID, map[string]interface{}{
			"status": types.TransactionStatusCompleted,
		}); err != nil {
			log.Error("Failed to mark transaction completed", "error", err)
			return
		}
		log.Info("Pending transaction marked completed", "transaction_id", row.ID.String())
	} else {
		log.Warn("No pending transaction matches purchase event")
	}

	if tokenID == "" {
		return
	}
	asset, err := s.assets.GetByTokenID(ctx, nil, tokenID)
	if err != nil {
		log.Error("Failed to look up asset for purchase event", "token_id", tokenID, "error", err)
		return
	}
	if asset == nil {
		log.Warn("No asset matches purchase event", "token_id", tokenID)
		return
	}
	if err := s.assets.UpdateFields(ctx, nil, asset.ID, map[string]interface{}{
		"owner_address": strings.ToLower(buyer),
		"is_available":  false,
	}); err != nil {
		log.Error("Failed to update asset owner", "asset_id", asset.ID.String(), "error", err)
		return
	}
	log.Info("Asset ownership settled", "asset_id", asset.ID.String(), "buyer", strings.ToLower(buyer))
}
