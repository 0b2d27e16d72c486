package ledger

import (
	"context"
	"math/big"

	"github.com/mememonize/backend/internal/logger"
)

// IdentifierResolver recovers a canonical ledger identifier from a
// transaction hash by scanning the contract's historical events. The scan is
// genesis-to-latest and linear: event volume on the escrow contract is small
// and resolution only runs on completion/cancellation paths, never per
// purchase. An indexed lookup would be the move at real scale.
type IdentifierResolver struct {
	log    *logger.Logger
	source EventSource
}

func NewIdentifierResolver(baseLog *logger.Logger, source EventSource) *IdentifierResolver {
	return &IdentifierResolver{
		log:    baseLog.With("component", "IdentifierResolver"),
		source: source,
	}
}

// Resolve scans all historical events of the given kind for one whose
// transaction hash matches, and returns the first of the given keys its
// payload carries. A miss is an UnresolvedIdentifierError: the event either
// exists on-chain or it never will, so the same hash will never resolve
// later.
func (r *IdentifierResolver) Resolve(ctx context.Context, eventName, transactionHash string, idKeys ...string) (string, error) {
	events, err := r.source.QueryPastEvents(ctx, eventName, big.NewInt(0), nil)
	if err != nil {
		return "", err
	}
	for _, ev := range events {
		if !SameHash(ev.TransactionHash, transactionHash) {
			continue
		}
		for _, key := range idKeys {
			if id, ok := ev.Value(key); ok && id != "" {
				r.log.Debug("Resolved canonical identifier from event history",
					"event", eventName, "tx_hash", transactionHash, "canonical_id", id)
				return id, nil
			}
		}
	}
	return "", &UnresolvedIdentifierError{TransactionHash: transactionHash, Event: eventName}
}
