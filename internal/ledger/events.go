package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a decoded contract event, detached from the provider's log
// representation so callers and fakes never touch geth types.
type Event struct {
	Name            string
	TransactionHash string
	BlockNumber     uint64
	Values          map[string]interface{}
}

// Value returns the named event argument rendered as a string: uint256 as
// decimal digits, addresses as lowercase hex.
func (e Event) Value(key string) (string, bool) {
	v, ok := e.Values[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case *big.Int:
		return t.String(), true
	case common.Address:
		return strings.ToLower(t.Hex()), true
	case common.Hash:
		return t.Hex(), true
	case string:
		return t, true
	case []byte:
		return "0x" + hex.EncodeToString(t), true
	case [32]byte:
		return "0x" + hex.EncodeToString(t[:]), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}

// Receipt is the ledger's confirmation for a submitted call.
type Receipt struct {
	TransactionHash string
	Succeeded       bool
	BlockNumber     uint64
	Events          []Event
}

// EventValue scans the receipt's events for eventName and returns the first
// of the given keys that is present.
func (r *Receipt) EventValue(eventName string, keys ...string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, ev := range r.Events {
		if ev.Name != eventName {
			continue
		}
		for _, key := range keys {
			if v, ok := ev.Value(key); ok {
				return v, true
			}
		}
	}
	return "", false
}

// Invoker is the write surface the coordinator drives.
type Invoker interface {
	ActiveAccount() (string, error)
	Invoke(ctx context.Context, method string, value *big.Int, args ...interface{}) (*Receipt, error)
}

// EventSource is the historical-query surface used by the identifier
// resolver and the purchase watcher. A nil toBlock means "latest".
type EventSource interface {
	QueryPastEvents(ctx context.Context, eventName string, fromBlock, toBlock *big.Int) ([]Event, error)
	LatestBlock(ctx context.Context) (uint64, error)
}

// SameHash compares transaction hashes ignoring case and 0x prefix skew.
func SameHash(a, b string) bool {
	return normalizeHash(a) == normalizeHash(b)
}

func normalizeHash(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.TrimPrefix(h, "0x")
}
