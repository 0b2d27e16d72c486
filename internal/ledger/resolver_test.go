package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/mememonize/backend/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return log
}

type fakeEventSource struct {
	events  []Event
	err     error
	latest  uint64
	queries int
}

func (f *fakeEventSource) QueryPastEvents(ctx context.Context, eventName string, fromBlock, toBlock *big.Int) ([]Event, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	var out []Event
	for _, ev := range f.events {
		if ev.Name != eventName {
			continue
		}
		if fromBlock != nil && ev.BlockNumber < fromBlock.Uint64() {
			continue
		}
		if toBlock != nil && ev.BlockNumber > toBlock.Uint64() {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeEventSource) LatestBlock(ctx context.Context) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.latest, nil
}

func TestResolverResolvesByHash(t *testing.T) {
	source := &fakeEventSource{events: []Event{
		{Name: EventNFTPurchased, TransactionHash: "0xaaa", BlockNumber: 1, Values: map[string]interface{}{"tokenId": big.NewInt(7)}},
		{Name: EventNFTPurchased, TransactionHash: "0xbbb", BlockNumber: 2, Values: map[string]interface{}{"tokenId": big.NewInt(9)}},
	}}
	r := NewIdentifierResolver(testLogger(t), source)

	id, err := r.Resolve(context.Background(), EventNFTPurchased, "0xBBB", "tokenId")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "9" {
		t.Fatalf("resolved id: want=9 got=%s", id)
	}
}

func TestResolverFallsThroughKeys(t *testing.T) {
	source := &fakeEventSource{events: []Event{
		{Name: EventAssetPurchased, TransactionHash: "0xccc", BlockNumber: 3, Values: map[string]interface{}{"transactionId": big.NewInt(12)}},
	}}
	r := NewIdentifierResolver(testLogger(t), source)

	id, err := r.Resolve(context.Background(), EventAssetPurchased, "0xccc", "tokenId", "transactionId")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "12" {
		t.Fatalf("resolved id: want=12 got=%s", id)
	}
}

func TestResolverMissIsUnresolved(t *testing.T) {
	source := &fakeEventSource{events: []Event{
		{Name: EventNFTPurchased, TransactionHash: "0xaaa", BlockNumber: 1, Values: map[string]interface{}{"tokenId": big.NewInt(7)}},
	}}
	r := NewIdentifierResolver(testLogger(t), source)

	_, err := r.Resolve(context.Background(), EventNFTPurchased, "0xdead", "tokenId")
	if !IsUnresolvedIdentifier(err) {
		t.Fatalf("want UnresolvedIdentifierError, got %v", err)
	}
}

func TestResolverPropagatesSourceError(t *testing.T) {
	source := &fakeEventSource{err: errors.New("provider down")}
	r := NewIdentifierResolver(testLogger(t), source)

	_, err := r.Resolve(context.Background(), EventNFTPurchased, "0xaaa", "tokenId")
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsUnresolvedIdentifier(err) {
		t.Fatalf("source failure must not masquerade as an unresolved identifier")
	}
}

func TestSameHash(t *testing.T) {
	if !SameHash("0xABCdef", "abcdef") {
		t.Fatalf("hash comparison should ignore case and 0x prefix")
	}
	if SameHash("0xabc", "0xdef") {
		t.Fatalf("distinct hashes reported equal")
	}
}

func TestEventValueRendering(t *testing.T) {
	ev := Event{Values: map[string]interface{}{
		"tokenId": big.NewInt(42),
		"label":   "meme",
	}}
	if v, ok := ev.Value("tokenId"); !ok || v != "42" {
		t.Fatalf("tokenId: want=42 got=%q ok=%v", v, ok)
	}
	if v, ok := ev.Value("label"); !ok || v != "meme" {
		t.Fatalf("label: want=meme got=%q ok=%v", v, ok)
	}
	if _, ok := ev.Value("missing"); ok {
		t.Fatalf("missing key reported present")
	}
}

func TestReceiptEventValue(t *testing.T) {
	r := &Receipt{Events: []Event{
		{Name: EventAssetListed, Values: map[string]interface{}{"assetId": big.NewInt(3)}},
		{Name: EventNFTPurchased, Values: map[string]interface{}{"tokenId": big.NewInt(5)}},
	}}
	if v, ok := r.EventValue(EventNFTPurchased, "transactionId", "tokenId"); !ok || v != "5" {
		t.Fatalf("EventValue: want=5 got=%q ok=%v", v, ok)
	}
	if _, ok := r.EventValue("NoSuchEvent", "tokenId"); ok {
		t.Fatalf("unknown event reported present")
	}
	var nilReceipt *Receipt
	if _, ok := nilReceipt.EventValue(EventNFTPurchased, "tokenId"); ok {
		t.Fatalf("nil receipt reported a value")
	}
}
