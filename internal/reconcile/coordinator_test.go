package reconcile

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mememonize/backend/internal/ledger"
	"github.com/mememonize/backend/internal/logger"
	"github.com/mememonize/backend/internal/store"
	"github.com/mememonize/backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return log
}

// recorder captures the cross-component call order so tests can assert the
// ledger write always precedes off-chain writes.
type recorder struct {
	calls []string
}

func (r *recorder) record(name string) { r.calls = append(r.calls, name) }

type fakeInvoker struct {
	rec        *recorder
	account    string
	accountErr error
	receipt    *ledger.Receipt
	invokeErr  error

	lastMethod string
	lastValue  *big.Int
	lastArgs   []interface{}
}

func (f *fakeInvoker) ActiveAccount() (string, error) {
	if f.accountErr != nil {
		return "", f.accountErr
	}
	return f.account, nil
}

func (f *fakeInvoker) Invoke(ctx context.Context, method string, value *big.Int, args ...interface{}) (*ledger.Receipt, error) {
	f.rec.record("invoke:" + method)
	f.lastMethod = method
	f.lastValue = value
	f.lastArgs = args
	return f.receipt, f.invokeErr
}

type fakeResolver struct {
	id     string
	err    error
	called int
}

func (f *fakeResolver) Resolve(ctx context.Context, eventName, transactionHash string, idKeys ...string) (string, error) {
	f.called++
	return f.id, f.err
}

type fakeStore struct {
	rec *recorder

	asset       *types.Asset
	user        *types.User
	transaction *types.Transaction

	getAssetErr          error
	createUserErr        error
	createTransactionErr error
	availabilityErr      error
	updateStatusErr      error

	lastTransactionInput store.CreateTransactionInput
	lastStatus           string
}

func (f *fakeStore) GetAsset(ctx context.Context, assetID uuid.UUID) (*types.Asset, error) {
	f.rec.record("store:get_asset")
	return f.asset, f.getAssetErr
}

func (f *fakeStore) CreateAsset(ctx context.Context, in store.CreateAssetInput) (*types.Asset, error) {
	f.rec.record("store:create_asset")
	return &types.Asset{Name: in.Name, TokenID: in.TokenID}, nil
}

func (f *fakeStore) SetAssetAvailability(ctx context.Context, assetID uuid.UUID, available bool) error {
	f.rec.record("store:set_availability")
	return f.availabilityErr
}

func (f *fakeStore) GetUserByWallet(ctx context.Context, walletAddress string) (*types.User, error) {
	f.rec.record("store:get_user")
	return f.user, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, in store.CreateUserInput) (*types.User, error) {
	f.rec.record("store:create_user")
	if f.createUserErr != nil {
		return nil, f.createUserErr
	}
	return &types.User{WalletAddress: in.WalletAddress, Username: in.Username}, nil
}

func (f *fakeStore) CreateTransaction(ctx context.Context, in store.CreateTransactionInput) (*types.Transaction, error) {
	f.rec.record("store:create_transaction")
	f.lastTransactionInput = in
	if f.createTransactionErr != nil {
		return nil, f.createTransactionErr
	}
	return &types.Transaction{AssetID: in.AssetID, TransactionHash: in.TransactionHash, Status: in.Status}, nil
}

func (f *fakeStore) GetTransactionByHash(ctx context.Context, transactionHash string) (*types.Transaction, error) {
	f.rec.record("store:get_transaction")
	return f.transaction, nil
}

func (f *fakeStore) GetTransactionByLedgerID(ctx context.Context, ledgerID string) (*types.Transaction, error) {
	f.rec.record("store:get_transaction_by_ledger_id")
	return f.transaction, nil
}

func (f *fakeStore) UpdateTransactionStatus(ctx context.Context, transactionID uuid.UUID, status string) (*types.Transaction, error) {
	f.rec.record("store:update_status")
	f.lastStatus = status
	if f.updateStatusErr != nil {
		return nil, f.updateStatusErr
	}
	return &types.Transaction{Status: status}, nil
}

func writeCalls(rec *recorder) []string {
	var out []string
	for _, call := range rec.calls {
		switch call {
		case "store:create_asset", "store:create_user", "store:create_transaction", "store:set_availability", "store:update_status":
			out = append(out, call)
		}
	}
	return out
}

func newFixture(t *testing.T) (*Coordinator, *fakeInvoker, *fakeResolver, *fakeStore, *recorder) {
	t.Helper()
	rec := &recorder{}
	desc, err := ledger.DescriptorFor("v2")
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	invoker := &fakeInvoker{rec: rec, account: "0xbuyer"}
	resolver := &fakeResolver{}
	records := &fakeStore{rec: rec}
	c := NewCoordinator(testLogger(t), invoker, resolver, records, desc)
	return c, invoker, resolver, records, rec
}

func availableAsset() *types.Asset {
	return &types.Asset{
		ID:           uuid.New(),
		Name:         "Doge Classic",
		Price:        decimal.RequireFromString("1.5"),
		TokenID:      "42",
		OwnerAddress: "0xseller",
		IsAvailable:  true,
	}
}

func purchaseReceipt(tokenID int64) *ledger.Receipt {
	return &ledger.Receipt{
		TransactionHash: "0xhash",
		Succeeded:       true,
		Events: []ledger.Event{{
			Name:            ledger.EventNFTPurchased,
			TransactionHash: "0xhash",
			Values:          map[string]interface{}{"tokenId": big.NewInt(tokenID)},
		}},
	}
}

// Receipt carries the canonical id: no resolver call, full projection,
// terminal state Reconciled.
func TestPurchaseReconciled(t *testing.T) {
	c, invoker, resolver, records, _ := newFixture(t)
	records.asset = availableAsset()
	invoker.receipt = purchaseReceipt(42)

	outcome, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: records.asset.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusReconciled {
		t.Fatalf("status: want=%s got=%s", StatusReconciled, outcome.Status)
	}
	if !outcome.LedgerSucceeded || !outcome.ProjectionSucceeded {
		t.Fatalf("want both phases succeeded, got ledger=%v projection=%v", outcome.LedgerSucceeded, outcome.ProjectionSucceeded)
	}
	if outcome.ResolvedID != "42" {
		t.Fatalf("resolved id: want=42 got=%s", outcome.ResolvedID)
	}
	if resolver.called != 0 {
		t.Fatalf("resolver must not run when the receipt carries the id, ran %d times", resolver.called)
	}
	if records.lastTransactionInput.TransactionHash != "0xhash" {
		t.Fatalf("transaction hash: want=0xhash got=%s", records.lastTransactionInput.TransactionHash)
	}
	if records.lastTransactionInput.Status != types.TransactionStatusPending {
		t.Fatalf("status: want=%s got=%s", types.TransactionStatusPending, records.lastTransactionInput.Status)
	}
}

// A ledger send failure aborts with zero off-chain writes.
func TestPurchaseAbortsOnSendFailure(t *testing.T) {
	c, invoker, _, records, rec := newFixture(t)
	records.asset = availableAsset()
	invoker.invokeErr = &ledger.SendError{Method: ledger.MethodPurchaseNFT, Err: errors.New("signature rejected")}

	outcome, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: records.asset.ID})
	if err == nil {
		t.Fatalf("expected error")
	}
	if outcome.Status != StatusAborted {
		t.Fatalf("status: want=%s got=%s", StatusAborted, outcome.Status)
	}
	if writes := writeCalls(rec); len(writes) != 0 {
		t.Fatalf("off-chain writes after aborted ledger call: %v", writes)
	}
}

// Ledger confirmed but the store is down: success with drift, not a failure.
func TestPurchaseDriftOnStoreOutage(t *testing.T) {
	c, invoker, _, records, _ := newFixture(t)
	records.asset = availableAsset()
	invoker.receipt = purchaseReceipt(42)
	records.createTransactionErr = &store.StoreUnavailableError{StatusCode: 503, Err: errors.New("service unavailable")}

	outcome, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: records.asset.ID})
	if err != nil {
		t.Fatalf("drift must not surface as an error, got %v", err)
	}
	if outcome.Status != StatusReconciledWithDrift {
		t.Fatalf("status: want=%s got=%s", StatusReconciledWithDrift, outcome.Status)
	}
	if !outcome.LedgerSucceeded {
		t.Fatalf("ledger phase must report success")
	}
	if outcome.ProjectionSucceeded {
		t.Fatalf("projection must report failure")
	}
	if len(outcome.Warnings) == 0 {
		t.Fatalf("expected a warning for the caller")
	}
}

// A raw hash reference is resolved to the canonical id before settlement.
func TestCompleteResolvesHashReference(t *testing.T) {
	c, invoker, resolver, records, _ := newFixture(t)
	resolver.id = "17"
	invoker.receipt = &ledger.Receipt{TransactionHash: "0xsettle", Succeeded: true}
	records.transaction = &types.Transaction{ID: uuid.New(), Status: types.TransactionStatusPending}

	outcome, err := c.Complete(context.Background(), "0xpurchasehash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver.called != 1 {
		t.Fatalf("resolver calls: want=1 got=%d", resolver.called)
	}
	if invoker.lastMethod != ledger.MethodCompleteTransaction {
		t.Fatalf("method: want=%s got=%s", ledger.MethodCompleteTransaction, invoker.lastMethod)
	}
	if len(invoker.lastArgs) != 1 {
		t.Fatalf("args: want=1 got=%d", len(invoker.lastArgs))
	}
	id, ok := invoker.lastArgs[0].(*big.Int)
	if !ok || id.Int64() != 17 {
		t.Fatalf("contract argument: want=17 got=%v", invoker.lastArgs[0])
	}
	if outcome.Status != StatusReconciled {
		t.Fatalf("status: want=%s got=%s", StatusReconciled, outcome.Status)
	}
	if records.lastStatus != types.TransactionStatusCompleted {
		t.Fatalf("off-chain status: want=%s got=%s", types.TransactionStatusCompleted, records.lastStatus)
	}
}

// A would-revert estimation error aborts before anything is sent.
func TestPurchaseAbortsOnWouldRevert(t *testing.T) {
	c, invoker, _, records, rec := newFixture(t)
	records.asset = availableAsset()
	invoker.invokeErr = &ledger.WouldRevertError{Method: ledger.MethodPurchaseNFT, Err: errors.New("execution reverted")}

	outcome, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: records.asset.ID})
	if !ledger.IsWouldRevert(err) {
		t.Fatalf("want WouldRevertError, got %v", err)
	}
	if outcome.Status != StatusAborted {
		t.Fatalf("status: want=%s got=%s", StatusAborted, outcome.Status)
	}
	if writes := writeCalls(rec); len(writes) != 0 {
		t.Fatalf("off-chain writes after revert: %v", writes)
	}
}

// The projection runs in fixed order after the ledger write: account upsert,
// transaction create, availability flip.
func TestPurchaseProjectionOrder(t *testing.T) {
	c, invoker, _, records, rec := newFixture(t)
	records.asset = availableAsset()
	invoker.receipt = purchaseReceipt(42)

	if _, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: records.asset.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"store:get_asset",
		"invoke:" + ledger.MethodPurchaseNFT,
		"store:get_user",
		"store:create_user",
		"store:create_transaction",
		"store:set_availability",
	}
	if len(rec.calls) != len(want) {
		t.Fatalf("call sequence: want=%v got=%v", want, rec.calls)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Fatalf("call %d: want=%s got=%s (full: %v)", i, want[i], rec.calls[i], rec.calls)
		}
	}
}

// A failed availability flip is swallowed: the transaction row is the primary
// signal and the outcome stays Reconciled.
func TestPurchaseAvailabilityFlipFailureIsSwallowed(t *testing.T) {
	c, invoker, _, records, _ := newFixture(t)
	records.asset = availableAsset()
	invoker.receipt = purchaseReceipt(42)
	records.availabilityErr = &store.StoreUnavailableError{StatusCode: 502, Err: errors.New("bad gateway")}

	outcome, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: records.asset.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusReconciled {
		t.Fatalf("status: want=%s got=%s", StatusReconciled, outcome.Status)
	}
	if len(outcome.Warnings) != 1 {
		t.Fatalf("warnings: want=1 got=%v", outcome.Warnings)
	}
}

// A buyer-upsert failure after confirmation degrades to drift and stops the
// projection; the later steps never run.
func TestPurchaseDriftOnUserUpsertFailure(t *testing.T) {
	c, invoker, _, records, rec := newFixture(t)
	records.asset = availableAsset()
	invoker.receipt = purchaseReceipt(42)
	records.createUserErr = &store.StoreUnavailableError{StatusCode: 500, Err: errors.New("boom")}

	outcome, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: records.asset.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusReconciledWithDrift {
		t.Fatalf("status: want=%s got=%s", StatusReconciledWithDrift, outcome.Status)
	}
	for _, call := range rec.calls {
		if call == "store:create_transaction" || call == "store:set_availability" {
			t.Fatalf("projection continued past a failed step: %v", rec.calls)
		}
	}
}

// When neither the receipt nor the event history yields the canonical id, the
// operation reports on-chain success with unknown off-chain status.
func TestPurchaseDriftOnUnresolvedIdentifier(t *testing.T) {
	c, invoker, resolver, records, rec := newFixture(t)
	records.asset = availableAsset()
	invoker.receipt = &ledger.Receipt{TransactionHash: "0xhash", Succeeded: true}
	resolver.err = &ledger.UnresolvedIdentifierError{TransactionHash: "0xhash", Event: ledger.EventNFTPurchased}

	outcome, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: records.asset.ID})
	if err != nil {
		t.Fatalf("post-confirmation resolution failure must not error, got %v", err)
	}
	if outcome.Status != StatusReconciledWithDrift {
		t.Fatalf("status: want=%s got=%s", StatusReconciledWithDrift, outcome.Status)
	}
	if !outcome.LedgerSucceeded {
		t.Fatalf("ledger phase must report success")
	}
	if writes := writeCalls(rec); len(writes) != 0 {
		t.Fatalf("projection ran without a canonical id: %v", writes)
	}
}

// Resync short-circuits when the row already exists; only the availability
// flip is re-attempted.
func TestResyncIdempotent(t *testing.T) {
	c, _, _, records, rec := newFixture(t)
	asset := availableAsset()
	records.asset = asset
	records.transaction = &types.Transaction{ID: uuid.New(), AssetID: asset.ID, TransactionHash: "0xhash"}

	outcome, err := c.Resync(context.Background(), ResyncInput{
		AssetID:         asset.ID,
		BuyerAddress:    "0xbuyer",
		TransactionHash: "0xhash",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusReconciled {
		t.Fatalf("status: want=%s got=%s", StatusReconciled, outcome.Status)
	}
	for _, call := range rec.calls {
		if call == "store:create_transaction" || call == "store:create_user" {
			t.Fatalf("resync re-created records for an existing row: %v", rec.calls)
		}
	}
}

// Resync of an unprojected hash performs the full projection without touching
// the ledger.
func TestResyncProjectsMissingRow(t *testing.T) {
	c, _, _, records, rec := newFixture(t)
	records.asset = availableAsset()

	outcome, err := c.Resync(context.Background(), ResyncInput{
		AssetID:         records.asset.ID,
		BuyerAddress:    "0xBuyer",
		Price:           decimal.RequireFromString("1.5"),
		TransactionHash: "0xhash",
		LedgerID:        "42",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusReconciled {
		t.Fatalf("status: want=%s got=%s", StatusReconciled, outcome.Status)
	}
	if records.lastTransactionInput.LedgerID != "42" {
		t.Fatalf("ledger id: want=42 got=%s", records.lastTransactionInput.LedgerID)
	}
	if records.lastTransactionInput.BuyerAddress != "0xbuyer" {
		t.Fatalf("buyer address must be lowercased, got %s", records.lastTransactionInput.BuyerAddress)
	}
	for _, call := range rec.calls {
		if call == "invoke:"+ledger.MethodPurchaseNFT {
			t.Fatalf("resync must not touch the ledger: %v", rec.calls)
		}
	}
}

// Purchase pays the asking price when the intent does not override it.
func TestPurchaseDefaultsToAskingPrice(t *testing.T) {
	c, invoker, _, records, _ := newFixture(t)
	records.asset = availableAsset()
	invoker.receipt = purchaseReceipt(42)

	if _, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: records.asset.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantWei, _ := ledger.EthToWei(records.asset.Price)
	if invoker.lastValue == nil || invoker.lastValue.Cmp(wantWei) != 0 {
		t.Fatalf("call value: want=%s got=%v", wantWei, invoker.lastValue)
	}
}

// No signing account is a hard failure before anything else happens.
func TestPurchaseAbortsWithoutAccount(t *testing.T) {
	c, invoker, _, _, rec := newFixture(t)
	invoker.accountErr = ledger.ErrNoAccount

	outcome, err := c.Purchase(context.Background(), PurchaseIntent{AssetID: uuid.New()})
	if !errors.Is(err, ledger.ErrNoAccount) {
		t.Fatalf("want ErrNoAccount, got %v", err)
	}
	if outcome.Status != StatusAborted {
		t.Fatalf("status: want=%s got=%s", StatusAborted, outcome.Status)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("no calls expected, got %v", rec.calls)
	}
}

// Settlement with an unresolvable hash is pre-ledger for this intent and
// therefore a hard failure.
func TestCompleteAbortsOnUnresolvableHash(t *testing.T) {
	c, _, resolver, _, rec := newFixture(t)
	resolver.err = &ledger.UnresolvedIdentifierError{TransactionHash: "0xdead", Event: ledger.EventNFTPurchased}

	outcome, err := c.Complete(context.Background(), "0xdead")
	if !ledger.IsUnresolvedIdentifier(err) {
		t.Fatalf("want UnresolvedIdentifierError, got %v", err)
	}
	if outcome.Status != StatusAborted {
		t.Fatalf("status: want=%s got=%s", StatusAborted, outcome.Status)
	}
	for _, call := range rec.calls {
		if call == "invoke:"+ledger.MethodCompleteTransaction {
			t.Fatalf("ledger call made despite failed resolution: %v", rec.calls)
		}
	}
}

// Cancel mirrors Complete with the cancelled terminal status.
func TestCancelUpdatesStatus(t *testing.T) {
	c, invoker, _, records, _ := newFixture(t)
	invoker.receipt = &ledger.Receipt{TransactionHash: "0xcancel", Succeeded: true}
	records.transaction = &types.Transaction{ID: uuid.New(), Status: types.TransactionStatusPending}

	outcome, err := c.Cancel(context.Background(), "23")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoker.lastMethod != ledger.MethodCancelTransaction {
		t.Fatalf("method: want=%s got=%s", ledger.MethodCancelTransaction, invoker.lastMethod)
	}
	if records.lastStatus != types.TransactionStatusCancelled {
		t.Fatalf("off-chain status: want=%s got=%s", types.TransactionStatusCancelled, records.lastStatus)
	}
	if outcome.Status != StatusReconciled {
		t.Fatalf("status: want=%s got=%s", StatusReconciled, outcome.Status)
	}
}

// List projects the new asset under the seller account with the resolved
// ledger id.
func TestListReconciled(t *testing.T) {
	c, invoker, _, _, rec := newFixture(t)
	invoker.account = "0xseller"
	invoker.receipt = &ledger.Receipt{
		TransactionHash: "0xlist",
		Succeeded:       true,
		Events: []ledger.Event{{
			Name:   ledger.EventAssetListed,
			Values: map[string]interface{}{"assetId": big.NewInt(3)},
		}},
	}

	outcome, err := c.List(context.Background(), ListIntent{
		Name:  "Pepe Rare",
		Price: decimal.RequireFromString("2"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != StatusReconciled {
		t.Fatalf("status: want=%s got=%s", StatusReconciled, outcome.Status)
	}
	if outcome.ResolvedID != "3" {
		t.Fatalf("resolved id: want=3 got=%s", outcome.ResolvedID)
	}
	want := []string{"invoke:" + ledger.MethodListAsset, "store:create_asset"}
	if len(rec.calls) != 2 || rec.calls[0] != want[0] || rec.calls[1] != want[1] {
		t.Fatalf("call sequence: want=%v got=%v", want, rec.calls)
	}
}

// A non-positive price never reaches the ledger.
func TestListRejectsNonPositivePrice(t *testing.T) {
	c, _, _, _, rec := newFixture(t)

	outcome, err := c.List(context.Background(), ListIntent{Name: "Freebie", Price: decimal.Zero})
	if err == nil {
		t.Fatalf("expected error")
	}
	if outcome.Status != StatusAborted {
		t.Fatalf("status: want=%s got=%s", StatusAborted, outcome.Status)
	}
	for _, call := range rec.calls {
		if call == "invoke:"+ledger.MethodListAsset {
			t.Fatalf("ledger call made with invalid price: %v", rec.calls)
		}
	}
}
