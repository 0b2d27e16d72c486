package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mememonize/backend/internal/ledger"
	"github.com/mememonize/backend/internal/logger"
	"github.com/mememonize/backend/internal/store"
	"github.com/mememonize/backend/internal/types"
)

// Resolver recovers a canonical ledger identifier from a transaction hash
// via the contract's event history.
type Resolver interface {
	Resolve(ctx context.Context, eventName, transactionHash string, idKeys ...string) (string, error)
}

// Intents accepted by the coordinator.

type ListIntent struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

type MintIntent struct {
	Recipient   string          `json:"recipient"`
	TokenURI    string          `json:"token_uri"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

type PurchaseIntent struct {
	// AssetID is the off-chain surrogate id of the asset being bought.
	AssetID uuid.UUID `json:"asset_id"`
	// Price overrides the stored asking price when set; zero means "pay the
	// asking price".
	Price decimal.Decimal `json:"price"`
}

// ResyncInput re-runs the purchase projection for an already-confirmed
// ledger transaction. It must be idempotent against a store that enforces
// lookup-before-create.
type ResyncInput struct {
	AssetID         uuid.UUID       `json:"asset_id"`
	BuyerAddress    string          `json:"buyer_address"`
	Price           decimal.Decimal `json:"price"`
	TransactionHash string          `json:"transaction_hash"`
	LedgerID        string          `json:"ledger_id,omitempty"`
}

// Coordinator drives each user intent through a single sequential state
// machine: Idle -> LedgerPending -> LedgerConfirmed -> ProjectionPending ->
// terminal. The ledger write is always attempted, and its outcome known,
// before any off-chain write, never the reverse. Errors before ledger
// confirmation are hard failures; errors after it are soft warnings on an
// operation that still reports success.
type Coordinator struct {
	log      *logger.Logger
	invoker  ledger.Invoker
	resolver Resolver
	records  store.Client
	desc     ledger.Descriptor
}

func NewCoordinator(baseLog *logger.Logger, invoker ledger.Invoker, resolver Resolver, records store.Client, desc ledger.Descriptor) *Coordinator {
	return &Coordinator{
		log:      baseLog.With("component", "ReconciliationCoordinator"),
		invoker:  invoker,
		resolver: resolver,
		records:  records,
		desc:     desc,
	}
}

func abort(hash string, err error) (*Outcome, error) {
	return &Outcome{
		Status:          StatusAborted,
		TransactionHash: hash,
		ErrorDetail:     err.Error(),
	}, err
}

// List puts a new asset on the ledger and projects it into the record store.
func (c *Coordinator) List(ctx context.Context, intent ListIntent) (*Outcome, error) {
	account, err := c.invoker.ActiveAccount()
	if err != nil {
		return abort("", err)
	}
	priceWei, err := ledger.EthToWei(intent.Price)
	if err != nil {
		return abort("", err)
	}

	receipt, err := c.invoker.Invoke(ctx, ledger.MethodListAsset, nil, intent.Name, priceWei)
	if err != nil {
		hash := ""
		if receipt != nil {
			hash = receipt.TransactionHash
		}
		return abort(hash, err)
	}

	outcome := &Outcome{LedgerSucceeded: true, TransactionHash: receipt.TransactionHash}
	tokenID, ok := c.canonicalID(ctx, receipt, c.desc.ListEvent, c.desc.ListIDKeys, outcome)
	if !ok {
		return outcome, nil
	}
	outcome.ResolvedID = tokenID

	_, err = c.records.CreateAsset(ctx, store.CreateAssetInput{
		Name:         intent.Name,
		Description:  intent.Description,
		Price:        intent.Price,
		ImageURL:     intent.ImageURL,
		Category:     intent.Category,
		TokenID:      tokenID,
		OwnerAddress: account,
		IsAvailable:  true,
	})
	if err != nil {
		return c.drift(outcome, "asset record not created", err), nil
	}

	outcome.Status = StatusReconciled
	outcome.ProjectionSucceeded = true
	return outcome, nil
}

// Mint mints a token to a recipient and projects the new asset.
func (c *Coordinator) Mint(ctx context.Context, intent MintIntent) (*Outcome, error) {
	recipient, err := ledger.ParseAddress(intent.Recipient)
	if err != nil {
		return abort("", err)
	}
	priceWei, err := ledger.EthToWei(intent.Price)
	if err != nil {
		return abort("", err)
	}

	receipt, err := c.invoker.Invoke(ctx, ledger.MethodMintNFT, nil, recipient, intent.TokenURI, priceWei)
	if err != nil {
		hash := ""
		if receipt != nil {
			hash = receipt.TransactionHash
		}
		return abort(hash, err)
	}

	outcome := &Outcome{LedgerSucceeded: true, TransactionHash: receipt.TransactionHash}
	tokenID, ok := c.canonicalID(ctx, receipt, c.desc.MintEvent, c.desc.MintIDKeys, outcome)
	if !ok {
		return outcome, nil
	}
	outcome.ResolvedID = tokenID

	_, err = c.records.CreateAsset(ctx, store.CreateAssetInput{
		Name:         intent.Name,
		Description:  intent.Description,
		Price:        intent.Price,
		ImageURL:     intent.ImageURL,
		Category:     intent.Category,
		TokenID:      tokenID,
		OwnerAddress: strings.ToLower(intent.Recipient),
		IsAvailable:  true,
	})
	if err != nil {
		return c.drift(outcome, "asset record not created", err), nil
	}

	outcome.Status = StatusReconciled
	outcome.ProjectionSucceeded = true
	return outcome, nil
}

// Purchase buys an asset through the escrow contract, then projects the
// outcome: buyer upsert, transaction create, best-effort availability flip,
// in that order, with no compensation for partial success.
func (c *Coordinator) Purchase(ctx context.Context, intent PurchaseIntent) (*Outcome, error) {
	account, err := c.invoker.ActiveAccount()
	if err != nil {
		return abort("", err)
	}

	// Read-only lookup; no off-chain state changes before ledger confirmation.
	asset, err := c.records.GetAsset(ctx, intent.AssetID)
	if err != nil {
		return abort("", err)
	}
	if asset == nil {
		return abort("", fmt.Errorf("reconcile: asset %s not found", intent.AssetID))
	}
	if asset.TokenID == "" {
		return abort("", fmt.Errorf("reconcile: asset %s has no ledger token id", intent.AssetID))
	}

	price := intent.Price
	if price.IsZero() {
		price = asset.Price
	}
	priceWei, err := ledger.EthToWei(price)
	if err != nil {
		return abort("", err)
	}
	ledgerAssetID, err := ledger.ParseCanonicalID(asset.TokenID)
	if err != nil {
		return abort("", err)
	}

	receipt, err := c.invoker.Invoke(ctx, c.desc.PurchaseMethod, priceWei, ledgerAssetID)
	if err != nil {
		hash := ""
		if receipt != nil {
			hash = receipt.TransactionHash
		}
		return abort(hash, err)
	}

	outcome := &Outcome{LedgerSucceeded: true, TransactionHash: receipt.TransactionHash}
	canonicalID, ok := c.canonicalID(ctx, receipt, c.desc.PurchaseEvent, c.desc.PurchaseIDKeys, outcome)
	if !ok {
		return outcome, nil
	}
	outcome.ResolvedID = canonicalID

	c.projectPurchase(ctx, asset, account, price, receipt.TransactionHash, canonicalID, outcome)
	return outcome, nil
}

// Complete settles a pending transaction on the ledger and marks the
// off-chain row completed. Ref may be the canonical transaction id or, when
// only the purchase hash is known, the 0x-prefixed hash.
func (c *Coordinator) Complete(ctx context.Context, ref string) (*Outcome, error) {
	return c.settle(ctx, ref, ledger.MethodCompleteTransaction, types.TransactionStatusCompleted)
}

// Cancel voids a pending transaction on the ledger and marks the off-chain
// row cancelled.
func (c *Coordinator) Cancel(ctx context.Context, ref string) (*Outcome, error) {
	return c.settle(ctx, ref, ledger.MethodCancelTransaction, types.TransactionStatusCancelled)
}

func (c *Coordinator) settle(ctx context.Context, ref, method, status string) (*Outcome, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return abort("", fmt.Errorf("reconcile: transaction reference required"))
	}

	canonicalID := ref
	purchaseHash := ""
	if strings.HasPrefix(ref, "0x") {
		// Only the purchase hash is known; derive the id the contract wants.
		// Resolution failure here is fatal but pre-ledger for this intent, so
		// it propagates as a plain failure.
		purchaseHash = ref
		resolved, err := c.resolver.Resolve(ctx, c.desc.PurchaseEvent, ref, c.desc.PurchaseIDKeys...)
		if err != nil {
			return abort("", err)
		}
		canonicalID = resolved
	}
	idArg, err := ledger.ParseCanonicalID(canonicalID)
	if err != nil {
		return abort("", err)
	}

	receipt, err := c.invoker.Invoke(ctx, method, nil, idArg)
	if err != nil {
		hash := ""
		if receipt != nil {
			hash = receipt.TransactionHash
		}
		return abort(hash, err)
	}

	outcome := &Outcome{
		LedgerSucceeded: true,
		TransactionHash: receipt.TransactionHash,
		ResolvedID:      canonicalID,
	}

	row, err := c.locateTransaction(ctx, purchaseHash, canonicalID)
	if err != nil {
		return c.drift(outcome, "off-chain transaction lookup failed", err), nil
	}
	if row == nil {
		return c.drift(outcome, "no off-chain transaction record matches", fmt.Errorf("reconcile: no record for %s", ref)), nil
	}

	if _, err := c.records.UpdateTransactionStatus(ctx, row.ID, status); err != nil {
		return c.drift(outcome, "transaction status not updated", err), nil
	}

	outcome.Status = StatusReconciled
	outcome.ProjectionSucceeded = true
	return outcome, nil
}

// Resync re-runs the purchase projection for a transaction hash whose ledger
// effect is already durable. Safe to invoke repeatedly: an existing row for
// the hash short-circuits the create.
func (c *Coordinator) Resync(ctx context.Context, in ResyncInput) (*Outcome, error) {
	in.TransactionHash = strings.TrimSpace(in.TransactionHash)
	if in.TransactionHash == "" {
		return abort("", fmt.Errorf("reconcile: transaction hash required"))
	}

	outcome := &Outcome{
		LedgerSucceeded: true,
		TransactionHash: in.TransactionHash,
		ResolvedID:      in.LedgerID,
	}

	existing, err := c.records.GetTransactionByHash(ctx, in.TransactionHash)
	if err != nil {
		return c.drift(outcome, "off-chain transaction lookup failed", err), nil
	}
	if existing != nil {
		// Row already projected; only the availability flip may still be owed.
		c.flipAvailability(ctx, existing.AssetID, outcome)
		outcome.Status = StatusReconciled
		outcome.ProjectionSucceeded = true
		return outcome, nil
	}

	asset, err := c.records.GetAsset(ctx, in.AssetID)
	if err != nil {
		return c.drift(outcome, "asset lookup failed", err), nil
	}
	if asset == nil {
		return c.drift(outcome, "asset record missing", fmt.Errorf("reconcile: asset %s not found", in.AssetID)), nil
	}

	price := in.Price
	if price.IsZero() {
		price = asset.Price
	}
	c.projectPurchase(ctx, asset, strings.ToLower(in.BuyerAddress), price, in.TransactionHash, in.LedgerID, outcome)
	return outcome, nil
}

// projectPurchase issues the off-chain writes for a confirmed purchase in
// the fixed order: account upsert, transaction create, asset update. A
// failed step never rolls back earlier ones; partial projection is a
// documented outcome, not a bug.
func (c *Coordinator) projectPurchase(ctx context.Context, asset *types.Asset, buyer string, price decimal.Decimal, hash, canonicalID string, outcome *Outcome) {
	if _, err := c.ensureUser(ctx, buyer); err != nil {
		c.drift(outcome, "buyer record not created", err)
		return
	}

	_, err := c.records.CreateTransaction(ctx, store.CreateTransactionInput{
		AssetID:         asset.ID,
		BuyerAddress:    buyer,
		SellerAddress:   strings.ToLower(asset.OwnerAddress),
		Price:           price,
		TransactionHash: hash,
		LedgerID:        canonicalID,
		Status:          types.TransactionStatusPending,
	})
	if err != nil {
		c.drift(outcome, "transaction record not created", err)
		return
	}

	// The transaction row is the primary signal of state; the availability
	// flag is best effort and its failure is swallowed.
	c.flipAvailability(ctx, asset.ID, outcome)

	outcome.Status = StatusReconciled
	outcome.ProjectionSucceeded = true
}

// ensureUser is the lazy upsert: a not-found lookup is the expected create
// trigger, not an error. Dedup is the store's job; this only does the
// lookup-before-create.
func (c *Coordinator) ensureUser(ctx context.Context, walletAddress string) (*types.User, error) {
	existing, err := c.records.GetUserByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	username := "User_" + shortAddress(walletAddress)
	return c.records.CreateUser(ctx, store.CreateUserInput{
		WalletAddress: walletAddress,
		Username:      username,
	})
}

func (c *Coordinator) flipAvailability(ctx context.Context, assetID uuid.UUID, outcome *Outcome) {
	if err := c.records.SetAssetAvailability(ctx, assetID, false); err != nil {
		c.log.Warn("Asset availability update failed; transaction record remains the primary signal",
			"asset_id", assetID.String(), "error", err)
		outcome.warn("asset availability not updated: " + err.Error())
	}
}

// canonicalID pulls the expected identifier out of the receipt's events,
// falling back to the event-history resolver. On resolution failure the
// ledger effect already happened, so the outcome reports on-chain success
// with degraded status instead of a plain failure.
func (c *Coordinator) canonicalID(ctx context.Context, receipt *ledger.Receipt, eventName string, idKeys []string, outcome *Outcome) (string, bool) {
	if id, ok := receipt.EventValue(eventName, idKeys...); ok && id != "" {
		return id, true
	}
	id, err := c.resolver.Resolve(ctx, eventName, receipt.TransactionHash, idKeys...)
	if err != nil {
		c.log.Error("Ledger call confirmed but canonical id could not be resolved",
			"event", eventName, "tx_hash", receipt.TransactionHash, "error", err)
		outcome.Status = StatusReconciledWithDrift
		outcome.ErrorDetail = err.Error()
		outcome.warn("confirmed on-chain, but its identifier could not be resolved; status unknown")
		return "", false
	}
	return id, true
}

func (c *Coordinator) drift(outcome *Outcome, what string, err error) *Outcome {
	c.log.Warn("Projection failed after ledger confirmation; operation succeeds with drift",
		"detail", what, "tx_hash", outcome.TransactionHash, "error", err)
	outcome.Status = StatusReconciledWithDrift
	outcome.ErrorDetail = err.Error()
	outcome.warn(what + ": " + err.Error())
	return outcome
}

func (c *Coordinator) locateTransaction(ctx context.Context, purchaseHash, canonicalID string) (*types.Transaction, error) {
	if purchaseHash != "" {
		return c.records.GetTransactionByHash(ctx, purchaseHash)
	}
	// Only the canonical id is known; the store indexes by hash, so scan is
	// not available through the client. Callers that hold the off-chain row
	// id update it through the resource API directly.
	return c.records.GetTransactionByLedgerID(ctx, canonicalID)
}

func shortAddress(address string) string {
	address = strings.TrimPrefix(strings.ToLower(address), "0x")
	if len(address) > 8 {
		address = address[:8]
	}
	return address
}
