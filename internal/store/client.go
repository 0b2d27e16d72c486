package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mememonize/backend/internal/logger"
	"github.com/mememonize/backend/internal/types"
	"github.com/mememonize/backend/internal/utils"
)

// Client is the typed wrapper over the record store's resource API. It does
// not retry: retry policy belongs to the caller, and the reconciliation
// coordinator deliberately has none.
type Client interface {
	GetAsset(ctx context.Context, assetID uuid.UUID) (*types.Asset, error)
	CreateAsset(ctx context.Context, in CreateAssetInput) (*types.Asset, error)
	SetAssetAvailability(ctx context.Context, assetID uuid.UUID, available bool) error

	GetUserByWallet(ctx context.Context, walletAddress string) (*types.User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*types.User, error)

	CreateTransaction(ctx context.Context, in CreateTransactionInput) (*types.Transaction, error)
	GetTransactionByHash(ctx context.Context, transactionHash string) (*types.Transaction, error)
	GetTransactionByLedgerID(ctx context.Context, ledgerID string) (*types.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, transactionID uuid.UUID, status string) (*types.Transaction, error)
}

type CreateAssetInput struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"image_url,omitempty"`
	Category     string          `json:"category,omitempty"`
	TokenID      string          `json:"token_id,omitempty"`
	OwnerAddress string          `json:"owner_address,omitempty"`
	IsAvailable  bool            `json:"is_available"`
}

type CreateUserInput struct {
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
}

type CreateTransactionInput struct {
	AssetID         uuid.UUID       `json:"asset_id"`
	BuyerAddress    string          `json:"buyer_address,omitempty"`
	SellerAddress   string          `json:"seller_address,omitempty"`
	Price           decimal.Decimal `json:"price"`
	TransactionHash string          `json:"transaction_hash,omitempty"`
	LedgerID        string          `json:"ledger_id,omitempty"`
	Status          string          `json:"status,omitempty"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		BaseURL: utils.GetEnv("RECORD_STORE_BASE_URL", "http://localhost:8000/api", log),
		Timeout: utils.GetEnvAsDuration("RECORD_STORE_TIMEOUT", 10*time.Second, log),
	}
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func New(baseLog *logger.Logger, cfg Config) (Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("store: missing RECORD_STORE_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &client{
		log:        baseLog.With("client", "RecordStoreClient"),
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv(log))
}

func (c *client) GetAsset(ctx context.Context, assetID uuid.UUID) (*types.Asset, error) {
	return doJSON[types.Asset](c, ctx, http.MethodGet, "/assets/"+assetID.String(), nil)
}

func (c *client) CreateAsset(ctx context.Context, in CreateAssetInput) (*types.Asset, error) {
	return doJSON[types.Asset](c, ctx, http.MethodPost, "/assets", in)
}

func (c *client) SetAssetAvailability(ctx context.Context, assetID uuid.UUID, available bool) error {
	body := map[string]interface{}{"is_available": available}
	_, err := doJSON[types.Asset](c, ctx, http.MethodPut, "/assets/"+assetID.String()+"/availability", body)
	return err
}

func (c *client) GetUserByWallet(ctx context.Context, walletAddress string) (*types.User, error) {
	path := "/users/wallet/" + url.PathEscape(strings.ToLower(walletAddress))
	user, err := doJSON[types.User](c, ctx, http.MethodGet, path, nil)
	if IsNotFound(err) {
		// Expected miss: users are created lazily on first interaction.
		return nil, nil
	}
	return user, err
}

func (c *client) CreateUser(ctx context.Context, in CreateUserInput) (*types.User, error) {
	in.WalletAddress = strings.ToLower(in.WalletAddress)
	return doJSON[types.User](c, ctx, http.MethodPost, "/users", in)
}

func (c *client) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*types.Transaction, error) {
	return doJSON[types.Transaction](c, ctx, http.MethodPost, "/transactions", in)
}

func (c *client) GetTransactionByHash(ctx context.Context, transactionHash string) (*types.Transaction, error) {
	path := "/transactions/hash/" + url.PathEscape(transactionHash)
	row, err := doJSON[types.Transaction](c, ctx, http.MethodGet, path, nil)
	if IsNotFound(err) {
		return nil, nil
	}
	return row, err
}

func (c *client) GetTransactionByLedgerID(ctx context.Context, ledgerID string) (*types.Transaction, error) {
	path := "/transactions/ledger/" + url.PathEscape(ledgerID)
	row, err := doJSON[types.Transaction](c, ctx, http.MethodGet, path, nil)
	if IsNotFound(err) {
		return nil, nil
	}
	return row, err
}

func (c *client) UpdateTransactionStatus(ctx context.Context, transactionID uuid.UUID, status string) (*types.Transaction, error) {
	path := fmt.Sprintf("/transactions/%s/status?status=%s", transactionID.String(), url.QueryEscape(status))
	return doJSON[types.Transaction](c, ctx, http.MethodPut, path, nil)
}

type errorBody struct {
	Detail string `json:"detail"`
}

func doJSON[T any](c *client, ctx context.Context, method, path string, body interface{}) (*T, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("store: encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("store: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StoreUnavailableError{StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &StoreUnavailableError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server error: %s", strings.TrimSpace(string(raw))),
		}
	case resp.StatusCode >= 400:
		detail := strings.TrimSpace(string(raw))
		var eb errorBody
		if err := json.Unmarshal(raw, &eb); err == nil && strings.TrimSpace(eb.Detail) != "" {
			detail = eb.Detail
		}
		return nil, &StoreRejectedError{StatusCode: resp.StatusCode, Detail: detail}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("store: decoding response: %w", err)
	}
	return &out, nil
}
