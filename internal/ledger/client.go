package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mememonize/backend/internal/logger"
)

const defaultFallbackGasLimit = 500_000

type Config struct {
	RPCURL           string
	ReadOnlyRPCURL   string
	ContractAddress  string
	ContractVersion  string
	SignerKeyHex     string
	FallbackGasLimit uint64
}

// Client wraps one connection to the ledger network. The connection is an
// explicit handle: the composition root calls Connect once at startup and
// passes the client down; nothing dials lazily on first use.
type Client struct {
	log  *logger.Logger
	cfg  Config
	desc Descriptor

	contractABI abi.ABI
	contract    common.Address

	eth      *ethclient.Client
	readOnly bool
	chainID  *big.Int

	key  *ecdsa.PrivateKey
	from common.Address
}

func NewClient(baseLog *logger.Logger, cfg Config) (*Client, error) {
	desc, err := DescriptorFor(cfg.ContractVersion)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		return nil, fmt.Errorf("ledger: parsing contract ABI: %w", err)
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("ledger: invalid contract address %q", cfg.ContractAddress)
	}
	if cfg.FallbackGasLimit == 0 {
		cfg.FallbackGasLimit = defaultFallbackGasLimit
	}

	c := &Client{
		log:         baseLog.With("client", "LedgerClient", "contract_version", desc.Version),
		cfg:         cfg,
		desc:        desc,
		contractABI: parsed,
		contract:    common.HexToAddress(cfg.ContractAddress),
	}

	if keyHex := strings.TrimPrefix(strings.TrimSpace(cfg.SignerKeyHex), "0x"); keyHex != "" {
		key, err := crypto.HexToECDSA(keyHex)
		if err != nil {
			return nil, fmt.Errorf("ledger: invalid signer key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c, nil
}

func (c *Client) Descriptor() Descriptor { return c.desc }

// Connect dials the configured provider, falling back to the read-only
// provider when the primary is unreachable. Calling it again on a connected
// client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	if c.eth != nil {
		return nil
	}

	eth, err := ethclient.DialContext(ctx, c.cfg.RPCURL)
	if err == nil {
		if c.chainID, err = eth.ChainID(ctx); err == nil {
			c.eth = eth
			c.log.Info("Connected to ledger provider", "rpc_url", c.cfg.RPCURL)
			return nil
		}
		eth.Close()
	}
	c.log.Warn("Primary ledger provider unreachable", "rpc_url", c.cfg.RPCURL, "error", err)

	if c.cfg.ReadOnlyRPCURL == "" {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	eth, roErr := ethclient.DialContext(ctx, c.cfg.ReadOnlyRPCURL)
	if roErr != nil {
		return fmt.Errorf("%w: %v", ErrConnection, roErr)
	}
	if c.chainID, roErr = eth.ChainID(ctx); roErr != nil {
		eth.Close()
		return fmt.Errorf("%w: %v", ErrConnection, roErr)
	}
	c.eth = eth
	c.readOnly = true
	c.log.Warn("Running against read-only ledger provider; state-changing calls disabled", "rpc_url", c.cfg.ReadOnlyRPCURL)
	return nil
}

func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
}

// ActiveAccount returns the configured signing account as lowercase hex.
func (c *Client) ActiveAccount() (string, error) {
	if c.key == nil {
		return "", ErrNoAccount
	}
	return strings.ToLower(c.from.Hex()), nil
}

// Invoke packs and sends a contract call, blocking until the network reports
// inclusion. Gas estimation runs first: a revert-style estimation failure
// aborts before anything is sent; any other estimation failure degrades to
// the configured fallback gas limit. A successful estimate is bumped by 10%,
// rounded up.
func (c *Client) Invoke(ctx context.Context, method string, value *big.Int, args ...interface{}) (*Receipt, error) {
	if c.eth == nil {
		return nil, fmt.Errorf("%w: client not connected", ErrConnection)
	}
	if c.key == nil || c.readOnly {
		return nil, ErrNoAccount
	}
	if value == nil {
		value = new(big.Int)
	}

	data, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: packing %s: %w", method, err)
	}

	gasLimit := c.cfg.FallbackGasLimit
	estimate, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    &c.contract,
		Value: value,
		Data:  data,
	})
	switch {
	case err == nil:
		gasLimit = bumpGas(estimate)
	case looksLikeRevert(err):
		return nil, &WouldRevertError{Method: method, Err: err}
	default:
		c.log.Warn("Gas estimation failed, sending with fallback gas limit", "method", method, "fallback_gas", gasLimit, "error", err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, &SendError{Method: method, Err: err}
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, &SendError{Method: method, Err: err}
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, &SendError{Method: method, Err: err}
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, &SendError{Method: method, Err: err}
	}

	c.log.Debug("Transaction submitted, waiting for inclusion", "method", method, "tx_hash", signed.Hash().Hex())
	mined, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return nil, &SendError{Method: method, Err: err}
	}

	receipt := c.buildReceipt(mined)
	if !receipt.Succeeded {
		return receipt, &SendError{Method: method, Err: fmt.Errorf("transaction %s reverted on-chain", receipt.TransactionHash)}
	}
	return receipt, nil
}

// QueryPastEvents returns the contract's historical events of one kind over
// a block range. A nil toBlock means latest.
func (c *Client) QueryPastEvents(ctx context.Context, eventName string, fromBlock, toBlock *big.Int) ([]Event, error) {
	if c.eth == nil {
		return nil, fmt.Errorf("%w: client not connected", ErrConnection)
	}
	ev, ok := c.contractABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("ledger: unknown event %q", eventName)
	}
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{ev.ID}},
		FromBlock: fromBlock,
		ToBlock:   toBlock,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: querying %s events: %w", eventName, err)
	}
	events := make([]Event, 0, len(logs))
	for _, lg := range logs {
		if decoded, ok := c.decodeLog(lg); ok {
			events = append(events, decoded)
		}
	}
	return events, nil
}

func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	if c.eth == nil {
		return 0, fmt.Errorf("%w: client not connected", ErrConnection)
	}
	return c.eth.BlockNumber(ctx)
}

func (c *Client) buildReceipt(mined *gethtypes.Receipt) *Receipt {
	receipt := &Receipt{
		TransactionHash: mined.TxHash.Hex(),
		Succeeded:       mined.Status == gethtypes.ReceiptStatusSuccessful,
		BlockNumber:     mined.BlockNumber.Uint64(),
	}
	for _, lg := range mined.Logs {
		if lg == nil || lg.Address != c.contract {
			continue
		}
		if decoded, ok := c.decodeLog(*lg); ok {
			receipt.Events = append(receipt.Events, decoded)
		}
	}
	return receipt
}

func (c *Client) decodeLog(lg gethtypes.Log) (Event, bool) {
	if len(lg.Topics) == 0 {
		return Event{}, false
	}
	ev, err := c.contractABI.EventByID(lg.Topics[0])
	if err != nil {
		return Event{}, false
	}
	values := map[string]interface{}{}
	if len(lg.Data) > 0 {
		if err := c.contractABI.UnpackIntoMap(values, ev.Name, lg.Data); err != nil {
			c.log.Warn("Failed to unpack event data", "event", ev.Name, "tx_hash", lg.TxHash.Hex(), "error", err)
			return Event{}, false
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) > 0 && len(lg.Topics) > 1 {
		if err := abi.ParseTopicsIntoMap(values, indexed, lg.Topics[1:]); err != nil {
			c.log.Warn("Failed to parse indexed event topics", "event", ev.Name, "tx_hash", lg.TxHash.Hex(), "error", err)
		}
	}
	return Event{
		Name:            ev.Name,
		TransactionHash: lg.TxHash.Hex(),
		BlockNumber:     lg.BlockNumber,
		Values:          values,
	}, true
}

// bumpGas returns estimate * 1.10 rounded up.
func bumpGas(estimate uint64) uint64 {
	return estimate + (estimate+9)/10
}

func looksLikeRevert(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "revert") || strings.Contains(s, "always failing transaction")
}
