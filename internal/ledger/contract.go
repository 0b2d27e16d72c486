package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Escrow contract ABI: listing, purchase (two generations of the purchase
// method exist in the wild), settlement, and minting.
const escrowABI = `[
  {"type":"function","name":"listAsset","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"purchaseAsset","stateMutability":"payable","inputs":[{"name":"assetId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"purchaseNFT","stateMutability":"payable","inputs":[{"name":"assetId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"completeTransaction","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"cancelTransaction","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"mintNFT","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"tokenURI","type":"string"},{"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"AssetListed","anonymous":false,"inputs":[{"name":"assetId","type":"uint256","indexed":false},{"name":"seller","type":"address","indexed":false},{"name":"price","type":"uint256","indexed":false}]},
  {"type":"event","name":"AssetPurchased","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":false},{"name":"assetId","type":"uint256","indexed":false},{"name":"buyer","type":"address","indexed":false}]},
  {"type":"event","name":"NFTPurchased","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":false},{"name":"buyer","type":"address","indexed":false},{"name":"seller","type":"address","indexed":false},{"name":"price","type":"uint256","indexed":false}]},
  {"type":"event","name":"NFTMinted","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":false},{"name":"recipient","type":"address","indexed":false}]},
  {"type":"event","name":"TransactionCompleted","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":false}]},
  {"type":"event","name":"TransactionCancelled","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":false}]}
]`

// Contract method and event names used across the codebase.
const (
	MethodListAsset           = "listAsset"
	MethodPurchaseAsset       = "purchaseAsset"
	MethodPurchaseNFT         = "purchaseNFT"
	MethodCompleteTransaction = "completeTransaction"
	MethodCancelTransaction   = "cancelTransaction"
	MethodMintNFT             = "mintNFT"

	EventAssetListed          = "AssetListed"
	EventAssetPurchased       = "AssetPurchased"
	EventNFTPurchased         = "NFTPurchased"
	EventNFTMinted            = "NFTMinted"
	EventTransactionCompleted = "TransactionCompleted"
	EventTransactionCancelled = "TransactionCancelled"
)

// Descriptor pins the contract surface for one deployed contract generation.
// The version tag is configured once at startup; nothing probes method names
// at call time.
type Descriptor struct {
	Version        string
	PurchaseMethod string
	PurchaseEvent  string
	PurchaseIDKeys []string
	ListEvent      string
	ListIDKeys     []string
	MintEvent      string
	MintIDKeys     []string
}

// DescriptorFor maps a contract-version tag to a fixed surface. "v2" is the
// current generation (purchaseNFT / NFTPurchased); "v1" is kept for contracts
// deployed before the rename.
func DescriptorFor(version string) (Descriptor, error) {
	switch strings.ToLower(strings.TrimSpace(version)) {
	case "", "v2":
		return Descriptor{
			Version:        "v2",
			PurchaseMethod: MethodPurchaseNFT,
			PurchaseEvent:  EventNFTPurchased,
			PurchaseIDKeys: []string{"tokenId", "transactionId"},
			ListEvent:      EventAssetListed,
			ListIDKeys:     []string{"assetId"},
			MintEvent:      EventNFTMinted,
			MintIDKeys:     []string{"tokenId", "assetId"},
		}, nil
	case "v1":
		return Descriptor{
			Version:        "v1",
			PurchaseMethod: MethodPurchaseAsset,
			PurchaseEvent:  EventAssetPurchased,
			PurchaseIDKeys: []string{"transactionId", "tokenId"},
			ListEvent:      EventAssetListed,
			ListIDKeys:     []string{"assetId"},
			MintEvent:      EventNFTMinted,
			MintIDKeys:     []string{"tokenId", "assetId"},
		}, nil
	default:
		return Descriptor{}, fmt.Errorf("ledger: unknown contract version %q", version)
	}
}

// ParseAddress validates and normalizes a ledger account address for use as
// a contract call argument.
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("ledger: invalid account address %q", address)
	}
	return common.HexToAddress(address), nil
}

// ParseCanonicalID turns a ledger-assigned identifier back into the uint256
// the contract methods expect.
func ParseCanonicalID(id string) (*big.Int, error) {
	id = strings.TrimSpace(id)
	n, ok := new(big.Int).SetString(id, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("ledger: invalid canonical id %q", id)
	}
	return n, nil
}
