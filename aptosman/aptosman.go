package aptosman

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
	"github.com/ethereum/go-ethereum/common/lru"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ed25519"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

const (
	bridgeModule = "bridge"
	tokenModule  = "wdingo"
)

var (
	ErrAmountTooLarge    = errors.New("amount does not fit in u64")
	ErrTransactionFailed = errors.New("transaction failed")
)

// Aptosman drives the wrapped token on Aptos for one authority.
type Aptosman struct {
	aptosClient   *aptos.Client
	cfg           *AptosmanConfig
	account       *aptos.Account // submits finalized mints and pays gas
	signer        ed25519.PrivateKey
	moduleAddress aptos.AccountAddress

	// burns are immutable once their transaction is committed
	burns *lru.Cache[string, *agreement.Burn]

	mu sync.Mutex
}

var _ agreement.DestLedger = (*Aptosman)(nil)

func NewAptosman(cfg *AptosmanConfig) (*Aptosman, error) {
	aptosClient, err := aptos.NewClient(GetNetworkConfig(cfg.Network))
	if err != nil {
		logger.WithField("network", cfg.Network).Errorf("failed to create aptos client: %v", err)
		return nil, err
	}

	moduleAddress, err := parseAddress(cfg.ModuleAddress)
	if err != nil {
		logger.Errorf("failed to parse module address: %v", err)
		return nil, err
	}

	signer, err := ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	feePayerKey, err := ParsePrivateKey(cfg.FeePayerPrivateKey)
	if err != nil {
		return nil, err
	}
	account, err := NewAccount(feePayerKey)
	if err != nil {
		return nil, err
	}

	// make sure the module is there
	if _, err := aptosClient.AccountResources(moduleAddress); err != nil {
		logger.Errorf("failed to get module resources: %v", err)
		return nil, err
	}

	size := cfg.BurnCacheSize
	if size <= 0 {
		size = DefaultBurnCacheSize
	}
	return &Aptosman{
		aptosClient:   aptosClient,
		cfg:           cfg,
		account:       account,
		signer:        signer,
		moduleAddress: moduleAddress,
		burns:         lru.NewCache[string, *agreement.Burn](size),
	}, nil
}

func (aptman *Aptosman) PublicKey() ed25519.PublicKey {
	return aptman.signer.Public().(ed25519.PublicKey)
}

func (aptman *Aptosman) IsAddress(address string) bool {
	_, err := parseAddress(address)
	return err == nil
}

func (aptman *Aptosman) coinStoreType() string {
	return fmt.Sprintf("0x1::coin::CoinStore<%s::%s::WDingo>", aptman.moduleAddress.String(), tokenModule)
}

// HasTokenAccount reports whether address is registered for the wrapped
// coin and can therefore receive mints.
func (aptman *Aptosman) HasTokenAccount(address string) (bool, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return false, common.NewValidationError("invalid aptos address: %s", address)
	}

	resources, err := aptman.aptosClient.AccountResources(addr)
	if err != nil {
		return false, common.NewUpstreamError(err, "failed to get account resources")
	}
	for _, resource := range resources {
		if resource.Type == aptman.coinStoreType() {
			return true, nil
		}
	}
	return false, nil
}

// GetTokenBalance returns the wrapped coin balance of address.
func (aptman *Aptosman) GetTokenBalance(address string) (*big.Int, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, common.NewValidationError("invalid aptos address: %s", address)
	}

	resources, err := aptman.aptosClient.AccountResources(addr)
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to get account resources")
	}
	for _, resource := range resources {
		if resource.Type != aptman.coinStoreType() {
			continue
		}
		if coinMap, ok := resource.Data["coin"].(map[string]any); ok {
			if valueStr, ok := coinMap["value"].(string); ok {
				return common.ParseAmount(valueStr)
			}
		}
	}
	return big.NewInt(0), nil
}

func (aptman *Aptosman) mintNonce() (uint64, error) {
	resourceType := fmt.Sprintf("%s::%s::MintNonce", aptman.moduleAddress.String(), bridgeModule)
	resource, err := aptman.aptosClient.AccountResource(aptman.moduleAddress, resourceType)
	if err != nil {
		return 0, common.NewUpstreamError(err, "failed to get MintNonce resource")
	}
	data, ok := resource["data"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("resource data format is incorrect")
	}
	valueStr, ok := data["value"].(string)
	if !ok {
		return 0, fmt.Errorf("MintNonce value not found")
	}
	return strconv.ParseUint(valueStr, 10, 64)
}

func (aptman *Aptosman) mintMessage(receiver string, amount *big.Int) (aptos.AccountAddress, uint64, uint64, []byte, error) {
	receiverAddr, err := parseAddress(receiver)
	if err != nil {
		return receiverAddr, 0, 0, nil, common.NewValidationError("invalid aptos address: %s", receiver)
	}
	if amount == nil || amount.Sign() <= 0 || !amount.IsUint64() {
		return receiverAddr, 0, 0, nil, ErrAmountTooLarge
	}
	nonce, err := aptman.mintNonce()
	if err != nil {
		return receiverAddr, 0, 0, nil, err
	}
	msg, err := MintMessage(aptman.moduleAddress, receiverAddr, amount.Uint64(), nonce)
	return receiverAddr, amount.Uint64(), nonce, msg, err
}

// SignMint signs this authority's approval of minting amount to receiver
// at the bridge's current mint nonce.
func (aptman *Aptosman) SignMint(receiver string, amount *big.Int) (string, error) {
	_, _, _, msg, err := aptman.mintMessage(receiver, amount)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(aptman.signer, msg)
	return EncodeMintSignature(aptman.PublicKey(), sig), nil
}

// FinalizeMintAndSend submits bridge::mint with the collected approvals.
func (aptman *Aptosman) FinalizeMintAndSend(receiver string, amount *big.Int, signatures []string) (string, error) {
	aptman.mu.Lock()
	defer aptman.mu.Unlock()

	receiverAddr, value, nonce, _, err := aptman.mintMessage(receiver, amount)
	if err != nil {
		return "", err
	}

	sigs := make([][]byte, len(signatures))
	for i, s := range signatures {
		pub, sig, err := DecodeMintSignature(s)
		if err != nil {
			return "", common.NewValidationError("invalid mint signature %d: %v", i, err)
		}
		sigs[i] = append(append([]byte{}, pub...), sig...)
	}

	receiverBytes, err := bcs.Serialize(&receiverAddr)
	if err != nil {
		return "", fmt.Errorf("failed to serialize receiver: %v", err)
	}
	amountBytes, err := bcs.SerializeU64(value)
	if err != nil {
		return "", fmt.Errorf("failed to serialize amount: %v", err)
	}
	nonceBytes, err := bcs.SerializeU64(nonce)
	if err != nil {
		return "", fmt.Errorf("failed to serialize nonce: %v", err)
	}

	payload := aptos.TransactionPayload{
		Payload: &aptos.EntryFunction{
			Module: aptos.ModuleId{
				Address: aptman.moduleAddress,
				Name:    bridgeModule,
			},
			Function: "mint",
			ArgTypes: []aptos.TypeTag{},
			Args: [][]byte{
				receiverBytes,
				amountBytes,
				nonceBytes,
				serializeBytesVector(sigs),
			},
		},
	}

	hash, err := aptman.submit(payload)
	if err != nil {
		return "", err
	}
	logger.WithFields(logger.Fields{
		"receiver": receiver,
		"amount":   amount.String(),
		"txHash":   hash,
	}).Info("mint submitted")
	return hash, nil
}

// submit builds, signs, sends and waits for payload, and fails unless
// the transaction executed successfully.
func (aptman *Aptosman) submit(payload aptos.TransactionPayload) (string, error) {
	txn, err := aptman.aptosClient.BuildTransaction(aptman.account.AccountAddress(), payload)
	if err != nil {
		return "", common.NewUpstreamError(err, "failed to build transaction")
	}
	signedTxn, err := txn.SignedTransaction(aptman.account)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %v", err)
	}
	submitResult, err := aptman.aptosClient.SubmitTransaction(signedTxn)
	if err != nil {
		return "", common.NewUpstreamError(err, "failed to submit transaction")
	}
	if _, err := aptman.aptosClient.WaitForTransaction(submitResult.Hash); err != nil {
		return "", common.NewUpstreamError(err, "failed to wait for transaction %s", submitResult.Hash)
	}

	txnInfo, err := aptman.aptosClient.TransactionByHash(submitResult.Hash)
	if err != nil {
		return "", common.NewUpstreamError(err, "failed to get transaction %s", submitResult.Hash)
	}
	userTxn, err := txnInfo.UserTransaction()
	if err != nil {
		return "", fmt.Errorf("failed to parse user transaction: %v", err)
	}
	if !userTxn.Success {
		return "", fmt.Errorf("%w: %s", ErrTransactionFailed, userTxn.VmStatus)
	}
	return submitResult.Hash, nil
}

func (aptman *Aptosman) burnEventType() string {
	return fmt.Sprintf("%s::%s::BurnEvent", aptman.moduleAddress.String(), bridgeModule)
}

// GetBurn reads the burn recorded by transaction burnSignature. The
// transaction must have succeeded and emitted exactly one BurnEvent.
func (aptman *Aptosman) GetBurn(burnSignature string) (*agreement.Burn, error) {
	if b, ok := aptman.burns.Get(burnSignature); ok {
		return b, nil
	}

	txnInfo, err := aptman.aptosClient.TransactionByHash(burnSignature)
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to get transaction %s", burnSignature)
	}
	userTxn, err := txnInfo.UserTransaction()
	if err != nil {
		return nil, common.NewValidationError("not a user transaction: %s", burnSignature)
	}
	if !userTxn.Success {
		return nil, common.NewValidationError("burn transaction failed: %s", burnSignature)
	}

	var events []map[string]any
	for _, event := range userTxn.Events {
		if event.Type == aptman.burnEventType() {
			events = append(events, event.Data)
		}
	}
	b, err := parseBurnEvents(burnSignature, events)
	if err != nil {
		return nil, err
	}
	aptman.burns.Add(burnSignature, b)
	return b, nil
}

func parseBurnEvents(burnSignature string, events []map[string]any) (*agreement.Burn, error) {
	if len(events) != 1 {
		return nil, common.NewValidationError("expected exactly one burn event, got %d", len(events))
	}
	amount, ok := events[0]["amount"].(string)
	if !ok {
		return nil, common.NewValidationError("burn event missing amount")
	}
	if _, err := common.ParseAmount(amount); err != nil {
		return nil, common.NewValidationError("burn event has invalid amount %q", amount)
	}
	destination, ok := events[0]["destination"].(string)
	if !ok || destination == "" {
		return nil, common.NewValidationError("burn event missing destination")
	}
	return &agreement.Burn{
		Signature:   burnSignature,
		Amount:      amount,
		Destination: destination,
	}, nil
}
