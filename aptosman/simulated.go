package aptosman

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/aptos-labs/aptos-go-sdk"
	"golang.org/x/crypto/ed25519"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

var (
	ErrSimNoTokenAccount    = errors.New("receiver has no token account")
	ErrSimNotEnoughApproval = errors.New("not enough valid mint signatures")
	ErrSimInsufficientFunds = errors.New("insufficient balance")
	ErrSimUnknownTx         = errors.New("transaction not found")
)

// SimAptos is an in-memory bridge module shared by the authorities of a
// test. Mints are checked against real ed25519 signatures.
type SimAptos struct {
	mu sync.Mutex

	moduleAddress aptos.AccountAddress
	threshold     int
	authorities   map[string]bool // hex public keys
	nonce         uint64
	accounts      map[string]*big.Int
	burns         map[string]*agreement.Burn
	mints         []string
}

func NewSimAptos(threshold int) *SimAptos {
	return &SimAptos{
		moduleAddress: randAccountAddress(),
		threshold:     threshold,
		authorities:   map[string]bool{},
		accounts:      map[string]*big.Int{},
		burns:         map[string]*agreement.Burn{},
	}
}

func randAccountAddress() aptos.AccountAddress {
	var addr aptos.AccountAddress
	copy(addr[:], common.RandBytes(32))
	return addr
}

// RandAddress returns a fresh account address string.
func RandAddress() string {
	addr := randAccountAddress()
	return addr.String()
}

func normalize(address string) (string, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// NewSimLedger adds a new authority key to the module and returns its view.
func (s *SimAptos) NewSimLedger() *SimLedger {
	_, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	s.authorities[hex.EncodeToString(sk.Public().(ed25519.PublicKey))] = true
	s.mu.Unlock()
	return &SimLedger{aptos: s, signer: sk}
}

// RegisterTokenAccount lets address hold the wrapped coin.
func (s *SimAptos) RegisterTokenAccount(address string) {
	key, err := normalize(address)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[key]; !ok {
		s.accounts[key] = big.NewInt(0)
	}
}

func (s *SimAptos) Balance(address string) *big.Int {
	key, err := normalize(address)
	if err != nil {
		return big.NewInt(0)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.accounts[key]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// Burn destroys amount of owner's coins towards a Dingocoin destination
// and returns the transaction hash.
func (s *SimAptos) Burn(owner string, amount *big.Int, destination string) (string, error) {
	key, err := normalize(owner)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.accounts[key]
	if !ok || b.Cmp(amount) < 0 {
		return "", ErrSimInsufficientFunds
	}
	b.Sub(b, amount)

	hash := common.Prepend0xPrefix(common.ByteSliceToPureHexStr(common.RandBytes(32)))
	s.burns[hash] = &agreement.Burn{
		Signature:   hash,
		Amount:      amount.String(),
		Destination: destination,
	}
	return hash, nil
}

func (s *SimAptos) Nonce() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonce
}

func (s *SimAptos) Mints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.mints...)
}

// SimLedger is one authority's view of a SimAptos.
type SimLedger struct {
	aptos  *SimAptos
	signer ed25519.PrivateKey
}

var _ agreement.DestLedger = (*SimLedger)(nil)

func (l *SimLedger) IsAddress(address string) bool {
	_, err := parseAddress(address)
	return err == nil
}

func (l *SimLedger) HasTokenAccount(address string) (bool, error) {
	key, err := normalize(address)
	if err != nil {
		return false, common.NewValidationError("invalid aptos address: %s", address)
	}
	l.aptos.mu.Lock()
	defer l.aptos.mu.Unlock()
	_, ok := l.aptos.accounts[key]
	return ok, nil
}

func (l *SimLedger) message(receiver string, amount *big.Int) ([]byte, error) {
	addr, err := parseAddress(receiver)
	if err != nil {
		return nil, common.NewValidationError("invalid aptos address: %s", receiver)
	}
	if amount == nil || amount.Sign() <= 0 || !amount.IsUint64() {
		return nil, ErrAmountTooLarge
	}
	return MintMessage(l.aptos.moduleAddress, addr, amount.Uint64(), l.aptos.nonce)
}

func (l *SimLedger) SignMint(receiver string, amount *big.Int) (string, error) {
	l.aptos.mu.Lock()
	msg, err := l.message(receiver, amount)
	l.aptos.mu.Unlock()
	if err != nil {
		return "", err
	}
	return EncodeMintSignature(l.signer.Public().(ed25519.PublicKey), ed25519.Sign(l.signer, msg)), nil
}

func (l *SimLedger) FinalizeMintAndSend(receiver string, amount *big.Int, signatures []string) (string, error) {
	l.aptos.mu.Lock()
	defer l.aptos.mu.Unlock()

	msg, err := l.message(receiver, amount)
	if err != nil {
		return "", err
	}
	key, _ := normalize(receiver)
	balance, ok := l.aptos.accounts[key]
	if !ok {
		return "", ErrSimNoTokenAccount
	}

	approvals := map[string]bool{}
	for _, s := range signatures {
		pub, sig, err := DecodeMintSignature(s)
		if err != nil {
			continue
		}
		pubHex := hex.EncodeToString(pub)
		if l.aptos.authorities[pubHex] && ed25519.Verify(pub, msg, sig) {
			approvals[pubHex] = true
		}
	}
	if len(approvals) < l.aptos.threshold {
		return "", fmt.Errorf("%w: %d of %d", ErrSimNotEnoughApproval, len(approvals), l.aptos.threshold)
	}

	balance.Add(balance, amount)
	l.aptos.nonce++
	hash := common.Prepend0xPrefix(common.ByteSliceToPureHexStr(common.RandBytes(32)))
	l.aptos.mints = append(l.aptos.mints, hash)
	return hash, nil
}

func (l *SimLedger) GetBurn(burnSignature string) (*agreement.Burn, error) {
	l.aptos.mu.Lock()
	defer l.aptos.mu.Unlock()
	b, ok := l.aptos.burns[burnSignature]
	if !ok {
		return nil, common.NewUpstreamError(ErrSimUnknownTx, "failed to get transaction %s", burnSignature)
	}
	return &agreement.Burn{Signature: b.Signature, Amount: b.Amount, Destination: b.Destination}, nil
}
