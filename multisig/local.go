package multisig

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

var ErrInvalidPrivateKey = errors.New("private key must be 32 bytes")

// LocalSchnorrWallet is an authority's signing identity, backed by one
// private key. Its address is the hex x-only public key.
type LocalSchnorrWallet struct {
	sk      *btcec.PrivateKey
	address string
}

// If user provides a 256-bit (32byte) private key, we can create a schnorr wallet.
func NewLocalSchnorrWallet(privkey []byte) (*LocalSchnorrWallet, error) {
	if len(privkey) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	sk, pk := btcec.PrivKeyFromBytes(privkey)
	return &LocalSchnorrWallet{
		sk:      sk,
		address: AddressFromPubKey(pk),
	}, nil
}

// NewLocalSchnorrWalletFromHex accepts the key as stored in config files,
// with or without a 0x prefix.
func NewLocalSchnorrWalletFromHex(privkey string) (*LocalSchnorrWallet, error) {
	if len(privkey) > 1 && privkey[0] == '0' && (privkey[1] == 'x' || privkey[1] == 'X') {
		privkey = privkey[2:]
	}
	b, err := hex.DecodeString(privkey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return NewLocalSchnorrWallet(b)
}

// If user choose to randomly generate a wallet.
func NewRandomLocalSchnorrWallet() (*LocalSchnorrWallet, error) {
	sk, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &LocalSchnorrWallet{
		sk:      sk,
		address: AddressFromPubKey(sk.PubKey()),
	}, nil
}

// Sign makes a BIP-340 signature over a 32-byte hash.
func (lsw *LocalSchnorrWallet) Sign(hash []byte) ([]byte, error) {
	sig, err := schnorr.Sign(lsw.sk, hash)
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

func (lsw *LocalSchnorrWallet) Address() string {
	return lsw.address
}

func (lsw *LocalSchnorrWallet) PrivateKeyHex() string {
	return hex.EncodeToString(lsw.sk.Serialize())
}

func AddressFromPubKey(pk *btcec.PublicKey) string {
	return hex.EncodeToString(schnorr.SerializePubKey(pk))
}

func IsValidAddress(address string) bool {
	b, err := hex.DecodeString(address)
	if err != nil {
		return false
	}
	_, err = schnorr.ParsePubKey(b)
	return err == nil
}

// Verify reports whether sig is a valid signature of hash by the holder
// of address. Malformed inputs simply do not verify.
func Verify(address string, hash, sig []byte) bool {
	pkBytes, err := hex.DecodeString(address)
	if err != nil {
		return false
	}
	pk, err := schnorr.ParsePubKey(pkBytes)
	if err != nil {
		return false
	}
	s, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(hash, pk)
}
