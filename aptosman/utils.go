package aptosman

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
	"github.com/aptos-labs/aptos-go-sdk/crypto"
	"golang.org/x/crypto/ed25519"
)

// ParsePrivateKey accepts a hex ed25519 seed or full private key, with or
// without 0x.
func ParsePrivateKey(s string) (ed25519.PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, fmt.Errorf("invalid ed25519 private key size: %d", len(b))
	}
}

// NewAccount creates an aptos account from an ed25519 key.
func NewAccount(privateKey ed25519.PrivateKey) (*aptos.Account, error) {
	key := crypto.Ed25519PrivateKey{}
	if err := key.FromBytes(privateKey.Seed()); err != nil {
		return nil, fmt.Errorf("failed to create ed25519 private key: %v", err)
	}
	account, err := aptos.NewAccountFromSigner(&key)
	if err != nil {
		return nil, fmt.Errorf("failed to create account from signer: %v", err)
	}
	return account, nil
}

func parseAddress(s string) (aptos.AccountAddress, error) {
	address := aptos.AccountAddress{}
	err := address.ParseStringRelaxed(s)
	return address, err
}

// uleb128 length prefix as used by BCS vectors
func serializeLen(n int) []byte {
	var result []byte
	for {
		b := byte(n & 0x7F)
		n >>= 7
		if n == 0 {
			return append(result, b)
		}
		result = append(result, b|0x80)
	}
}

func serializeBytes(b []byte) []byte {
	return append(serializeLen(len(b)), b...)
}

func serializeBytesVector(vec [][]byte) []byte {
	result := serializeLen(len(vec))
	for _, b := range vec {
		result = append(result, serializeBytes(b)...)
	}
	return result
}

// MintMessage is what every authority signs to approve a mint. The nonce
// is the bridge's mint counter, so a set of signatures mints only once.
func MintMessage(moduleAddress, receiver aptos.AccountAddress, amount, nonce uint64) ([]byte, error) {
	moduleBytes, err := bcs.Serialize(&moduleAddress)
	if err != nil {
		return nil, err
	}
	receiverBytes, err := bcs.Serialize(&receiver)
	if err != nil {
		return nil, err
	}
	amountBytes, err := bcs.SerializeU64(amount)
	if err != nil {
		return nil, err
	}
	nonceBytes, err := bcs.SerializeU64(nonce)
	if err != nil {
		return nil, err
	}

	msg := make([]byte, 0, len(moduleBytes)+len(receiverBytes)+16)
	msg = append(msg, moduleBytes...)
	msg = append(msg, receiverBytes...)
	msg = append(msg, amountBytes...)
	msg = append(msg, nonceBytes...)
	return msg, nil
}

// EncodeMintSignature packs the signer's public key with its signature
// so that the bridge module can match it against the authority set.
func EncodeMintSignature(pub ed25519.PublicKey, sig []byte) string {
	return hex.EncodeToString(append(append([]byte{}, pub...), sig...))
}

func DecodeMintSignature(s string) (ed25519.PublicKey, []byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, nil, err
	}
	if len(b) != ed25519.PublicKeySize+ed25519.SignatureSize {
		return nil, nil, fmt.Errorf("invalid mint signature length: %d", len(b))
	}
	return ed25519.PublicKey(b[:ed25519.PublicKeySize]), b[ed25519.PublicKeySize:], nil
}
