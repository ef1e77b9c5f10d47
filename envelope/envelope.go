// Package envelope wraps every inter-node payload into a message that is
// signed by its author and anchored to a recent source-chain block.
package envelope

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/multisig"
)

const (
	AnchorHeightKey = "anchorHeight"
	AnchorHashKey   = "anchorHash"
)

// SignedMessage is the wire form of every authority response. Error is
// only set on failure responses, which carry no data.
type SignedMessage struct {
	Data      json.RawMessage `json:"data,omitempty"`
	Signature string          `json:"signature,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// ChainAnchor is the part of the source chain used to time messages.
type ChainAnchor interface {
	GetBlockCount() (int64, error)
	GetBlockHash(height int64) (string, error)
}

type Signer interface {
	Sign(hash []byte) ([]byte, error)
	Address() string
}

type Envelope struct {
	signer    Signer
	anchor    ChainAnchor
	syncDelay int64
}

func New(signer Signer, anchor ChainAnchor, syncDelay int64) *Envelope {
	return &Envelope{
		signer:    signer,
		anchor:    anchor,
		syncDelay: syncDelay,
	}
}

func (e *Envelope) Address() string {
	return e.signer.Address()
}

// CreateSignedAndTimedMessage stamps payload with the block syncDelay
// below the tip and signs the result.
func (e *Envelope) CreateSignedAndTimedMessage(payload any) (*SignedMessage, error) {
	obj, err := toObject(payload)
	if err != nil {
		return nil, err
	}

	count, err := e.anchor.GetBlockCount()
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to get block count")
	}
	height := count - e.syncDelay
	hash, err := e.anchor.GetBlockHash(height)
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to get block hash at %d", height)
	}
	obj[AnchorHeightKey] = json.Number(fmt.Sprint(height))
	obj[AnchorHashKey] = hash

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(data)
	sig, err := e.signer.Sign(digest[:])
	if err != nil {
		return nil, err
	}
	return &SignedMessage{
		Data:      data,
		Signature: hex.EncodeToString(sig),
	}, nil
}

// ValidateSignedMessage checks freshness and that signer authored msg.
// With discard it returns only the data, otherwise the whole message.
func (e *Envelope) ValidateSignedMessage(msg *SignedMessage, signer string, discard bool) (json.RawMessage, error) {
	return e.ValidateSignedMessageOne(msg, []string{signer}, discard)
}

// ValidateSignedMessageOne accepts msg only if exactly one of candidates
// signed it. Every candidate is checked.
func (e *Envelope) ValidateSignedMessageOne(msg *SignedMessage, candidates []string, discard bool) (json.RawMessage, error) {
	canonical, err := e.validateTimed(msg)
	if err != nil {
		return nil, err
	}

	sig, err := hex.DecodeString(msg.Signature)
	if err != nil {
		return nil, common.NewAuthenticationError("Authority verification failed")
	}
	digest := sha256.Sum256(canonical)
	matches := 0
	for _, c := range candidates {
		if multisig.Verify(c, digest[:], sig) {
			matches++
		}
	}
	if matches != 1 {
		return nil, common.NewAuthenticationError("Authority verification failed")
	}

	if discard {
		return msg.Data, nil
	}
	return json.Marshal(msg)
}

// validateTimed checks structure and freshness and returns the canonical
// bytes the signature must cover.
func (e *Envelope) validateTimed(msg *SignedMessage) ([]byte, error) {
	if msg == nil {
		return nil, common.NewValidationError("Message not specified")
	}
	if msg.Error != "" {
		return nil, common.NewValidationError("%s", msg.Error)
	}
	if len(msg.Data) == 0 {
		return nil, common.NewValidationError("Message missing data")
	}
	if msg.Signature == "" {
		return nil, common.NewValidationError("Message missing signature")
	}

	obj, err := decodeObject(msg.Data)
	if err != nil {
		return nil, common.NewValidationError("Data is non-object")
	}
	heightNum, ok := obj[AnchorHeightKey].(json.Number)
	if !ok {
		return nil, common.NewValidationError("Message missing %s", AnchorHeightKey)
	}
	height, err := heightNum.Int64()
	if err != nil {
		return nil, common.NewValidationError("Invalid %s", AnchorHeightKey)
	}
	hash, ok := obj[AnchorHashKey].(string)
	if !ok {
		return nil, common.NewValidationError("Message missing %s", AnchorHashKey)
	}

	count, err := e.anchor.GetBlockCount()
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to get block count")
	}
	if height < count-2*e.syncDelay {
		return nil, common.NewAuthenticationError("Message expired")
	}
	actual, err := e.anchor.GetBlockHash(height)
	if err != nil || actual != hash {
		return nil, common.NewAuthenticationError("Verification failed: incorrect chain")
	}

	return json.Marshal(obj)
}

// Decode unmarshals validated data into v. Anchor fields are ignored
// unless v declares them.
func Decode(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return common.NewValidationError("malformed payload: %v", err)
	}
	return nil
}

func toObject(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("cannot sign non-object %s", raw)
	}
	return obj, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("null object")
	}
	return obj, nil
}
