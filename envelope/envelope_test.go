package envelope

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/multisig"
)

type fakeAnchor struct {
	count int64
	salt  string
}

func (a *fakeAnchor) GetBlockCount() (int64, error) { return a.count, nil }

func (a *fakeAnchor) GetBlockHash(height int64) (string, error) {
	if height < 0 || height > a.count {
		return "", fmt.Errorf("block height out of range")
	}
	return fmt.Sprintf("%s%064d", a.salt, height), nil
}

type payload struct {
	MintAddress string `json:"mintAddress"`
	Amount      string `json:"amount"`
}

func newEnvelope(t *testing.T, anchor ChainAnchor) *Envelope {
	w, err := multisig.NewRandomLocalSchnorrWallet()
	require.NoError(t, err)
	return New(w, anchor, 10)
}

func TestCreateAndValidate(t *testing.T) {
	anchor := &fakeAnchor{count: 100}
	e := newEnvelope(t, anchor)

	msg, err := e.CreateSignedAndTimedMessage(&payload{MintAddress: "m", Amount: "12"})
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, float64(90), data[AnchorHeightKey])
	assert.Equal(t, fmt.Sprintf("%064d", 90), data[AnchorHashKey])

	raw, err := e.ValidateSignedMessage(msg, e.Address(), true)
	require.NoError(t, err)
	var p payload
	require.NoError(t, Decode(raw, &p))
	assert.Equal(t, payload{MintAddress: "m", Amount: "12"}, p)

	// the whole envelope survives a wire round trip
	whole, err := e.ValidateSignedMessage(msg, e.Address(), false)
	require.NoError(t, err)
	var forwarded SignedMessage
	require.NoError(t, json.Unmarshal(whole, &forwarded))
	_, err = e.ValidateSignedMessage(&forwarded, e.Address(), true)
	assert.NoError(t, err)

	_, err = e.CreateSignedAndTimedMessage([]string{"not", "an", "object"})
	assert.Error(t, err)
}

func TestFreshness(t *testing.T) {
	anchor := &fakeAnchor{count: 100}
	e := newEnvelope(t, anchor)

	msg, err := e.CreateSignedAndTimedMessage(&payload{})
	require.NoError(t, err)

	// anchored at 90: fine until the tip passes 110
	anchor.count = 110
	_, err = e.ValidateSignedMessage(msg, e.Address(), true)
	assert.NoError(t, err)

	anchor.count = 111
	_, err = e.ValidateSignedMessage(msg, e.Address(), true)
	assert.Equal(t, common.NewAuthenticationError("Message expired"), err)

	// reorg below the anchor
	anchor.count = 100
	anchor.salt = "x"
	_, err = e.ValidateSignedMessage(msg, e.Address(), true)
	assert.Equal(t, common.NewAuthenticationError("Verification failed: incorrect chain"), err)
}

func TestTamperedData(t *testing.T) {
	e := newEnvelope(t, &fakeAnchor{count: 100})

	msg, err := e.CreateSignedAndTimedMessage(&payload{MintAddress: "m", Amount: "12"})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &obj))
	obj["amount"] = "13"
	msg.Data, err = json.Marshal(obj)
	require.NoError(t, err)

	_, err = e.ValidateSignedMessage(msg, e.Address(), true)
	assert.True(t, common.IsKind(err, common.KindAuthentication))
}

func TestValidateSignedMessageOne(t *testing.T) {
	anchor := &fakeAnchor{count: 100}
	a := newEnvelope(t, anchor)
	b := newEnvelope(t, anchor)
	c := newEnvelope(t, anchor)

	msg, err := a.CreateSignedAndTimedMessage(&payload{})
	require.NoError(t, err)

	_, err = b.ValidateSignedMessageOne(msg, []string{b.Address(), a.Address(), c.Address()}, true)
	assert.NoError(t, err)

	_, err = b.ValidateSignedMessageOne(msg, []string{b.Address(), c.Address()}, true)
	assert.Equal(t, common.NewAuthenticationError("Authority verification failed"), err)

	// a duplicated candidate gives two matches
	_, err = b.ValidateSignedMessageOne(msg, []string{a.Address(), a.Address()}, true)
	assert.Equal(t, common.NewAuthenticationError("Authority verification failed"), err)

	_, err = b.ValidateSignedMessageOne(msg, nil, true)
	assert.Error(t, err)
}

func TestMalformedMessages(t *testing.T) {
	e := newEnvelope(t, &fakeAnchor{count: 100})

	cases := []*SignedMessage{
		nil,
		{Error: "upstream failed"},
		{Signature: "00"},
		{Data: json.RawMessage(`{"anchorHeight": 95}`)},
		{Data: json.RawMessage(`[1,2]`), Signature: "00"},
		{Data: json.RawMessage(`{"anchorHash": "x"}`), Signature: "00"},
		{Data: json.RawMessage(`{"anchorHeight": 95}`), Signature: "00"},
		{Data: json.RawMessage(`{"anchorHeight": 1.5, "anchorHash": "x"}`), Signature: "00"},
	}
	for i, msg := range cases {
		_, err := e.ValidateSignedMessage(msg, e.Address(), true)
		assert.True(t, common.IsKind(err, common.KindValidation), "case %d: %v", i, err)
	}

	_, err := e.ValidateSignedMessage(&SignedMessage{Error: "boom"}, e.Address(), true)
	assert.EqualError(t, err, "boom")
}
