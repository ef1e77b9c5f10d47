package common

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSatoshi(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "100000000"},
		{"12.5", "1250000000"},
		{"100000", "10000000000000"},
		{"0.00000001", "1"},
		{"0.000000019", "1"},
		{".5", "50000000"},
		{"10000.00000000", "1000000000000"},
	}
	for _, tt := range tests {
		got, err := ToSatoshi(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}

	for _, bad := range []string{"", "-1", "1.2.3", "abc", "1e5"} {
		_, err := ToSatoshi(bad)
		assert.Error(t, err, bad)
	}
}

func TestFromSatoshi(t *testing.T) {
	assert.Equal(t, "0", FromSatoshi(big.NewInt(0)))
	assert.Equal(t, "12.5", FromSatoshi(big.NewInt(1250000000)))
	assert.Equal(t, "0.00000001", FromSatoshi(big.NewInt(1)))
	assert.Equal(t, "-1.1", FromSatoshi(big.NewInt(-110000000)))
	assert.Equal(t, "", FromSatoshi(nil))

	for _, s := range []string{"1", "99999999", "123456789012345678"} {
		x := MustParseAmount(s)
		back, err := ToSatoshi(FromSatoshi(x))
		assert.NoError(t, err)
		assert.Equal(t, 0, x.Cmp(back), s)
	}
}

func TestParseAmount(t *testing.T) {
	x, err := ParseAmount("123")
	assert.NoError(t, err)
	assert.Equal(t, int64(123), x.Int64())

	_, err = ParseAmount("")
	assert.ErrorIs(t, err, ErrEmptyAmount)
	_, err = ParseAmount("-5")
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = ParseAmount("1.5")
	assert.Error(t, err)

	total, err := SumAmounts([]string{"1", "2", "3"})
	assert.NoError(t, err)
	assert.Equal(t, int64(6), total.Int64())
	_, err = SumAmounts([]string{"1", "x"})
	assert.Error(t, err)
}

func TestBridgeErrorKinds(t *testing.T) {
	err := NewStateConflictError("withdrawal already submitted")
	wrapped := fmt.Errorf("intake: %w", err)

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindStateConflict, kind)
	assert.True(t, IsKind(wrapped, KindStateConflict))
	assert.False(t, IsKind(wrapped, KindValidation))
	assert.True(t, errors.Is(wrapped, NewStateConflictError("withdrawal already submitted")))

	assert.Nil(t, NewUpstreamError(nil, "rpc"))
	up := NewUpstreamError(errors.New("connection refused"), "getblockcount")
	assert.Equal(t, "getblockcount: connection refused", up.Error())
	assert.True(t, IsKind(up, KindUpstream))

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
