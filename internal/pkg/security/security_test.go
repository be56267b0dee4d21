package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenPair_RoundTrip(t *testing.T) {
	pair, err := GenerateTokenPair(42, []string{"ADMIN"})
	require.NoError(t, err)

	claims, err := ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, []string{"ADMIN"}, claims.Roles)

	refresh, err := ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), refresh.UserID)
}

func TestValidate_RejectsWrongTokenType(t *testing.T) {
	pair, err := GenerateTokenPair(1, nil)
	require.NoError(t, err)

	_, err = ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenType)

	_, err = ValidateToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenType)
}

func TestValidate_RejectsMalformedAndExpired(t *testing.T) {
	_, err := ValidateRefreshToken("not-a-token")
	assert.Error(t, err)

	expired, err := generate(1, nil, TokenTypeRefresh, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateRefreshToken(expired)
	assert.Error(t, err)
}

func TestNewLoginCode_FixedLengthAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := NewLoginCode("10.0.0.1")
		assert.Len(t, code, LoginCodeLength)
		_, dup := seen[code]
		assert.False(t, dup)
		seen[code] = struct{}{}
	}
}

func TestExtractBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearer("Bearer abc"))
	assert.Empty(t, ExtractBearer("abc"))
}
