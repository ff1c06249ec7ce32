package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPService_GenerateOTP(t *testing.T) {
	s := NewOTPService("secret")
	for i := 0; i < 500; i++ {
		code, err := s.GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 4)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}
}

func TestHashOTP(t *testing.T) {
	h := HashOTP("1234", "s3cret")
	assert.Equal(t, h, HashOTP("1234", "s3cret"))
	assert.Len(t, h, 64)
	assert.NotEqual(t, h, HashOTP("1234", "other"))
	assert.NotEqual(t, h, HashOTP("1235", "s3cret"))
	// sha256("1234s3cret")
	assert.Equal(t, HashOTP("1234s3cret", ""), h)
}

func TestValidateOTP(t *testing.T) {
	s := NewOTPService("s3cret")
	code, err := s.GenerateOTP()
	require.NoError(t, err)
	hash := s.Hash(code)

	assert.True(t, s.Validate(code, hash))
	assert.True(t, ValidateOTP(code, hash, "s3cret"))
	assert.False(t, ValidateOTP(code, hash, "wrong"))
	assert.False(t, s.Validate("0000", hash))
	assert.False(t, s.Validate(code, ""))
}
