package models

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2secret")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2secret", hash)

	u := User{PasswordHash: hash}
	assert.True(t, u.CheckPassword("hunter2secret"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestTOTPEnrollment(t *testing.T) {
	enrollment, err := NewTOTPEnrollment("timeoff-tracker", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	assert.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	assert.True(t, VerifyTOTPCode(enrollment.Secret, code))
	assert.False(t, VerifyTOTPCode(enrollment.Secret, "000000"))
}
