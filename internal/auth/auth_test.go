package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, c claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseValidToken(t *testing.T) {
	parser := NewParser("test-secret")
	userID := uuid.New()
	contractorID := uuid.New()

	token := signToken(t, "test-secret", claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:         "driver",
		ContractorID: contractorID.String(),
	})

	principal, err := parser.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, "driver", principal.Role)
	assert.Equal(t, contractorID, principal.ContractorID)
	assert.True(t, principal.IsDriver())
}

func TestParseRejectsBadTokens(t *testing.T) {
	parser := NewParser("test-secret")
	userID := uuid.New()

	expired := signToken(t, "test-secret", claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Role: "customer",
	})
	_, err := parser.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey := signToken(t, "other-secret", claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "customer",
	})
	_, err = parser.Parse(wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badSubject := signToken(t, "test-secret", claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "customer",
	})
	_, err = parser.Parse(badSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = parser.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
