// Package auth validates access tokens issued by the account service and
// extracts the request principal.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/umuve/dispatch-engine/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	ContractorID string `json:"contractor_id,omitempty"`
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

// Parse verifies the token signature and expiry and returns the principal.
func (p *Parser) Parse(tokenString string) (model.Principal, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Principal{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return model.Principal{}, ErrInvalidToken
	}

	principal := model.Principal{
		UserID: userID,
		Role:   c.Role,
	}
	if c.ContractorID != "" {
		contractorID, err := uuid.Parse(c.ContractorID)
		if err != nil {
			return model.Principal{}, ErrInvalidToken
		}
		principal.ContractorID = contractorID
	}
	return principal, nil
}
