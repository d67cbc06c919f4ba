package model

import "github.com/google/uuid"

// Principal is the authenticated actor extracted from the access token.
// ContractorID is set only for driver/operator tokens.
type Principal struct {
	UserID       uuid.UUID
	Role         string
	ContractorID uuid.UUID
}

func (p Principal) IsCustomer() bool { return p.Role == "customer" }
func (p Principal) IsDriver() bool   { return p.Role == "driver" }
func (p Principal) IsOperator() bool { return p.Role == "operator" }
func (p Principal) IsAdmin() bool    { return p.Role == "admin" }
