package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleHandyman  Role = "HANDYMAN"
	RoleInspector Role = "INSPECTOR"
)

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsHandyman() bool {
	return p.Role == RoleHandyman
}

func (p Principal) IsInspector() bool {
	return p.Role == RoleInspector
}
