// models/user.go - operator identity and stored credentials
package models

import (
	"time"
)

// Roles
const (
	RoleOperator   = "operator"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// Identity is the already-authenticated caller as resolved by the auth middleware.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
}

// System is the identity used for engine-originated actions.
var System = Identity{UserID: "system", Name: "System", Role: RoleSuperAdmin}

type User struct {
	ID       string `json:"id" bson:"_id"`
	Email    string `json:"email" bson:"email"`
	Name     string `json:"name" bson:"name"`
	Role     string `json:"role" bson:"role"`
	IsActive bool   `json:"isActive" bson:"isActive"`

	// Shutdown credentials. The secret is stored as a bcrypt hash; the TOTP
	// secret is optional and enables the second factor when present.
	ShutdownSecretHash string `json:"-" bson:"shutdownSecretHash,omitempty"`
	TwoFactorEnabled   bool   `json:"twoFactorEnabled" bson:"twoFactorEnabled"`
	TwoFactorSecret    string `json:"-" bson:"twoFactorSecret,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ShutdownCredential is what the verifier needs from a user record.
type ShutdownCredential struct {
	UserID           string
	SecretHash       string
	TwoFactorEnabled bool
	TwoFactorSecret  string
}
