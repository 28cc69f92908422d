package auth

import (
	"time"

	"github.com/mtechcare/backoffice/internal/rbac"
	"github.com/mtechcare/backoffice/internal/users"
)

// LoginInput carries credentials plus request metadata for auditing.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Account      users.Account
	Permissions  rbac.PermissionSet
	AccessToken  Token
	RefreshToken Token
}

// LoginEvent is the audit record of a successful login.
type LoginEvent struct {
	AccountID int64     `json:"accountId"`
	Email     string    `json:"email"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	At        time.Time `json:"at"`
}

// AdminProfile is the caller's own identity and effective modules.
type AdminProfile struct {
	ID       int64
	Email    string
	Name     *string
	Role     users.Role
	Modules  rbac.ModuleSet
	ViewOnly bool
}
