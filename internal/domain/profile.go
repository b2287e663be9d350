package domain

import "time"

// Role names stored on a Profile. A profile always has exactly one role.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// ValidRole reports whether r is a known role name.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin || r == RoleSuperAdmin
}

// Profile holds the application-level attributes of an authenticated user.
type Profile struct {
	UserID    string    `json:"id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	FullName  string    `json:"full_name" dynamodbav:"full_name"`
	Role      string    `json:"role" dynamodbav:"role"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// IsAdmin reports admin capability: admin or super_admin.
func (p *Profile) IsAdmin() bool {
	return p != nil && (p.Role == RoleAdmin || p.Role == RoleSuperAdmin)
}

// IsSuperAdmin reports whether the profile holds the super_admin role.
func (p *Profile) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin super_admin"`
}
