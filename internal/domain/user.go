package domain

import "time"

// UserRole enumerates the roles that shape list scoping and permissions.
type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleTechnician UserRole = "technician"
	RoleAdmin      UserRole = "admin"
)

// User models anyone who can sign in: requesters, technicians, admins.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
