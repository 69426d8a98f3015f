package domain

import "time"

// Role enumerates the access levels an account can hold.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
	RoleBasic      Role = "basic"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin, RoleBasic:
		return true
	}
	return false
}

// Account mirrors the persisted representation in the accounts table.
// Email is always stored lowercase and is unique across all accounts,
// including soft-deleted ones.
type Account struct {
	ID                  string
	Email               string
	Name                string
	Surname             string
	Age                 int
	BirthDate           time.Time
	Role                Role
	PasswordHash        string
	Deleted             bool
	Blocked             bool
	FailedLoginAttempts int
	LockoutUntil        *time.Time
	LastLoginAt         *time.Time
	LastLoginIP         *string
	ModifiedBy          *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Sanitized returns a copy of the account with the credential cleared.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	return a
}

// LockedAt reports whether the account is under an active lockout at the
// provided instant.
func (a Account) LockedAt(now time.Time) bool {
	return a.LockoutUntil != nil && a.LockoutUntil.After(now)
}

// Actor identifies who triggered a lifecycle transition. The zero value
// denotes a system-initiated action.
type Actor struct {
	ID    string
	Email string
}

// System reports whether the action has no human actor behind it.
func (a Actor) System() bool {
	return a.ID == "" && a.Email == ""
}

// ProfilePatch carries the optional fields of an account update. Nil fields
// are left untouched.
type ProfilePatch struct {
	Email     *string
	Name      *string
	Surname   *string
	Age       *int
	BirthDate *time.Time
	Role      *Role
	Password  *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Email == nil && p.Name == nil && p.Surname == nil &&
		p.Age == nil && p.BirthDate == nil && p.Role == nil && p.Password == nil
}
