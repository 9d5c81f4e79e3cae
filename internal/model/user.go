package model

import "time"

// Role is the closed set of roles the service understands.  Role checks
// are done by exhaustive membership against these constants at the
// routing boundary; there is no free-form role string anywhere else.
type Role string

const (
    RoleAdmin     Role = "ADMIN"     // platform operators
    RoleOrganizer Role = "ORGANIZER" // event owners; may issue and scan
    RoleStaff     Role = "STAFF"     // door staff; may scan only
    RolePartner   Role = "PARTNER"   // partner venues; coupon issuing and scanning
    RoleMember    Role = "MEMBER"    // end users holding credentials
)

// ParseRole normalizes a raw role claim into one of the known constants.
// Unknown values return false so callers can reject them outright.
func ParseRole(s string) (Role, bool) {
    switch Role(s) {
    case RoleAdmin, RoleOrganizer, RoleStaff, RolePartner, RoleMember:
        return Role(s), true
    }
    return "", false
}

// User represents a row in the users table.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique email address.
//  DisplayName  – name shown on scan responses and reports.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of the Role constants.
//  IsActive     – whether the account is active.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    DisplayName  string    // users.display_name
    PasswordHash string    // users.password_hash
    Role         Role      // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the refresh_tokens table.  Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
