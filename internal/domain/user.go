package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusDisabled Status = "disabled"
)

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusPending, StatusDisabled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Field limits shared by request validation and the stores.
const (
	MaxNameLength  = 50
	MaxEmailLength = 254
	MaxPhoneLength = 20
)

// User represents a registered account.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	// Phone is optional; the empty string means absent and never collides.
	Phone string
	// PasswordHash is filled by SetPassword or loaded from the store. It is
	// empty unless the user was fetched with one of the WithPassword lookups.
	PasswordHash    string
	Role            Role
	Status          Status
	EmailVerifiedAt *time.Time
	ProfileImage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PasswordHasher turns a plaintext password into a storable hash.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// SetPassword hashes plaintext with h and stores the result. It is the only
// way a password hash is assigned outside the stores.
func (u *User) SetPassword(h PasswordHasher, plaintext string) error {
	hash, err := h.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	return nil
}

// Normalize trims every text field and lowercases the email, matching the
// normalization applied to lookups.
func (u *User) Normalize() {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Email = NormalizeEmail(u.Email)
	u.Phone = NormalizePhone(u.Phone)
	u.ProfileImage = strings.TrimSpace(u.ProfileImage)
}

// IsDisabled reports whether the account is barred from logging in.
func (u *User) IsDisabled() bool {
	return u.Status == StatusDisabled
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone trims a phone number.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// NormalizeIdentifier normalizes a login identifier as an email when it looks
// like one and as a phone number otherwise.
func NormalizeIdentifier(identifier string) string {
	if IsEmailIdentifier(identifier) {
		return NormalizeEmail(identifier)
	}
	return NormalizePhone(identifier)
}

// IsEmailIdentifier reports whether a login identifier should be matched
// against emails rather than phone numbers.
func IsEmailIdentifier(identifier string) bool {
	return strings.Contains(identifier, "@")
}

// PublicProfile is the client-safe view of a User. It has no password field.
type PublicProfile struct {
	ID              string     `json:"id"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	Role            Role       `json:"role"`
	Status          Status     `json:"status"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	ProfileImage    string     `json:"profileImage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Public returns the public profile of u.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Phone:           u.Phone,
		Role:            u.Role,
		Status:          u.Status,
		EmailVerifiedAt: u.EmailVerifiedAt,
		ProfileImage:    u.ProfileImage,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
