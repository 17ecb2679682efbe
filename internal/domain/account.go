package domain

import (
	"strings"
	"time"
)

// Provider identifies a supported social identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderLinkedIn Provider = "linkedin"
)

// Providers lists every provider that has an external-id slot on Account.
var Providers = []Provider{ProviderGoogle, ProviderFacebook, ProviderLinkedIn}

// ParseProvider normalizes a provider name and reports whether it is supported.
func ParseProvider(name string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, true
		}
	}
	return "", false
}

const RoleAdmin = "admin"

// Account represents an identity in the system
type Account struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Phone        *string    `json:"phone" db:"phone"`
	PasswordHash *string    `json:"-" db:"password_hash"`
	GoogleID     *string    `json:"-" db:"google_id"`
	FacebookID   *string    `json:"-" db:"facebook_id"`
	LinkedInID   *string    `json:"-" db:"linkedin_id"`
	AvatarURL    *string    `json:"avatar_url" db:"avatar_url"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsVerified   bool       `json:"is_verified" db:"is_verified"`
	IsSocial     bool       `json:"is_social" db:"is_social"`
	BlockedAt    *time.Time `json:"blocked_at" db:"blocked_at"`
	BlockedBy    *string    `json:"blocked_by" db:"blocked_by"`
	BlockReason  *string    `json:"block_reason" db:"block_reason"`
	DeletedAt    *time.Time `json:"-" db:"deleted_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	Roles        []string   `json:"roles" db:"-"`
}

// ExternalID returns the stored identifier for provider, if any.
func (a *Account) ExternalID(provider Provider) *string {
	switch provider {
	case ProviderGoogle:
		return a.GoogleID
	case ProviderFacebook:
		return a.FacebookID
	case ProviderLinkedIn:
		return a.LinkedInID
	}
	return nil
}

// SetExternalID stores id in the provider's slot.
func (a *Account) SetExternalID(provider Provider, id string) {
	switch provider {
	case ProviderGoogle:
		a.GoogleID = &id
	case ProviderFacebook:
		a.FacebookID = &id
	case ProviderLinkedIn:
		a.LinkedInID = &id
	}
}

// IsBlocked is the same flag as IsActive seen from the blocking side.
func (a *Account) IsBlocked() bool {
	return !a.IsActive
}

func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// HasRole compares role names case-insensitively.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// SocialIdentity is what a provider asserts about the person behind a token.
type SocialIdentity struct {
	Provider    Provider
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   *string
}
