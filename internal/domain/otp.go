package domain

import "time"

// OTPPurpose separates registration codes from password-reset codes.
type OTPPurpose string

const (
	OTPPurposeRegistration  OTPPurpose = "registration"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// RegistrationPayload is the pending account carried by a registration OTP.
// PasswordHash is already hashed; the plaintext never reaches storage.
type RegistrationPayload struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"password_hash"`
	Phone        *string `json:"phone,omitempty"`
}

// OTP is a one-time code record.
type OTP struct {
	ID        string               `json:"id" db:"id"`
	Email     string               `json:"email" db:"email"`
	Code      string               `json:"-" db:"code"`
	Purpose   OTPPurpose           `json:"purpose" db:"purpose"`
	Payload   *RegistrationPayload `json:"-" db:"payload"`
	IsUsed    bool                 `json:"is_used" db:"is_used"`
	CreatedAt time.Time            `json:"created_at" db:"created_at"`
	ExpiresAt time.Time            `json:"expires_at" db:"expires_at"`
}

// IsValidAt reports whether the code can still be consumed at now.
func (o *OTP) IsValidAt(now time.Time) bool {
	return !o.IsUsed && now.Before(o.ExpiresAt)
}
