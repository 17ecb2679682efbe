package domain

import "errors"

// Expected, user-facing outcomes of the identity flows.
var (
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountBlocked        = errors.New("account is blocked")
	ErrAccountNotFound       = errors.New("account not found")
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrMissingCredential     = errors.New("missing or malformed bearer credential")
	ErrInvalidOrExpiredOTP   = errors.New("invalid or expired code")
	ErrEmailAlreadyExists    = errors.New("email already registered")
	ErrPhoneAlreadyExists    = errors.New("phone already registered")
	ErrInsufficientRole      = errors.New("insufficient role")
	ErrInvalidSocialToken    = errors.New("invalid social token")
	ErrProviderAlreadyLinked = errors.New("account already linked to another identity for this provider")
	ErrDeliveryFailed        = errors.New("could not deliver verification code")
	ErrValidation            = errors.New("validation failed")
	ErrRateLimited           = errors.New("rate limit exceeded")

	// ErrSigningKeyUnavailable is fatal for request authorization.
	ErrSigningKeyUnavailable = errors.New("token signing key unavailable")
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
