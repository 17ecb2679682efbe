package repository

import (
	"github.com/prperemyshlev/hrms-identity/internal/dbx"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Account AccountRepository
	OTP     OTPRepository
	Role    RoleRepository
}

// NewRepositories creates all repositories on top of db
func NewRepositories(db dbx.DBTX) *Repositories {
	return &Repositories{
		Account: NewAccountRepository(db),
		OTP:     NewOTPRepository(db),
		Role:    NewRoleRepository(db),
	}
}

// WithTx returns repositories bound to tx
func (r *Repositories) WithTx(tx dbx.DBTX) *Repositories {
	return &Repositories{
		Account: r.Account.WithTx(tx),
		OTP:     r.OTP.WithTx(tx),
		Role:    r.Role.WithTx(tx),
	}
}
