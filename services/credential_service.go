package services

import (
	"context"
	"eventops/interfaces"
	"eventops/utils"
	"time"
)

// CredentialService checks the caller's shutdown secret and, when enrolled,
// their TOTP code. Both factors must match.
type CredentialService struct {
	store     interfaces.CredentialStore
	passwords *utils.PasswordService
}

func NewCredentialService(store interfaces.CredentialStore, passwords *utils.PasswordService) *CredentialService {
	return &CredentialService{
		store:     store,
		passwords: passwords,
	}
}

// Check reports whether secret (and otpCode, for enrolled users) matches the
// stored credential of userID at the instant at. A missing user is a mismatch,
// not an error.
func (cs *CredentialService) Check(ctx context.Context, userID, secret, otpCode string, at time.Time) (bool, error) {
	cred, err := cs.store.GetShutdownCredential(ctx, userID)
	if err != nil {
		if utils.IsKind(err, utils.ErrCodeNotFound) {
			return false, nil
		}
		return false, utils.WrapDatabaseError(err, "get shutdown credential")
	}

	if !cs.passwords.CheckPassword(cred.SecretHash, secret) {
		return false, nil
	}

	if cred.TwoFactorEnabled {
		if otpCode == "" || !utils.ValidateTOTP(otpCode, cred.TwoFactorSecret, at) {
			return false, nil
		}
	}

	return true, nil
}
