// Package identity verifies account credentials. The quota gate never sees
// passwords; it only learns whether an attempt was valid.
package identity

import (
	"context"
	"errors"

	"github.com/gymmind/coach-api/internal/gate"
	"github.com/gymmind/coach-api/internal/models"
	"github.com/gymmind/coach-api/internal/security"
	"github.com/gymmind/coach-api/internal/store"
)

// ErrUnknownIdentity indicates no active account matches the email.
var ErrUnknownIdentity = errors.New("identity: unknown account")

// Provider resolves an email/password pair to an account and a verdict on the
// supplied password. Implementations must not reveal through errors whether
// the email or the password was wrong.
type Provider interface {
	// VerifyCredentials loads the active account for the email and reports
	// whether the password matches its stored hash. The account is returned
	// even when the password does not match, so the caller can run the
	// lockout state machine against it.
	VerifyCredentials(ctx context.Context, email, password string) (*models.Account, bool, error)
}

// LocalProvider verifies credentials against bcrypt hashes in the account
// store.
type LocalProvider struct {
	accounts *store.GormAccountStore
}

// NewLocalProvider constructs a LocalProvider.
func NewLocalProvider(accounts *store.GormAccountStore) *LocalProvider {
	return &LocalProvider{accounts: accounts}
}

// VerifyCredentials implements Provider.
func (p *LocalProvider) VerifyCredentials(ctx context.Context, email, password string) (*models.Account, bool, error) {
	account, errGet := p.accounts.GetByEmail(ctx, email, true)
	if errGet != nil {
		if errors.Is(errGet, gate.ErrAccountNotFound) {
			return nil, false, ErrUnknownIdentity
		}
		return nil, false, errGet
	}
	return account, security.CheckPassword(account.Password, password), nil
}
