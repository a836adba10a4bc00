package gate

import (
	"context"
	"fmt"
	"time"
)

// Lockout policy.
const (
	// MaxLoginAttempts is the failed-attempt threshold that locks an account.
	MaxLoginAttempts = 5
	// LockDuration is how long a locked account stays unauthenticatable.
	LockDuration = 30 * time.Minute
)

// Login outcomes.
const (
	// LoginOK marks a successful authentication.
	LoginOK = "ok"
	// LoginLocked marks an attempt against a locked account, or the attempt
	// that reached the threshold.
	LoginLocked = "locked"
	// LoginRejected marks a failed attempt below the threshold.
	LoginRejected = "rejected"
)

// LoginResult is the structured outcome of a login evaluation.
type LoginResult struct {
	Outcome   string     // ok, locked or rejected.
	LockUntil *time.Time // Lock expiry when Outcome is locked.
	Attempts  int        // Failed-attempt count after this evaluation.
}

// EvaluateLogin applies one login attempt to the lockout state machine.
//
// A lock in the future rejects the attempt before credential validity is even
// considered, without touching the counter — repeated attempts against a
// locked account never extend the lock. Lock expiry is lazy: an expired lock
// is cleared by the next evaluation, and a failing attempt after expiry
// counts as the first of a fresh sequence.
func (g *Gate) EvaluateLogin(ctx context.Context, accountID string, credentialValid bool) (LoginResult, error) {
	account, errGet := g.store.Get(ctx, accountID)
	if errGet != nil {
		return LoginResult{}, errGet
	}

	now := g.nowFn()
	if account.LockUntil != nil && now.Before(*account.LockUntil) {
		return LoginResult{Outcome: LoginLocked, LockUntil: account.LockUntil, Attempts: account.LoginAttempts}, nil
	}
	lockExpired := account.LockUntil != nil

	if credentialValid {
		errApply := g.store.Apply(ctx, accountID, map[string]FieldOp{
			FieldLoginAttempts: Set{0},
			FieldLockUntil:     Set{nil},
			FieldLastLogin:     Set{now},
		})
		if errApply != nil {
			return LoginResult{}, fmt.Errorf("reset login attempts: %w", errApply)
		}
		return LoginResult{Outcome: LoginOK}, nil
	}

	attempts := account.LoginAttempts
	if lockExpired {
		attempts = 0
	}
	next := attempts + 1

	if next >= MaxLoginAttempts {
		lockUntil := now.Add(LockDuration)
		errApply := g.store.Apply(ctx, accountID, map[string]FieldOp{
			FieldLoginAttempts: Set{MaxLoginAttempts},
			FieldLockUntil:     Set{lockUntil},
		})
		if errApply != nil {
			return LoginResult{}, fmt.Errorf("lock account: %w", errApply)
		}
		return LoginResult{Outcome: LoginLocked, LockUntil: &lockUntil, Attempts: MaxLoginAttempts}, nil
	}

	if lockExpired {
		// Fresh sequence after lazy expiry: this failure is attempt one.
		errApply := g.store.Apply(ctx, accountID, map[string]FieldOp{
			FieldLoginAttempts: Set{1},
			FieldLockUntil:     Set{nil},
		})
		if errApply != nil {
			return LoginResult{}, fmt.Errorf("restart login attempts: %w", errApply)
		}
		return LoginResult{Outcome: LoginRejected, Attempts: 1}, nil
	}

	if errApply := g.store.Apply(ctx, accountID, map[string]FieldOp{
		FieldLoginAttempts: Inc{1},
	}); errApply != nil {
		return LoginResult{}, fmt.Errorf("count login attempt: %w", errApply)
	}
	return LoginResult{Outcome: LoginRejected, Attempts: next}, nil
}
