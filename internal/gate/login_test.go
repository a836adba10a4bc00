package gate

import (
	"context"
	"testing"
	"time"
)

func TestEvaluateLoginSuccessResetsAttempts(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	store := newMemStore(freeAccount(now))
	store.account.LoginAttempts = 3
	g := New(store, WithClock(func() time.Time { return now }))

	result, errLogin := g.EvaluateLogin(context.Background(), "acct-1", true)
	if errLogin != nil {
		t.Fatalf("login failed: %v", errLogin)
	}
	if result.Outcome != LoginOK {
		t.Fatalf("expected ok, got %q", result.Outcome)
	}
	if store.account.LoginAttempts != 0 || store.account.LockUntil != nil {
		t.Fatalf("expected reset state, got attempts=%d lock=%v",
			store.account.LoginAttempts, store.account.LockUntil)
	}
	if store.account.LastLogin == nil || !store.account.LastLogin.Equal(now) {
		t.Fatalf("expected last login %v, got %v", now, store.account.LastLogin)
	}
}

func TestEvaluateLoginFifthFailureLocks(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	store := newMemStore(freeAccount(now))
	g := New(store, WithClock(func() time.Time { return now }))

	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		result, errLogin := g.EvaluateLogin(ctx, "acct-1", false)
		if errLogin != nil {
			t.Fatalf("attempt %d failed: %v", i, errLogin)
		}
		if result.Outcome != LoginRejected || result.Attempts != i {
			t.Fatalf("attempt %d: expected rejected/%d, got %q/%d", i, i, result.Outcome, result.Attempts)
		}
	}

	result, errLogin := g.EvaluateLogin(ctx, "acct-1", false)
	if errLogin != nil {
		t.Fatalf("fifth attempt failed: %v", errLogin)
	}
	if result.Outcome != LoginLocked {
		t.Fatalf("expected the threshold attempt itself to report locked, got %q", result.Outcome)
	}
	wantLock := now.Add(LockDuration)
	if result.LockUntil == nil || !result.LockUntil.Equal(wantLock) {
		t.Fatalf("expected lock until %v, got %v", wantLock, result.LockUntil)
	}
	if store.account.LoginAttempts != MaxLoginAttempts {
		t.Fatalf("expected attempts %d, got %d", MaxLoginAttempts, store.account.LoginAttempts)
	}
}

func TestEvaluateLoginLockedRejectsWithoutExtending(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	lockUntil := now.Add(10 * time.Minute)
	store := newMemStore(freeAccount(now))
	store.account.LoginAttempts = MaxLoginAttempts
	store.account.LockUntil = &lockUntil
	g := New(store, WithClock(func() time.Time { return now }))

	ctx := context.Background()
	// Even a correct password bounces off an active lock.
	for _, valid := range []bool{false, true} {
		result, errLogin := g.EvaluateLogin(ctx, "acct-1", valid)
		if errLogin != nil {
			t.Fatalf("login failed: %v", errLogin)
		}
		if result.Outcome != LoginLocked {
			t.Fatalf("expected locked, got %q", result.Outcome)
		}
		if result.LockUntil == nil || !result.LockUntil.Equal(lockUntil) {
			t.Fatalf("lock must not extend: expected %v, got %v", lockUntil, result.LockUntil)
		}
	}
	if !store.account.LockUntil.Equal(lockUntil) {
		t.Fatalf("stored lock changed under active lock")
	}
}

func TestEvaluateLoginLazyExpiryFailureStartsFresh(t *testing.T) {
	start := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	lockUntil := start.Add(LockDuration)
	store := newMemStore(freeAccount(start))
	store.account.LoginAttempts = MaxLoginAttempts
	store.account.LockUntil = &lockUntil

	after := lockUntil.Add(time.Minute)
	g := New(store, WithClock(func() time.Time { return after }))

	result, errLogin := g.EvaluateLogin(context.Background(), "acct-1", false)
	if errLogin != nil {
		t.Fatalf("login failed: %v", errLogin)
	}
	if result.Outcome != LoginRejected || result.Attempts != 1 {
		t.Fatalf("expected rejected with fresh attempt 1, got %q/%d", result.Outcome, result.Attempts)
	}
	if store.account.LoginAttempts != 1 || store.account.LockUntil != nil {
		t.Fatalf("expected attempts=1 lock cleared, got attempts=%d lock=%v",
			store.account.LoginAttempts, store.account.LockUntil)
	}
}

func TestEvaluateLoginLazyExpirySuccessUnlocks(t *testing.T) {
	start := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	lockUntil := start.Add(LockDuration)
	store := newMemStore(freeAccount(start))
	store.account.LoginAttempts = MaxLoginAttempts
	store.account.LockUntil = &lockUntil

	after := lockUntil.Add(time.Second)
	g := New(store, WithClock(func() time.Time { return after }))

	result, errLogin := g.EvaluateLogin(context.Background(), "acct-1", true)
	if errLogin != nil {
		t.Fatalf("login failed: %v", errLogin)
	}
	if result.Outcome != LoginOK {
		t.Fatalf("expected ok after expiry, got %q", result.Outcome)
	}
	if store.account.LoginAttempts != 0 || store.account.LockUntil != nil {
		t.Fatalf("expected cleared lock state, got attempts=%d lock=%v",
			store.account.LoginAttempts, store.account.LockUntil)
	}
}
