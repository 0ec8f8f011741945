package orgvault

import (
	"context"
	"errors"
	"testing"

	"github.com/orgvault/client-go/internal/crypto"
)

func TestResetPassword_RecoversIdentity(t *testing.T) {
	vault := newFakeVault(t)
	ctx := context.Background()

	client, enroll := registerCreator(t, vault)
	client.Logout()

	vault.addReset("reset-1", "alice@example.com")

	fresh := vault.client(t)
	info, err := fresh.ValidateReset(ctx, "reset-1")
	if err != nil {
		t.Fatalf("ValidateReset() error = %v", err)
	}
	if !info.Valid || info.Email != "alice@example.com" {
		t.Fatalf("ValidateReset() = %+v", info)
	}

	newRecovery, err := fresh.ResetPassword(ctx, "reset-1", enroll.RecoveryKey, "BatteryStaple99")
	if err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if newRecovery == "" || newRecovery == enroll.RecoveryKey {
		t.Error("ResetPassword() did not issue a fresh recovery key")
	}

	// New password resolves the same identity and the org key envelope,
	// proving the private key survived the reset intact.
	login := vault.client(t)
	user, err := login.Login(ctx, "alice@example.com", "BatteryStaple99")
	if err != nil {
		t.Fatalf("Login() after reset error = %v", err)
	}
	if user.ID != enroll.User.ID {
		t.Errorf("user.ID = %q, want %q", user.ID, enroll.User.ID)
	}
	if !login.Session().HasOrgKey(user.ActiveOrgID) {
		t.Error("org key not resolved after reset; private key was lost")
	}

	// Old password is dead.
	stale := vault.client(t)
	if _, err := stale.Login(ctx, "alice@example.com", "CorrectHorse123"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("Login(old password) error = %v, want ErrAuthenticationFailed", err)
	}
}

func TestResetPassword_WrongRecoveryKey(t *testing.T) {
	vault := newFakeVault(t)
	ctx := context.Background()

	client, _ := registerCreator(t, vault)
	client.Logout()
	vault.addReset("reset-1", "alice@example.com")

	// Well-formed but wrong key: the unwrap fails before any write.
	wrong, err := crypto.GenerateRecoveryKey()
	if err != nil {
		t.Fatal(err)
	}

	fresh := vault.client(t)
	_, err = fresh.ResetPassword(ctx, "reset-1", crypto.FormatRecoveryKey(wrong), "BatteryStaple99")
	if !errors.Is(err, ErrInvalidRecoveryKey) {
		t.Errorf("ResetPassword() error = %v, want ErrInvalidRecoveryKey", err)
	}

	// Token must survive the failed attempt.
	vault.mu.Lock()
	_, ok := vault.resets["reset-1"]
	vault.mu.Unlock()
	if !ok {
		t.Error("reset token consumed by a failed recovery attempt")
	}
}

func TestResetPassword_MalformedRecoveryKey(t *testing.T) {
	vault := newFakeVault(t)
	fresh := vault.client(t)

	_, err := fresh.ResetPassword(context.Background(), "reset-1", "not a recovery key", "BatteryStaple99")
	if !errors.Is(err, ErrInvalidRecoveryKey) {
		t.Errorf("ResetPassword() error = %v, want ErrInvalidRecoveryKey", err)
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	vault := newFakeVault(t)
	ctx := context.Background()

	_, enroll := registerCreator(t, vault)

	fresh := vault.client(t)
	_, err := fresh.ResetPassword(ctx, "no-such-token", enroll.RecoveryKey, "BatteryStaple99")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ResetPassword() error = %v, want ErrInvalidToken", err)
	}
}

func TestForgotPassword_UniformResponse(t *testing.T) {
	vault := newFakeVault(t)
	client := vault.client(t)
	ctx := context.Background()

	// Same outcome whether or not the account exists.
	if err := client.ForgotPassword(ctx, "nobody@example.com"); err != nil {
		t.Errorf("ForgotPassword(unknown) error = %v", err)
	}
}
