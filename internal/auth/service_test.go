package auth

import (
	"context"
	"testing"
	"time"

	"github.com/mandat-pay/mandat_pay/internal/config"
	"github.com/mandat-pay/mandat_pay/internal/identity"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
}

func registerParty(t *testing.T, repo identity.Repository) identity.Party {
	t.Helper()
	party, err := identity.NewService(repo).Register(context.Background(), identity.Credentials{Phone: "+242061234567", PIN: "4321"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return party
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	repo := identity.NewMemoryRepository()
	party := registerParty(t, repo)
	svc := NewService(testConfig(), repo)

	pair, err := svc.Login(party)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := Verify(pair.AccessToken, "test-secret")
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != party.ID {
		t.Fatalf("expected sub %s, got %v", party.ID, claims["sub"])
	}

	if _, err := Verify(pair.AccessToken, "wrong-secret"); err == nil {
		t.Fatal("expected verification with wrong secret to fail")
	}
}

func TestRefreshAndLogout(t *testing.T) {
	repo := identity.NewMemoryRepository()
	party := registerParty(t, repo)
	svc := NewService(testConfig(), repo)
	ctx := context.Background()

	pair, err := svc.Login(party)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, expiresIn, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if access == "" || expiresIn <= 0 {
		t.Fatalf("unexpected refresh result: %q %d", access, expiresIn)
	}

	if err := svc.Logout(ctx, party.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	// The old refresh token carries the pre-logout version and must stop working.
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatal("expected refresh after logout to fail")
	}
}
