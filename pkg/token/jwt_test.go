package token

import (
	"testing"
	"time"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)
	tok, err := m.GenerateToken(42, "asha", "USER")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := m.VerifyToken(tok, TypeAccess)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.Username != "asha" || claims.Role != "USER" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("token id must be set")
	}
}

func TestJWTManager_RejectsWrongTypeAndSecret(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)
	refresh, _ := m.GenerateRefreshToken(1, "a", "USER")
	if _, err := m.VerifyToken(refresh, TypeAccess); err == nil {
		t.Error("refresh token must not verify as access token")
	}
	if _, err := m.VerifyToken(refresh, TypeRefresh); err != nil {
		t.Errorf("refresh token should verify as refresh: %v", err)
	}

	other := NewJWTManager("other", 1, 7)
	access, _ := other.GenerateToken(1, "a", "USER")
	if _, err := m.VerifyToken(access, TypeAccess); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}

func TestJWTManager_Expired(t *testing.T) {
	m := &JWTManager{secretKey: []byte("s"), accessTokenDur: -time.Minute}
	tok, _ := m.GenerateToken(1, "a", "USER")
	if _, err := m.VerifyToken(tok, TypeAccess); err == nil {
		t.Error("expired token must be rejected")
	}
}
