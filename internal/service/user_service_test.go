package service

import (
	"context"
	"errors"
	"testing"

	"indialaw-go/internal/model"
	"indialaw-go/internal/testutil"
	"indialaw-go/pkg/token"
)

func newUserFixture() (UserService, *token.JWTManager, *fakeBlacklist) {
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	blacklist := newFakeBlacklist()
	return NewUserService(testutil.NewUserRepo(), jwtManager, blacklist), jwtManager, blacklist
}

func TestUserService_Register(t *testing.T) {
	svc, _, _ := newUserFixture()

	u, err := svc.Register(context.Background(), " alice ", "secret1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.Username != "alice" || u.Role != model.RoleUser || u.Password == "secret1" {
		t.Errorf("user = %+v", u)
	}
	if _, err := svc.Register(context.Background(), "alice", "secret2"); !errors.Is(err, model.ErrConflict) {
		t.Errorf("duplicate error = %v, want ErrConflict", err)
	}
	if _, err := svc.Register(context.Background(), "bob", "123"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("short password error = %v, want ErrValidation", err)
	}
	if _, err := svc.Register(context.Background(), "  ", "secret1"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("blank username error = %v, want ErrValidation", err)
	}
}

func TestUserService_Login(t *testing.T) {
	svc, jwtManager, _ := newUserFixture()
	u, _ := svc.Register(context.Background(), "alice", "secret1")

	access, refresh, err := svc.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	claims, err := jwtManager.VerifyToken(access, token.TypeAccess)
	if err != nil || claims.UserID != u.ID || claims.Role != model.RoleUser {
		t.Errorf("access claims = %+v, %v", claims, err)
	}
	if _, err := jwtManager.VerifyToken(refresh, token.TypeRefresh); err != nil {
		t.Errorf("refresh token invalid: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v", err)
	}
}

func TestUserService_LogoutRevokesToken(t *testing.T) {
	svc, jwtManager, _ := newUserFixture()
	_, _ = svc.Register(context.Background(), "alice", "secret1")
	access, _, _ := svc.Login(context.Background(), "alice", "secret1")
	claims, _ := jwtManager.VerifyToken(access, token.TypeAccess)

	if revoked, _ := svc.IsRevoked(context.Background(), claims); revoked {
		t.Fatal("fresh token must not be revoked")
	}
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if revoked, _ := svc.IsRevoked(context.Background(), claims); !revoked {
		t.Error("token must be revoked after logout")
	}
}

func TestUserService_RefreshToken(t *testing.T) {
	svc, jwtManager, _ := newUserFixture()
	_, _ = svc.Register(context.Background(), "alice", "secret1")
	access, refresh, _ := svc.Login(context.Background(), "alice", "secret1")

	if _, _, err := svc.RefreshToken(context.Background(), access); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("access token used as refresh: error = %v", err)
	}

	newAccess, newRefresh, err := svc.RefreshToken(context.Background(), refresh)
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if _, err := jwtManager.VerifyToken(newAccess, token.TypeAccess); err != nil {
		t.Errorf("new access token invalid: %v", err)
	}
	if newRefresh == refresh {
		t.Error("refresh token must rotate")
	}
	if _, _, err := svc.RefreshToken(context.Background(), refresh); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("reused refresh token error = %v", err)
	}
}

func TestUserService_GetProfile(t *testing.T) {
	svc, _, _ := newUserFixture()
	u, _ := svc.Register(context.Background(), "alice", "secret1")
	got, err := svc.GetProfile(context.Background(), u.ID)
	if err != nil || got.Username != "alice" {
		t.Errorf("GetProfile() = %+v, %v", got, err)
	}
	if _, err := svc.GetProfile(context.Background(), 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown id error = %v", err)
	}
}
