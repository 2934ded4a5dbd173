package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashwinyue/next-arena/internal/config"
	"github.com/ashwinyue/next-arena/internal/model"
	"github.com/ashwinyue/next-arena/internal/repository"
)

// fakeStore 内存用户存储
type fakeStore struct {
	users          map[string]*model.User
	tokens         map[string]*model.AuthToken
	deletedCopies  []string
	revokedForUser []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]*model.User),
		tokens: make(map[string]*model.AuthToken),
	}
}

func (f *fakeStore) CreateUser(user *model.User) error {
	for _, u := range f.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByID(id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByUsername(username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListUsers() ([]*model.User, error) {
	out := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) UpdateUser(user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) DeleteUser(user *model.User) error {
	delete(f.users, user.ID)
	f.deletedCopies = append(f.deletedCopies, user.Username)
	return nil
}

func (f *fakeStore) CreateToken(token *model.AuthToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeStore) GetTokenByValue(value string) (*model.AuthToken, error) {
	t, ok := f.tokens[value]
	if !ok || t.IsRevoked || t.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) RevokeToken(id string) error {
	for _, t := range f.tokens {
		if t.ID == id {
			t.IsRevoked = true
		}
	}
	return nil
}

func (f *fakeStore) RevokeTokensByUserID(userID string) error {
	f.revokedForUser = append(f.revokedForUser, userID)
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.IsRevoked = true
		}
	}
	return nil
}

func (f *fakeStore) DeleteExpiredTokens() error {
	for k, t := range f.tokens {
		if t.IsRevoked {
			delete(f.tokens, k)
		}
	}
	return nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	svc := NewService(store, config.AuthConfig{
		JWTSecret:     "test-secret",
		AdminUsername: "admin",
		AdminName:     "Admin Person",
		AdminPassword: "admin-pass",
	})
	return svc, store
}

func mustRegister(t *testing.T, svc *Service, name, username, password string) *model.User {
	t.Helper()
	u, err := svc.Register(context.Background(), &RegisterRequest{Name: name, Username: username, Password: password})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return u
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u := mustRegister(t, svc, "Alice", "alice", "secret1")
	if u.Role != model.RoleUser || u.PasswordHash == "secret1" || !u.IsActive {
		t.Errorf("Register() = %+v", u)
	}

	_, err := svc.Register(ctx, &RegisterRequest{Name: "Other", Username: "alice", Password: "secret2"})
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate Register() error = %v, want ErrUserExists", err)
	}
	_, err = svc.Register(ctx, &RegisterRequest{Name: " ", Username: "bob", Password: "secret"})
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("blank name error = %v, want ErrMissingField", err)
	}
}

func TestAddUser_Roles(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.AddUser(ctx, &AddUserRequest{Name: "Ed", Username: "ed", Password: "secret", Role: model.RoleEditor})
	if err != nil || u.Role != model.RoleEditor {
		t.Fatalf("AddUser() = %+v, %v", u, err)
	}
	u, err = svc.AddUser(ctx, &AddUserRequest{Name: "Default", Username: "def", Password: "secret"})
	if err != nil || u.Role != model.RoleUser {
		t.Fatalf("AddUser() without role = %+v, %v", u, err)
	}
	_, err = svc.AddUser(ctx, &AddUserRequest{Name: "X", Username: "x", Password: "secret", Role: "root"})
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("AddUser() error = %v, want ErrInvalidRole", err)
	}
}

func TestLoginAndValidate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mustRegister(t, svc, "Alice", "alice", "secret1")

	resp, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wrong"})
	if err != nil || resp.Success {
		t.Fatalf("Login() with wrong password = %+v, %v", resp, err)
	}
	resp, err = svc.Login(ctx, &LoginRequest{Username: "nobody", Password: "secret1"})
	if err != nil || resp.Success {
		t.Fatalf("Login() with unknown user = %+v, %v", resp, err)
	}

	resp, err = svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret1"})
	if err != nil || !resp.Success {
		t.Fatalf("Login() = %+v, %v", resp, err)
	}
	if resp.User.Username != "alice" || resp.Token == "" || resp.RefreshToken == "" {
		t.Errorf("Login() = %+v", resp)
	}

	user, err := svc.ValidateToken(ctx, resp.Token)
	if err != nil || user.Username != "alice" {
		t.Fatalf("ValidateToken() = %+v, %v", user, err)
	}
	if _, err := svc.ValidateToken(ctx, resp.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken(refresh) error = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.ValidateToken(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken(garbage) error = %v, want ErrInvalidToken", err)
	}

	other := NewService(newFakeStore(), config.AuthConfig{JWTSecret: "different"})
	if _, err := other.ValidateToken(ctx, resp.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() with another secret error = %v, want ErrInvalidToken", err)
	}

	if err := svc.RevokeToken(ctx, resp.Token); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}
	if _, err := svc.ValidateToken(ctx, resp.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() after revoke error = %v, want ErrInvalidToken", err)
	}
}

func TestRefreshToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mustRegister(t, svc, "Alice", "alice", "secret1")
	resp, _ := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret1"})

	access, refresh, err := svc.RefreshToken(ctx, resp.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if access == "" || refresh == resp.RefreshToken {
		t.Error("RefreshToken() should issue a new pair")
	}
	if _, _, err := svc.RefreshToken(ctx, resp.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused refresh token error = %v, want ErrInvalidToken", err)
	}
	if _, _, err := svc.RefreshToken(ctx, resp.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("RefreshToken(access) error = %v, want ErrInvalidToken", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	u := mustRegister(t, svc, "Alice", "alice", "secret1")

	tests := []struct {
		name string
		req  ChangePasswordRequest
	}{
		{"wrong name", ChangePasswordRequest{Name: "Bob", Username: "alice", CurrentPassword: "secret1", NewPassword: "secret2"}},
		{"wrong password", ChangePasswordRequest{Name: "Alice", Username: "alice", CurrentPassword: "nope", NewPassword: "secret2"}},
		{"unknown user", ChangePasswordRequest{Name: "Alice", Username: "carol", CurrentPassword: "secret1", NewPassword: "secret2"}},
	}
	for _, tt := range tests {
		if err := svc.ChangePassword(ctx, &tt.req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: ChangePassword() error = %v, want ErrInvalidCredentials", tt.name, err)
		}
	}

	req := &ChangePasswordRequest{Name: "Alice", Username: "alice", CurrentPassword: "secret1", NewPassword: "secret2"}
	if err := svc.ChangePassword(ctx, req); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	resp, _ := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret2"})
	if !resp.Success {
		t.Error("login with the new password failed")
	}
	if len(store.revokedForUser) != 1 || store.revokedForUser[0] != u.ID {
		t.Errorf("tokens revoked for %v, want [%s]", store.revokedForUser, u.ID)
	}

	if err := svc.ChangeOwnPassword(ctx, u.ID, "secret2", "secret3"); err != nil {
		t.Fatalf("ChangeOwnPassword() error = %v", err)
	}
	if err := svc.ChangeOwnPassword(ctx, u.ID, "secret2", "secret4"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChangeOwnPassword() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	if err := svc.EnsureAdmin(ctx); err != nil {
		t.Fatalf("second EnsureAdmin() error = %v", err)
	}
	if len(store.users) != 1 {
		t.Fatalf("users = %d, want 1", len(store.users))
	}
	admin, _ := store.GetUserByUsername("admin")
	if admin.Role != model.RoleSuperAdmin || admin.Name != "Admin Person" {
		t.Errorf("admin = %+v", admin)
	}
	resp, _ := svc.Login(ctx, &LoginRequest{Username: "admin", Password: "admin-pass"})
	if !resp.Success {
		t.Error("admin login failed")
	}
}

func TestDeleteAndResetUser(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	if err := svc.EnsureAdmin(ctx); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	admin, _ := store.GetUserByUsername("admin")
	alice := mustRegister(t, svc, "Alice", "alice", "secret1")

	if err := svc.DeleteUser(ctx, admin.ID); !errors.Is(err, ErrProtectedUser) {
		t.Errorf("DeleteUser(admin) error = %v, want ErrProtectedUser", err)
	}
	if err := svc.ResetPassword(ctx, admin.ID, "x123456"); !errors.Is(err, ErrProtectedUser) {
		t.Errorf("ResetPassword(admin) error = %v, want ErrProtectedUser", err)
	}

	if err := svc.ResetPassword(ctx, alice.ID, "reset1"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	resp, _ := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "reset1"})
	if !resp.Success {
		t.Error("login after reset failed")
	}

	if err := svc.DeleteUser(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if len(store.deletedCopies) != 1 || store.deletedCopies[0] != "alice" {
		t.Errorf("deleted = %v", store.deletedCopies)
	}
	if err := svc.DeleteUser(ctx, alice.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second DeleteUser() error = %v, want ErrUserNotFound", err)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil || len(users) != 1 || users[0].Username != "admin" {
		t.Errorf("ListUsers() = %+v, %v", users, err)
	}
}
