package admin

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pollwinner/backend/internal/models"
)

type mockStore struct {
	mu     sync.Mutex
	admins map[string]*models.Admin
}

func newMockStore() *mockStore {
	return &mockStore{admins: make(map[string]*models.Admin)}
}

func (m *mockStore) Create(_ context.Context, a *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.admins[a.AdminID] = &cp
	return nil
}

func (m *mockStore) GetByEmail(_ context.Context, email string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetByID(_ context.Context, adminID string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[adminID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func TestTokenRoundTrip(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, "test-secret")

	token, err := svc.Register(context.Background(), "a@example.com", "A", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	admin, err := svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if admin.Email != "a@example.com" {
		t.Errorf("validated admin email = %q", admin.Email)
	}
}

func TestLoginIssuesValidToken(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, "test-secret")

	if _, err := svc.Register(context.Background(), "a@example.com", "A", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := svc.Login(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), token); err != nil {
		t.Errorf("login token rejected: %v", err)
	}

	if _, err := svc.Login(context.Background(), "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	store := newMockStore()
	issuer := NewService(store, "secret-one")
	verifier := NewService(store, "secret-two")

	token, err := issuer.Register(context.Background(), "a@example.com", "A", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := verifier.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewService(newMockStore(), "test-secret")
	if _, err := svc.ValidateToken(context.Background(), "not.a.jwt"); err == nil {
		t.Fatal("garbage token was accepted")
	}
}

func TestValidateTokenDeletedAdmin(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, "test-secret")

	token, err := svc.Register(context.Background(), "a@example.com", "A", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	// The token outlives the admin row; validation must fail.
	store.admins = map[string]*models.Admin{}

	if _, err := svc.ValidateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
