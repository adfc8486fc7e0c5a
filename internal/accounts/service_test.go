package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/careconnect/internal/compliance"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*User)}
}

func (m *memoryRepo) Create(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return ErrEmailTaken
	}
	user.CreatedAt = time.Now()
	copied := *user
	m.users[user.Email] = &copied
	return nil
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[normalizeEmail(email)]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, ErrUserNotFound
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

type auditRecorder struct {
	events []compliance.AuditEvent
	err    error
}

func (a *auditRecorder) LogEvent(_ context.Context, event compliance.AuditEvent) error {
	a.events = append(a.events, event)
	return a.err
}

func newTestService(audit compliance.Logger) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	svc := NewService(repo, NewTokenIssuer("secret", time.Hour), audit, nil)
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func TestServiceRegisterAndLogin(t *testing.T) {
	audit := &auditRecorder{}
	svc, repo := newTestService(audit)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{Email: " Asha@Example.com ", Password: "correct horse", Name: "Asha"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, RolePatient, resp.User.Role)
	assert.Equal(t, "asha@example.com", resp.User.Email)

	stored, err := repo.GetByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)

	require.Len(t, audit.events, 1)
	assert.Equal(t, compliance.EventAccountRegistered, audit.events[0].EventType)

	login, err := svc.Login(ctx, LoginRequest{Email: "ASHA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	claims, err := svc.tokens.Parse(login.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID())

	_, err = svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, RegisterRequest{Email: "asha@example.com", Password: "another one", Name: "Asha"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestServiceRegisterValidation(t *testing.T) {
	svc, _ := newTestService(nil)

	tests := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"bad email", RegisterRequest{Email: "nope", Password: "password1", Name: "A"}, ErrInvalidEmail},
		{"short password", RegisterRequest{Email: "a@example.com", Password: "short", Name: "A"}, ErrWeakPassword},
		{"missing name", RegisterRequest{Email: "a@example.com", Password: "password1"}, ErrInvalidName},
		{"admin self registration", RegisterRequest{Email: "a@example.com", Password: "password1", Name: "A", Role: "admin"}, ErrInvalidRole},
		{"unknown role", RegisterRequest{Email: "a@example.com", Password: "password1", Name: "A", Role: "nurse"}, ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	resp, err := svc.Register(context.Background(), RegisterRequest{Email: "dr@example.com", Password: "password1", Name: "Dr. Rao", Role: "Doctor"})
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, resp.User.Role)
}

func TestServiceAuditFailureDoesNotBlockRegistration(t *testing.T) {
	svc, _ := newTestService(&auditRecorder{err: errors.New("db down")})
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@example.com", Password: "password1", Name: "A"})
	assert.NoError(t, err)
}

func TestServiceEnsureAdmin(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
	assert.Empty(t, repo.users)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@careconnect.in", "supersecret"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@careconnect.in", "supersecret"))
	require.Len(t, repo.users, 1)

	resp, err := svc.Login(ctx, LoginRequest{Email: "admin@careconnect.in", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, resp.User.Role)

	assert.ErrorIs(t, svc.EnsureAdmin(ctx, "other@careconnect.in", "short"), ErrWeakPassword)
}
