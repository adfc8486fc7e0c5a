package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/careconnect/internal/compliance"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Service registers users and issues tokens.
type Service struct {
	repo   Repository
	tokens *TokenIssuer
	audit  compliance.Logger
	logger *logging.Logger
	cost   int
}

func NewService(repo Repository, tokens *TokenIssuer, audit compliance.Logger, logger *logging.Logger) *Service {
	if repo == nil {
		panic("accounts: repository cannot be nil")
	}
	if tokens == nil {
		panic("accounts: token issuer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		audit:  audit,
		logger: logger,
		cost:   bcrypt.DefaultCost,
	}
}

// Register creates a patient or doctor account and signs them in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	user, err := s.create(ctx, req.Email, req.Name, Role(req.Role), req.Password)
	if err != nil {
		return nil, err
	}
	s.logger.Info("account registered", "user_id", user.ID, "role", user.Role)
	return s.authResponse(user)
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.authResponse(user)
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	user, err := s.create(ctx, email, "Administrator", RoleAdmin, password)
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", "user_id", user.ID)
	return nil
}

func (s *Service) create(ctx context.Context, email, name string, role Role, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("accounts: hash password: %w", err)
	}
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	if s.audit != nil {
		details, _ := json.Marshal(compliance.AuditDetails{Role: string(role)})
		if err := s.audit.LogEvent(ctx, compliance.AuditEvent{
			EventType: compliance.EventAccountRegistered,
			SubjectID: user.ID,
			Details:   details,
		}); err != nil {
			s.logger.Warn("failed to audit registration", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

func (s *Service) authResponse(user *User) (*AuthResponse, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, ExpiresAt: expires, User: user}, nil
}
