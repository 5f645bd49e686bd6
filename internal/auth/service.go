package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
)

var (
	// ErrDuplicatePhone is returned when registering with a phone number that already exists.
	ErrDuplicatePhone     = errors.New("phone already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidToken       = errors.New("invalid token")
)

// Store is the accounts persistence. *Repository implements it.
type Store interface {
	Create(ctx context.Context, a *models.Account) error
	GetByPhone(ctx context.Context, phone string) (*models.Account, error)
}

// Sessions tracks which issued tokens are still live. *session.Store implements it.
type Sessions interface {
	Create(ctx context.Context, tokenID string, accountID uuid.UUID, ttl time.Duration) error
	Lookup(ctx context.Context, tokenID string) (uuid.UUID, error)
	Revoke(ctx context.Context, tokenID string) error
}

type Service interface {
	Register(ctx context.Context, phone, password, name, role, company string) (*models.Account, error)
	Login(ctx context.Context, phone, password string) (string, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	repo     Store
	sessions Sessions
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewService(repo Store, sessions Sessions, secret string, ttl time.Duration) *service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &service{repo: repo, sessions: sessions, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *service) Register(ctx context.Context, phone, password, name, role, company string) (*models.Account, error) {
	if role != models.RoleWorker && role != models.RoleEmployer {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{
		Phone:        strings.TrimSpace(phone),
		Name:         strings.TrimSpace(name),
		Role:         role,
		Company:      strings.TrimSpace(company),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicatePhone
		}
		return nil, err
	}
	return acc, nil
}

// Login checks the password, opens a session and returns a signed token for it.
func (s *service) Login(ctx context.Context, phone, password string) (string, error) {
	acc, err := s.repo.GetByPhone(ctx, strings.TrimSpace(phone))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	tokenID := uuid.NewString()
	if err := s.sessions.Create(ctx, tokenID, acc.ID, s.ttl); err != nil {
		return "", err
	}
	return s.issueToken(tokenID, acc.ID, acc.Role)
}

func (s *service) issueToken(tokenID string, userID uuid.UUID, role string) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) parse(token string) (*claims, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.ID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// ValidateToken checks the signature and expiry, then that the session was not revoked.
func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	c, err := s.parse(token)
	if err != nil {
		return uuid.Nil, "", err
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	owner, err := s.sessions.Lookup(ctx, c.ID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if owner != id {
		return uuid.Nil, "", ErrInvalidToken
	}
	return id, c.Role, nil
}

// Logout revokes the session behind the token.
func (s *service) Logout(ctx context.Context, token string) error {
	c, err := s.parse(token)
	if err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, c.ID)
}
