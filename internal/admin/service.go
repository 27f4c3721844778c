package admin

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/pollwinner/backend/internal/models"
)

const tokenTTL = 7 * 24 * time.Hour

var (
	ErrDuplicateEmail     = errors.New("admin already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type Service interface {
	Register(ctx context.Context, email, name, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (*models.Admin, error)
}

// Store is the persistence surface the admin token service needs.
type Store interface {
	Create(ctx context.Context, a *models.Admin) error
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetByID(ctx context.Context, adminID string) (*models.Admin, error)
}

type service struct {
	repo   Store
	secret []byte
}

func NewService(repo Store, secret string) Service {
	return &service{repo: repo, secret: []byte(secret)}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	AdminID string `json:"admin_id"`
}

func (s *service) Register(ctx context.Context, email, name, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	a := &models.Admin{
		AdminID:      models.NewID("admin"),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrDuplicateEmail
		}
		return "", err
	}
	return s.issueToken(a.AdminID)
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(a.AdminID)
}

func (s *service) issueToken(adminID string) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		AdminID: adminID,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (*models.Admin, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.AdminID == "" {
		return nil, ErrInvalidToken
	}
	a, err := s.repo.GetByID(ctx, c.AdminID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrInvalidToken
	}
	return a, nil
}
