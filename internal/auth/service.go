package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/pollwinner/backend/internal/models"
)

// sessionTTL matches the cookie max-age set by the handler.
const sessionTTL = 7 * 24 * time.Hour

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSession is returned for unknown session tokens.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionExpired is returned for known but expired session tokens.
	ErrSessionExpired = errors.New("session expired")
)

type Service interface {
	Register(ctx context.Context, email, password, name string) (*models.User, *models.UserSession, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.UserSession, error)
	// ExchangeProviderSession resolves an external identity-provider
	// session id into a local user and session, creating the user on
	// first sign-in.
	ExchangeProviderSession(ctx context.Context, sessionID string) (*models.User, *models.UserSession, error)
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string) error
	UpdateUPI(ctx context.Context, userID, upiID string) error
}

// Store is the persistence surface the auth service needs.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	SetUPI(ctx context.Context, userID, upiID string) error
	CreateSession(ctx context.Context, s *models.UserSession) error
	GetSession(ctx context.Context, token string) (*models.UserSession, error)
	DeleteSession(ctx context.Context, token string) error
}

// ProviderClient exchanges an identity-provider session id for profile data.
type ProviderClient interface {
	SessionData(ctx context.Context, sessionID string) (*SessionData, error)
}

type service struct {
	repo     Store
	identity ProviderClient
}

func NewService(repo Store, identity ProviderClient) Service {
	return &service{repo: repo, identity: identity}
}

var _ Service = (*service)(nil)

func (s *service) Register(ctx context.Context, email, password, name string) (*models.User, *models.UserSession, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	u := &models.User{
		UserID:       models.NewID("user"),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, nil, ErrDuplicateEmail
		}
		return nil, nil, err
	}
	sess, err := s.openSession(ctx, u.UserID, models.NewSessionToken())
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, *models.UserSession, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	sess, err := s.openSession(ctx, u.UserID, models.NewSessionToken())
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

func (s *service) ExchangeProviderSession(ctx context.Context, sessionID string) (*models.User, *models.UserSession, error) {
	data, err := s.identity.SessionData(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.repo.GetUserByEmail(ctx, data.Email)
	if err != nil {
		return nil, nil, err
	}
	if u == nil {
		u = &models.User{
			UserID:  models.NewID("user"),
			Email:   data.Email,
			Name:    data.Name,
			Picture: nilIfEmpty(data.Picture),
		}
		if err := s.repo.CreateUser(ctx, u); err != nil {
			return nil, nil, err
		}
	}
	// The provider dictates the token so the client can reuse it.
	sess, err := s.openSession(ctx, u.UserID, data.SessionToken)
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

func (s *service) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	sess, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidSession
	}
	if sess.ExpiresAt.Before(time.Now()) {
		return nil, ErrSessionExpired
	}
	return s.repo.GetUserByID(ctx, sess.UserID)
}

func (s *service) Logout(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}

func (s *service) UpdateUPI(ctx context.Context, userID, upiID string) error {
	return s.repo.SetUPI(ctx, userID, upiID)
}

func (s *service) openSession(ctx context.Context, userID, token string) (*models.UserSession, error) {
	sess := &models.UserSession{
		UserID:       userID,
		SessionToken: token,
		ExpiresAt:    time.Now().Add(sessionTTL),
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
