// Package identity implements the identity authority: account creation,
// credential sign-in and session establishment. It always returns a
// structured role; nothing downstream ever infers a role from an email
// address.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Identity struct {
	UserID string
	Role   domain.Role
}

func (i Identity) Actor() domain.Actor {
	return domain.Actor{ID: i.UserID, Role: i.Role}
}

type NewAccountInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Address  string `json:"address" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type Authority interface {
	// EstablishSession resolves an existing session token into an identity.
	EstablishSession(ctx context.Context, token string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, string, error)
	Register(ctx context.Context, input NewAccountInput) (*Identity, string, error)
}

type Service struct {
	users    repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(users repository.UserRepository, secret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *Service) EstablishSession(ctx context.Context, token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, &domain.ValidationError{Field: "session", Reason: "invalid or expired session token"}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &domain.ValidationError{Field: "session", Reason: "malformed session claims"}
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return nil, &domain.ValidationError{Field: "session", Reason: "malformed session claims"}
	}

	return &Identity{UserID: sub, Role: domain.Role(role)}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Identity, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", &domain.ValidationError{Field: "credentials", Reason: "unknown email or wrong password"}
		}
		return nil, "", &domain.CollaboratorError{Collaborator: "identity", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", &domain.ValidationError{Field: "credentials", Reason: "unknown email or wrong password"}
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return &Identity{UserID: user.ID, Role: user.Role}, token, nil
}

func (s *Service) Register(ctx context.Context, input NewAccountInput) (*Identity, string, error) {
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, "", &domain.ValidationError{Field: verrs[0].Field(), Reason: "missing or malformed"}
		}
		return nil, "", &domain.ValidationError{Field: "account", Reason: err.Error()}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		Address:      input.Address,
		PasswordHash: string(hash),
		Role:         domain.RoleRenter,
	}
	if err := s.users.Create(ctx, user); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return nil, "", err
		}
		return nil, "", &domain.CollaboratorError{Collaborator: "identity", Err: err}
	}

	s.logger.Info("registered new renter account", zap.String("user_id", user.ID))

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return &Identity{UserID: user.ID, Role: user.Role}, token, nil
}

func (s *Service) issueToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"exp":  time.Now().Add(s.tokenTTL).Unix(),
		"iat":  time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

var _ Authority = (*Service)(nil)
