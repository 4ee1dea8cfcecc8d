package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/Skotchmaster/sweet_shop/pkg/hash"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/tokens"
)

const minPasswordLen = 6

type AuthService struct {
	Users  repo.UserRepo
	Secret []byte
	TTL    time.Duration
	Events events.Publisher
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

type AuthResult struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	var v validator
	v.check(validEmail(in.Email), "email", "Please provide a valid email")
	v.check(len(in.Password) >= minPasswordLen, "password", "Password must be at least 6 characters")
	v.check(len(in.Password) <= hash.MaxPasswordBytes, "password", "Password must be at most 72 bytes")
	v.check(in.Name != "", "name", "Name is required")
	v.check(in.Role == "" || in.Role == models.RoleUser || in.Role == models.RoleAdmin, "role", "Role must be either user or admin")
	if err := v.err(); err != nil {
		l.Warn("register_error", "status", 400, "reason", "validation", "error", err)
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Email:        in.Email,
		PasswordHash: pwHash,
		Name:         in.Name,
		Role:         in.Role,
	}
	if err := s.Users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_error", "status", 409, "reason", "email taken")
			return nil, newError(ErrConflict, "User with this email already exists")
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, err
	}

	res, err := s.IssueToken(user)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUsers, user.ID, events.UserEvent{
		Type:   events.UserRegistered,
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		At:     time.Now().UTC(),
	})
	l.Info("register_successful", "user_id", user.ID)
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email = normalizeEmail(email)

	var v validator
	v.check(validEmail(email), "email", "Please provide a valid email")
	v.check(password != "", "password", "Password is required")
	if err := v.err(); err != nil {
		l.Warn("login_failed", "status", 400, "reason", "validation", "error", err)
		return nil, err
	}

	user, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	res, err := s.IssueToken(*user)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, err
	}
	l.Info("login_successful", "user_id", user.ID)
	return res, nil
}

func (s *AuthService) IssueToken(user models.User) (*AuthResult, error) {
	exp := time.Now().Add(s.TTL)
	token, err := tokens.SignAccessToken(user.ID, user.Email, user.Role, exp, s.Secret)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) VerifyToken(token string) (*tokens.AccessClaims, error) {
	claims, err := tokens.AccessClaimsFromToken(token, s.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}
