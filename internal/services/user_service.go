package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/Shopvora/internal/auth"
	"github.com/markdave123-py/Shopvora/internal/core"
	db "github.com/markdave123-py/Shopvora/internal/core/database"
	"github.com/markdave123-py/Shopvora/internal/models"
)

// MinPasswordLength is the shortest password signup accepts.
const MinPasswordLength = 6

// SignUpInput is the signup form.
type SignUpInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DisplayName     string `json:"display_name"`
}

// Session is what a successful signup or sign-in hands back.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type UserService struct {
	db     core.DbClient
	tokens *auth.Tokens
	log    zerolog.Logger
}

func NewUserService(db core.DbClient, tokens *auth.Tokens, logger zerolog.Logger) *UserService {
	return &UserService{db: db, tokens: tokens, log: logger}
}

// SignUp creates the account; the database creates its profile.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, Invalid("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: string(hash),
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.session(user)
}

func (s *UserService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.db.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

func (s *UserService) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// Authenticate resolves a session token to its user; a token for a deleted
// account is rejected.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.db.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, auth.ErrInvalidToken
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	row, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return &models.UserProfile{ID: row.ID, Role: row.Role, DisplayName: row.DisplayName, CreatedAt: row.CreatedAt}, nil
}

// ResolveRole never fails: a missing profile or a backend error means "user".
func (s *UserService) ResolveRole(ctx context.Context, userID string) string {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("role lookup failed, using default role")
		return models.RoleUser
	}
	if p.Role == "" {
		return models.RoleUser
	}
	return p.Role
}
