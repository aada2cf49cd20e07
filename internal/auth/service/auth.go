package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pspdems/dems-backend/internal/auth/jwt"
	"github.com/pspdems/dems-backend/internal/auth/repository"
	demsrepo "github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/errors"
	"github.com/pspdems/dems-backend/pkg/logger"
)

// AuthService handles authentication logic
type AuthService struct {
	users      *repository.UserRepository
	sessions   *repository.SessionRepository
	audit      *demsrepo.AuditRepository
	jwtManager *jwt.Manager
	logger     *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	audit *demsrepo.AuditRepository,
	jwtManager *jwt.Manager,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		audit:      audit,
		jwtManager: jwtManager,
		logger:     log,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
	User         *UserInfo `json:"user"`
}

// UserInfo represents the logged-in user
type UserInfo struct {
	ID       int64  `json:"id"`
	Login    string `json:"login"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	PlantID  *int64 `json:"plant_id,omitempty"`
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, userAgent, ipAddress string) (*LoginResponse, error) {
	user, err := s.users.GetByLogin(ctx, req.Login)
	if err != nil {
		// Not-found collapses to invalid credentials so logins cannot be probed.
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	sessionID := uuid.New().String()

	tokens, err := s.jwtManager.GenerateTokenPair(&jwt.UserInfo{
		ID:       user.ID,
		Login:    user.Login,
		FullName: user.FullName,
		Role:     user.Role,
		PlantID:  user.PlantID,
	}, sessionID)
	if err != nil {
		return nil, errors.Internal("failed to generate tokens")
	}

	expiresAt := time.Now().Add(s.jwtManager.GetRefreshExpiry())
	if _, err := s.sessions.Create(ctx, sessionID, user.ID, tokens.RefreshToken, expiresAt, userAgent, ipAddress); err != nil {
		s.logger.Error().Err(err).Msg("failed to create session")
		return nil, errors.Internal("failed to create session")
	}

	if err := s.audit.Write(ctx, &demsrepo.AuditLog{
		ActorKey: fmt.Sprintf("%s - %s", user.Login, user.FullName),
		Action:   demsrepo.AuditLogin,
		Entity:   "session",
		Detail:   ipAddress,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write login audit")
	}

	return &LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		TokenType:    tokens.TokenType,
		User: &UserInfo{
			ID:       user.ID,
			Login:    user.Login,
			FullName: user.FullName,
			Role:     user.Role,
			PlantID:  user.PlantID,
		},
	}, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.sessions.RevokeByRefreshToken(ctx, refreshToken); err != nil {
		s.logger.Warn().Err(err).Msg("failed to revoke session")
	}
	return nil
}

// Refresh issues a new token pair from a valid refresh token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, errors.Unauthorized("invalid session")
	}
	if session.RevokedAt != nil {
		return nil, errors.Unauthorized("session revoked")
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, errors.TokenExpired()
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.Unauthorized("user no longer exists")
	}
	if !user.IsActive {
		return nil, errors.Unauthorized("user disabled")
	}

	return s.jwtManager.GenerateTokenPair(&jwt.UserInfo{
		ID:       user.ID,
		Login:    user.Login,
		FullName: user.FullName,
		Role:     user.Role,
		PlantID:  user.PlantID,
	}, session.ID)
}
