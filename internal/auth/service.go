package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/agent-management/internal"
)

// ServiceAPI is what the HTTP handler needs from the auth service.
type ServiceAPI interface {
	Login(dto LoginDTO) (*AuthResponse, error)
	Register(dto RegisterDTO) (*AuthResponse, error)
	Refresh(refreshToken string) (*AuthResponse, error)
	Logout(userID string) error
	LogoutAll(userID string) error
	RequestPasswordReset(email string) (string, error)
	ResetPassword(token, newPassword string) error
	VerifyAccessToken(tokenString string) (*Claims, error)
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	User   *ProfileView `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

// ProfileView is the caller-safe projection of an account.
type ProfileView struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type Service struct {
	users      UserRepository
	tokens     TokenGenerator
	bcryptCost int
	resetTTL   time.Duration
	logger     *slog.Logger
}

func NewService(users UserRepository, tokens TokenGenerator, bcryptCost int, resetExpiry string, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		resetTTL:   ParseExpiry(resetExpiry, DefaultResetExpiry),
		logger:     logger,
	}
}

// Login resolves the identifier first as a username, then as an email.
// Unknown identifier, inactive account and wrong password all collapse
// into the same unauthorized error.
func (s *Service) Login(dto LoginDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	account, err := s.users.FindByUsername(dto.UsernameOrEmail)
	if errors.Is(err, ErrAccountNotFound) {
		account, err = s.users.FindByEmail(dto.UsernameOrEmail)
	}
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("failed to look up account", err)
	}

	if !account.IsActive {
		return nil, internal.ErrUserInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(account.ID); err != nil {
		s.logger.Warn("failed to record last login", "user_id", account.ID, "error", err)
	}

	return s.issue(account)
}

func (s *Service) Register(dto RegisterDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(dto.Email); err == nil {
		return nil, internal.ErrEmailExists
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, internal.NewInternalError("failed to check email", err)
	}

	if _, err := s.users.FindByUsername(dto.Username); err == nil {
		return nil, internal.ErrUsernameExists
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, internal.NewInternalError("failed to check username", err)
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	account, err := s.users.CreateAccount(&NewAccount{
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: hash,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			return nil, internal.ErrEmailExists
		case errors.Is(err, ErrUsernameTaken):
			return nil, internal.ErrUsernameExists
		}
		return nil, internal.NewInternalError("failed to create account", err)
	}

	if err := s.users.AssignRoleByName(account.ID, DefaultRole); err != nil {
		s.logger.Warn("failed to assign default role", "user_id", account.ID, "error", err)
	}

	// Reload so the token carries the default role's permissions.
	if reloaded, err := s.users.FindByID(account.ID); err == nil {
		account = reloaded
	}

	s.logger.Info("new user registered", "username", account.Username)
	return s.issue(account)
}

// Refresh rotates the token pair. The presented token must verify
// against the refresh secret and match the stored value exactly, so a
// token that was already rotated out is rejected.
func (s *Service) Refresh(refreshToken string) (*AuthResponse, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	account, err := s.users.FindByID(claims.UserID)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	if !account.IsActive || account.RefreshToken == nil || *account.RefreshToken != refreshToken {
		return nil, internal.ErrInvalidToken
	}

	return s.issue(account)
}

// Logout clears the stored refresh token. With at most one live session
// per user, LogoutAll is the same operation.
func (s *Service) Logout(userID string) error {
	if err := s.users.UpdateRefreshToken(userID, nil); err != nil {
		return internal.NewInternalError("failed to clear refresh token", err)
	}
	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

func (s *Service) LogoutAll(userID string) error {
	return s.Logout(userID)
}

func (s *Service) RequestPasswordReset(email string) (string, error) {
	account, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", internal.NewValidationError("No account with this email", internal.ErrCodeUserNotFound)
		}
		return "", internal.NewInternalError("failed to look up account", err)
	}

	token, err := GenerateRandomToken()
	if err != nil {
		return "", internal.NewInternalError("failed to generate reset token", err)
	}

	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.users.StoreResetToken(account.ID, token, expiresAt); err != nil {
		return "", internal.NewInternalError("failed to store reset token", err)
	}

	s.logger.Info("password reset requested", "user_id", account.ID)
	return token, nil
}

func (s *Service) ResetPassword(token, newPassword string) error {
	if err := dtoValidatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.users.FindByResetToken(token)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return internal.ErrResetTokenInvalid
		}
		return internal.NewInternalError("failed to look up reset token", err)
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	if err := s.users.UpdatePassword(account.ID, hash); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}
	if err := s.users.ClearResetToken(account.ID); err != nil {
		return internal.NewInternalError("failed to clear reset token", err)
	}

	s.logger.Info("password reset completed", "user_id", account.ID)
	return nil
}

func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.VerifyAccessToken(tokenString)
}

// issue builds the claim sets, signs a fresh token pair and persists the
// refresh token, which invalidates any previously issued one.
func (s *Service) issue(account *Account) (*AuthResponse, error) {
	roles := account.RoleNames()
	permissions := account.EffectivePermissions()

	accessToken, expiresAt, err := s.tokens.GenerateAccessToken(account, roles, permissions)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign access token", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(account.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign refresh token", err)
	}

	if err := s.users.UpdateRefreshToken(account.ID, &refreshToken); err != nil {
		return nil, internal.NewInternalError("failed to store refresh token", err)
	}

	return &AuthResponse{
		User: &ProfileView{
			ID:          account.ID,
			Username:    account.Username,
			Email:       account.Email,
			Roles:       roles,
			Permissions: permissions,
		},
		Tokens: TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    expiresAt,
		},
	}, nil
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateRandomToken generates a cryptographically secure random token.
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
