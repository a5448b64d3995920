package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/isdelr/blog-api/internal/auth"
	"github.com/isdelr/blog-api/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

// Operations and outcomes reported to an AuthRecorder.
const (
	OpRegister     = "register"
	OpLogin        = "login"
	OpAuthenticate = "authenticate"

	OutcomeSuccess = "success"
)

// LogoutMessage acknowledges a logout.
const LogoutMessage = "Logged out successfully"

// AuthRecorder receives one call per authentication attempt.
type AuthRecorder interface {
	RecordAuthAttempt(operation, outcome string)
}

// AuthServiceProvider defines the interface for authentication services.
type AuthServiceProvider interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context) models.MessageResponse
	Authenticate(ctx context.Context, token string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, req models.UpdateUserRequest) (models.UserResponse, error)
	DeleteAccount(ctx context.Context, userID int64) error
}

// AuthService provides registration, login and token authentication.
type AuthService struct {
	store     UserStore
	hasher    auth.PasswordHasher
	tokens    *auth.TokenCodec
	recorder  AuthRecorder
	sanitizer *bluemonday.Policy

	// dummyHash is compared against on unknown emails so both login
	// failure paths do the same bcrypt work.
	dummyHash string
}

// NewAuthService creates a new AuthService. recorder may be nil.
func NewAuthService(store UserStore, hasher auth.PasswordHasher, tokens *auth.TokenCodec, recorder AuthRecorder) (*AuthService, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &AuthService{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		recorder:  recorder,
		sanitizer: bluemonday.StrictPolicy(),
		dummyHash: dummy,
	}, nil
}

// Register validates the request, creates the user and issues a token.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	resp, err := s.register(ctx, req)
	s.record(OpRegister, err)
	return resp, err
}

func (s *AuthService) register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := models.Validate(&req); err != nil {
		return nil, err
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		return nil, models.NewValidationError(fmt.Sprintf("Validation error: password must be at most %d bytes", auth.MaxPasswordBytes))
	}

	email := strings.ToLower(req.Email)

	taken, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("check email: %w", err))
	}
	if taken {
		return nil, models.NewConflictError(models.MsgEmailTaken)
	}

	taken, err = s.store.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("check username: %w", err))
	}
	if taken {
		return nil, models.NewConflictError(models.MsgUsernameTaken)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	id, err := s.store.Create(ctx, NewUser{
		Username:     req.Username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  s.cleanOptional(req.DisplayName),
	})
	if errors.Is(err, ErrDuplicateUser) {
		// Lost a race with a concurrent registration.
		return nil, models.NewConflictError(models.MsgDuplicateUser)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	// The row exists now; failing to read it back is surfaced as-is.
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("fetch created user %d: %w", id, err))
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return &models.AuthResponse{Token: token, User: user.Public()}, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords fail with the same error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	resp, err := s.login(ctx, req)
	s.record(OpLogin, err)
	return resp, err
}

func (s *AuthService) login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := models.Validate(&req); err != nil {
		return nil, err
	}

	email := strings.ToLower(req.Email)

	user, err := s.store.GetActiveByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		_ = s.hasher.Compare(s.dummyHash, req.Password)
		return nil, models.NewAuthError(models.MsgInvalidCredentials)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	err = s.hasher.Compare(user.PasswordHash, req.Password)
	if errors.Is(err, auth.ErrPasswordMismatch) {
		return nil, models.NewAuthError(models.MsgInvalidCredentials)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &models.AuthResponse{Token: token, User: user.Public()}, nil
}

// Logout is stateless. Issued tokens stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context) models.MessageResponse {
	return models.MessageResponse{Message: LogoutMessage}
}

// Authenticate resolves a bearer token to its active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	user, err := s.authenticate(ctx, token)
	s.record(OpAuthenticate, err)
	return user, err
}

func (s *AuthService) authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.VerifyUserID(token)
	if err != nil {
		return nil, models.NewAuthError(models.MsgInvalidToken)
	}

	user, err := s.store.GetActiveByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, models.NewAuthError(models.MsgInvalidToken)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

// UpdateProfile changes the caller's display name, bio or picture URL.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req models.UpdateUserRequest) (models.UserResponse, error) {
	req.DisplayName = trimField(req.DisplayName)
	req.Bio = trimField(req.Bio)
	req.ProfilePictureURL = trimField(req.ProfilePictureURL)
	if err := models.Validate(&req); err != nil {
		return models.UserResponse{}, err
	}

	update := ProfileUpdate{
		DisplayName:       s.cleanField(req.DisplayName),
		Bio:               s.cleanField(req.Bio),
		ProfilePictureURL: req.ProfilePictureURL,
	}

	user, err := s.store.UpdateProfile(ctx, userID, update)
	if errors.Is(err, ErrUserNotFound) {
		return models.UserResponse{}, models.NewAuthError(models.MsgInvalidToken)
	}
	if err != nil {
		return models.UserResponse{}, models.NewInternalError(err)
	}
	return user.Public(), nil
}

// DeleteAccount soft-deletes the caller. The row is kept.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	err := s.store.SoftDelete(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return models.NewAuthError(models.MsgInvalidToken)
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	log.Info().Int64("user_id", userID).Msg("User soft-deleted")
	return nil
}

func (s *AuthService) record(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = models.KindOf(err).String()
	}
	s.recorder.RecordAuthAttempt(operation, outcome)
}

// cleanOptional sanitises an optional free-text value; blank becomes nil.
func (s *AuthService) cleanOptional(v *string) *string {
	if v == nil {
		return nil
	}
	cleaned := s.clean(*v)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// cleanField sanitises a field of a partial update; blank clears the column.
func (s *AuthService) cleanField(v *string) *string {
	if v == nil {
		return nil
	}
	cleaned := s.clean(*v)
	return &cleaned
}

// clean strips markup and stores the remaining text unescaped.
func (s *AuthService) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(v)))
}

func trimField(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthAttempt(string, string) {}

var _ AuthServiceProvider = (*AuthService)(nil)
