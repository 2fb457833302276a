package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"golang.org/x/sync/singleflight"
)

// SessionFlag is the locally persisted "is logged in" hint. It only lets the
// client skip a /users/me round trip when it already knows there's no session.
type SessionFlag interface {
	LoggedIn() (bool, error)
	SetLoggedIn(bool) error
}

// AuthService handles registration, login and the profile of the signed-in user.
type AuthService struct {
	client Requester
	flag   SessionFlag
	group  singleflight.Group
	logger *log.Logger
}

// NewAuthService creates an auth service. flag may be nil, in which case every
// [AuthService.CurrentUser] call asks the API.
func NewAuthService(client Requester, flag SessionFlag, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &AuthService{client: client, flag: flag, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	body, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: registerPath, Body: in})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return &models.User{Email: in.Email, Username: in.Username, FullName: in.FullName}, nil
	}
	return decodeUser(body)
}

// Login signs in, marks the local session flag and returns the current user.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if _, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: loginPath, Body: creds}); err != nil {
		return nil, err
	}
	s.setFlag(true)

	return s.Me(ctx)
}

// Logout ends the session. The local flag is cleared even when the API call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	_, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: "/auth/logout", Body: struct{}{}})
	if err != nil {
		s.logger.Warn("logout request failed", "error", err)
	}
	s.setFlag(false)
	return nil
}

// Me fetches the signed-in user. Concurrent callers share a single request.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	v, err, dup := s.group.Do("me", func() (any, error) {
		body, err := fetch(ctx, s.client, Request{Method: http.MethodGet, Path: "/users/me"})
		if err != nil {
			return nil, err
		}
		return decodeUser(body)
	})
	if err != nil {
		return nil, err
	}
	if dup {
		s.logger.Debug("shared /users/me result")
	}

	u := *v.(*models.User)
	return &u, nil
}

// CurrentUser returns the signed-in user, or [shared.ErrNotAuthenticated]
// without any network call when the local flag says there is no session.
func (s *AuthService) CurrentUser(ctx context.Context) (*models.User, error) {
	if s.flag != nil {
		loggedIn, err := s.flag.LoggedIn()
		if err != nil {
			s.logger.Warn("failed to read session flag", "error", err)
		} else if !loggedIn {
			return nil, shared.ErrNotAuthenticated
		}
	}

	u, err := s.Me(ctx)
	if err != nil {
		if IsUnauthorized(err) {
			s.setFlag(false)
			return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.User, error) {
	body, err := fetch(ctx, s.client, Request{Method: http.MethodPut, Path: "/users/me", Body: in})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return s.Me(ctx)
	}
	return decodeUser(body)
}

func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", shared.ErrInvalidInput)
	}
	_, err := fetch(ctx, s.client, Request{
		Method: http.MethodPost,
		Path:   "/auth/request-password-reset",
		Body:   map[string]string{"email": email},
	})
	return err
}

func (s *AuthService) VerifyResetCode(ctx context.Context, in models.PasswordResetVerify) error {
	_, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: "/auth/verify-reset-code", Body: in})
	return err
}

func (s *AuthService) ResetPassword(ctx context.Context, in models.PasswordReset) error {
	if len(in.NewPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalidInput)
	}
	_, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: "/auth/reset-password", Body: in})
	return err
}

func (s *AuthService) ChangePassword(ctx context.Context, in models.PasswordChange) error {
	if len(in.NewPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalidInput)
	}
	_, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: "/users/change-password", Body: in})
	return err
}

func (s *AuthService) setFlag(v bool) {
	if s.flag == nil {
		return
	}
	if err := s.flag.SetLoggedIn(v); err != nil {
		s.logger.Warn("failed to store session flag", "logged_in", v, "error", err)
	}
}
