package server

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/studyflow/internal/models"
)

const minPasswordLength = 8

func (s *Server) hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "err", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	u, err := s.store.addUser(&user{
		Email:        in.Email,
		Username:     strings.TrimSpace(in.Username),
		FullName:     in.FullName,
		passwordHash: hash,
	})
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("registered user", "id", u.ID, "username", u.Username)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if !decodeBody(w, r, &in) {
		return
	}

	u, ok := s.store.userByEmail(in.Email)
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(in.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	for _, kind := range []tokenKind{kindAccess, kindRefresh} {
		if err := s.setSessionCookie(w, u.ID, kind); err != nil {
			s.logger.Error("failed to issue session", "err", err)
			writeDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "user": u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	n := s.refreshes.Add(1)

	cookie, err := r.Cookie(refreshCookie)
	if err != nil || cookie.Value == "" {
		writeDetail(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	userID, err := s.parseToken(cookie.Value, kindRefresh)
	if err != nil {
		s.logger.Debug("rejected refresh token", "err", err, "refreshes", n)
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	if err := s.setSessionCookie(w, userID, kindAccess); err != nil {
		s.logger.Error("failed to refresh session", "err", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.logger.Debug("refreshed session", "user", userID, "refreshes", n)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

func (s *Server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &in) {
		return
	}

	if u, ok := s.store.userByEmail(in.Email); ok {
		code, err := resetCode()
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		s.store.setResetCode(u.Email, code)
		s.logger.Info("password reset code issued", "email", u.Email, "code", code)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "If the email exists, a reset code has been sent"})
}

func (s *Server) handleVerifyReset(w http.ResponseWriter, r *http.Request) {
	var in models.PasswordResetVerify
	if !decodeBody(w, r, &in) {
		return
	}
	if !s.validResetCode(in.Email, in.Code) {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired reset code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Code verified"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in models.PasswordReset
	if !decodeBody(w, r, &in) {
		return
	}
	if !s.validResetCode(in.Email, in.Code) {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired reset code")
		return
	}
	if len(in.NewPassword) < minPasswordLength {
		writeDetail(w, http.StatusUnprocessableEntity, "Password must be at least 8 characters")
		return
	}

	u, _ := s.store.userByEmail(in.Email)
	if !s.setPassword(w, u.ID, in.NewPassword) {
		return
	}
	s.store.clearResetCode(in.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.store.user(currentUserID(r))
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileUpdate
	if !decodeBody(w, r, &in) {
		return
	}

	u, err := s.store.updateUser(currentUserID(r), func(u *user) error {
		if in.Username != nil {
			name := strings.TrimSpace(*in.Username)
			if name == "" {
				return fmt.Errorf("Username cannot be empty")
			}
			u.Username = name
		}
		if in.FullName != nil {
			u.FullName = *in.FullName
		}
		if in.Bio != nil {
			u.Bio = *in.Bio
		}
		if in.AvatarURL != nil {
			u.AvatarURL = *in.AvatarURL
		}
		return nil
	})
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in models.PasswordChange
	if !decodeBody(w, r, &in) {
		return
	}

	u, ok := s.store.user(currentUserID(r))
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(in.CurrentPassword)) != nil {
		writeDetail(w, http.StatusBadRequest, "Incorrect password")
		return
	}
	if len(in.NewPassword) < minPasswordLength {
		writeDetail(w, http.StatusUnprocessableEntity, "Password must be at least 8 characters")
		return
	}
	if !s.setPassword(w, u.ID, in.NewPassword) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (s *Server) setPassword(w http.ResponseWriter, userID int, password string) bool {
	hash, err := s.hash(password)
	if err == nil {
		_, err = s.store.updateUser(userID, func(u *user) error {
			u.passwordHash = hash
			return nil
		})
	}
	if err != nil {
		s.logger.Error("failed to set password", "user", userID, "err", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return false
	}
	return true
}

func (s *Server) validResetCode(email, code string) bool {
	want, ok := s.store.resetCode(email)
	return ok && code != "" && want == strings.TrimSpace(code)
}

// resetCode is a random six digit code.
func resetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
