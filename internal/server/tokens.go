package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

type tokenKind string

const (
	kindAccess  tokenKind = "access"
	kindRefresh tokenKind = "refresh"
)

var (
	errTokenRevoked = errors.New("token revoked")
	errTokenKind    = errors.New("wrong token type")
)

// sessionClaims are carried by both cookies. Epoch ties a token to the
// server's revocation counter for its kind.
type sessionClaims struct {
	Kind  tokenKind `json:"typ"`
	Epoch int64     `json:"epoch"`
	jwt.RegisteredClaims
}

func (c sessionClaims) userID() (int, error) {
	return strconv.Atoi(c.Subject)
}

func (s *Server) epoch(kind tokenKind) int64 {
	if kind == kindRefresh {
		return s.sessionEpoch.Load()
	}
	return s.accessEpoch.Load()
}

func (s *Server) ttl(kind tokenKind) time.Duration {
	if kind == kindRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

func (s *Server) issueToken(userID int, kind tokenKind) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl(kind))
	claims := sessionClaims{
		Kind:  kind,
		Epoch: s.epoch(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			Issuer:    "studyflow",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, expires, nil
}

func (s *Server) parseToken(raw string, kind tokenKind) (int, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, err
	}
	if claims.Kind != kind {
		return 0, errTokenKind
	}
	if claims.Epoch < s.epoch(kind) {
		return 0, errTokenRevoked
	}
	return claims.userID()
}

// setSessionCookie issues a token of the given kind and attaches it as an
// HttpOnly cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, userID int, kind tokenKind) error {
	token, expires, err := s.issueToken(userID, kind)
	if err != nil {
		return err
	}
	name := accessCookie
	if kind == kindRefresh {
		name = refreshCookie
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
