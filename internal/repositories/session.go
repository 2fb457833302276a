package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/studyflow/internal/shared"
)

// Session is the persisted client session for one API.
type Session struct {
	BaseURL   string
	LoggedIn  bool
	Cookies   []*http.Cookie
	UpdatedAt time.Time
}

// storedCookie keeps the attributes needed to replay a cookie into a jar.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func encodeCookies(cookies []*http.Cookie) (string, error) {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode cookies: %w", err)
	}
	return string(data), nil
}

func decodeCookies(data string) ([]*http.Cookie, error) {
	var stored []storedCookie
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:     s.Name,
			Value:    s.Value,
			Path:     s.Path,
			Domain:   s.Domain,
			Expires:  s.Expires,
			Secure:   s.Secure,
			HttpOnly: s.HttpOnly,
		})
	}
	return cookies, nil
}

// SessionRepository stores sessions keyed by API base URL.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get returns the stored session, or [shared.ErrNoSession] when there is none.
func (r *SessionRepository) Get(baseURL string) (*Session, error) {
	query := `SELECT base_url, logged_in, cookies, updated_at FROM sessions WHERE base_url = ?`

	var (
		s       Session
		cookies string
	)
	err := r.db.QueryRow(query, baseURL).Scan(&s.BaseURL, &s.LoggedIn, &cookies, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoSession, baseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if s.Cookies, err = decodeCookies(cookies); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save inserts or replaces the session.
func (r *SessionRepository) Save(s *Session) error {
	if s.BaseURL == "" {
		return fmt.Errorf("%w: session base url is required", shared.ErrInvalidInput)
	}

	cookies, err := encodeCookies(s.Cookies)
	if err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO sessions (base_url, logged_in, cookies, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (base_url) DO UPDATE SET
			logged_in = excluded.logged_in,
			cookies = excluded.cookies,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, s.BaseURL, s.LoggedIn, cookies, s.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SaveCookies replaces the stored cookies, keeping the logged-in flag.
func (r *SessionRepository) SaveCookies(baseURL string, cookies []*http.Cookie) error {
	encoded, err := encodeCookies(cookies)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (base_url, cookies, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (base_url) DO UPDATE SET cookies = excluded.cookies, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, baseURL, encoded, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	return nil
}

// SetLoggedIn updates only the logged-in flag, creating the row if needed.
func (r *SessionRepository) SetLoggedIn(baseURL string, loggedIn bool) error {
	query := `
		INSERT INTO sessions (base_url, logged_in, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (base_url) DO UPDATE SET logged_in = excluded.logged_in, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, baseURL, loggedIn, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update session flag: %w", err)
	}
	return nil
}

// LoggedIn reports the stored flag; a missing session counts as logged out.
func (r *SessionRepository) LoggedIn(baseURL string) (bool, error) {
	var loggedIn bool
	err := r.db.QueryRow(`SELECT logged_in FROM sessions WHERE base_url = ?`, baseURL).Scan(&loggedIn)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query session flag: %w", err)
	}
	return loggedIn, nil
}

// Clear removes the session entirely.
func (r *SessionRepository) Clear(baseURL string) error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE base_url = ?`, baseURL); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Flag binds the logged-in flag of one API to the repository.
func (r *SessionRepository) Flag(baseURL string) *SessionFlag {
	return &SessionFlag{repo: r, baseURL: baseURL}
}

// SessionFlag is the logged-in hint of a single API.
type SessionFlag struct {
	repo    *SessionRepository
	baseURL string
}

func (f *SessionFlag) LoggedIn() (bool, error) {
	return f.repo.LoggedIn(f.baseURL)
}

func (f *SessionFlag) SetLoggedIn(v bool) error {
	return f.repo.SetLoggedIn(f.baseURL, v)
}
