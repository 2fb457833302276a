package repositories

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/studyflow/internal/shared"
	"golang.org/x/net/publicsuffix"
)

// PersistentJar is an [http.CookieJar] that writes the cookies of one API
// through to the session store, so they survive restarts.
type PersistentJar struct {
	jar     *cookiejar.Jar
	repo    *SessionRepository
	baseURL string
	host    string
	logger  *log.Logger

	mu      sync.Mutex
	cookies map[string]*http.Cookie
}

// NewPersistentJar creates a jar for the API at baseURL. Call [PersistentJar.Load] to restore a saved session.
func NewPersistentJar(repo *SessionRepository, baseURL string, logger *log.Logger) (*PersistentJar, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &PersistentJar{
		jar:     jar,
		repo:    repo,
		baseURL: baseURL,
		host:    u.Hostname(),
		logger:  logger,
		cookies: map[string]*http.Cookie{},
	}, nil
}

// Load seeds the jar with the stored cookies. A missing session is not an error.
func (j *PersistentJar) Load() error {
	session, err := j.repo.Get(j.baseURL)
	if err != nil {
		if errors.Is(err, shared.ErrNoSession) {
			return nil
		}
		return err
	}

	u, _ := url.Parse(j.baseURL)
	now := time.Now()

	j.mu.Lock()
	defer j.mu.Unlock()
	var live []*http.Cookie
	for _, c := range session.Cookies {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		if c.Path == "" {
			c.Path = "/"
		}
		j.cookies[cookieKey(c)] = c
		live = append(live, c)
	}
	j.jar.SetCookies(u, live)
	return nil
}

func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// SetCookies stores cookies in memory and, for the API host, persists them.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	if u.Hostname() != j.host {
		return
	}

	now := time.Now()

	j.mu.Lock()
	for _, c := range cookies {
		stored := *c
		if stored.Path == "" {
			stored.Path = "/"
		}
		if stored.MaxAge > 0 {
			stored.Expires = now.Add(time.Duration(stored.MaxAge) * time.Second)
		}
		key := cookieKey(&stored)
		if stored.MaxAge < 0 || (!stored.Expires.IsZero() && stored.Expires.Before(now)) {
			delete(j.cookies, key)
			continue
		}
		j.cookies[key] = &stored
	}
	snapshot := j.snapshotLocked()
	j.mu.Unlock()

	if err := j.repo.SaveCookies(j.baseURL, snapshot); err != nil && j.logger != nil {
		j.logger.Error("failed to persist cookies", "error", err)
	}
}

// Import replaces the jar contents with cookies taken from elsewhere, e.g. a
// browser request copied as cURL.
func (j *PersistentJar) Import(cookies []*http.Cookie) error {
	u, err := url.Parse(j.baseURL)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.cookies = map[string]*http.Cookie{}
	j.mu.Unlock()

	for _, c := range cookies {
		if c.Path == "" {
			c.Path = "/"
		}
	}
	j.SetCookies(u, cookies)
	return nil
}

// Stored returns the cookies that would be persisted.
func (j *PersistentJar) Stored() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *PersistentJar) snapshotLocked() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		cp := *c
		out = append(out, &cp)
	}
	return out
}

func cookieKey(c *http.Cookie) string {
	return c.Domain + ";" + c.Path + ";" + c.Name
}
