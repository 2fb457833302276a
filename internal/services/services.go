package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
)

// Services bundles the typed API wrappers around one shared [Client].
type Services struct {
	Client      *Client
	Auth        *AuthService
	Posts       *PostService
	Communities *CommunityService
	Comments    *CommentService
}

// New builds every service on top of client.
func New(client *Client, flag SessionFlag, logger *log.Logger) *Services {
	return &Services{
		Client:      client,
		Auth:        NewAuthService(client, flag, logger),
		Posts:       NewPostService(client),
		Communities: NewCommunityService(client),
		Comments:    NewCommentService(client),
	}
}

// fetch sends req and returns the raw body, or nil for a no-content reply.
func fetch(ctx context.Context, r Requester, req Request) ([]byte, error) {
	resp, err := r.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.NoContent {
		return nil, nil
	}
	return resp.Body, nil
}

func pageQuery(skip, limit int) url.Values {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// notFound rewrites a 404 into sentinel so callers can match it without knowing about [APIError].
func notFound(err error, sentinel error, id string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", sentinel, id)
	}
	return err
}

// IsUnauthorized reports whether err means the session is gone.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}
