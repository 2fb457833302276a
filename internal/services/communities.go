package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

type CommunityService struct {
	client Requester
}

func NewCommunityService(client Requester) *CommunityService {
	return &CommunityService{client: client}
}

func (s *CommunityService) List(ctx context.Context) ([]models.Community, error) {
	body, err := fetch(ctx, s.client, Request{Method: http.MethodGet, Path: "/communities/"})
	if err != nil {
		return nil, err
	}
	return decodeCommunities(body)
}

// Get looks a community up by slug or id.
func (s *CommunityService) Get(ctx context.Context, id string) (*models.Community, error) {
	body, err := fetch(ctx, s.client, Request{Method: http.MethodGet, Path: communityPath(id)})
	if err != nil {
		return nil, notFound(err, shared.ErrCommunityNotFound, id)
	}
	return decodeCommunity(body)
}

// Create makes a new community; the server derives its slug from the name.
func (s *CommunityService) Create(ctx context.Context, in models.CommunityInput) (*models.Community, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	body, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: "/communities/", Body: in})
	if err != nil {
		return nil, err
	}
	return decodeCommunity(body)
}

func (s *CommunityService) Join(ctx context.Context, id string) error {
	_, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: communityPath(id) + "/join"})
	return notFound(err, shared.ErrCommunityNotFound, id)
}

func (s *CommunityService) Leave(ctx context.Context, id string) error {
	_, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: communityPath(id) + "/leave"})
	return notFound(err, shared.ErrCommunityNotFound, id)
}

func communityPath(id string) string {
	return "/communities/" + url.PathEscape(id)
}

func decodeCommunity(body []byte) (*models.Community, error) {
	var raw rawCommunity
	if err := json.Unmarshal(unwrap(body), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode community: %w", err)
	}
	c := normalizeCommunity(raw)
	return &c, nil
}
