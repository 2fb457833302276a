package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/studyflow/internal/feed"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

// PostService reads the three paginated feeds and mutates posts.
type PostService struct {
	client Requester
}

func NewPostService(client Requester) *PostService {
	return &PostService{client: client}
}

// Feed returns the signed-in user's home feed.
func (s *PostService) Feed(ctx context.Context, skip, limit int) ([]models.Post, error) {
	return s.list(ctx, "/posts/feed", skip, limit)
}

func (s *PostService) Explore(ctx context.Context, skip, limit int) ([]models.Post, error) {
	return s.list(ctx, "/posts/explore", skip, limit)
}

// CommunityPosts returns the posts of one community, newest first.
func (s *PostService) CommunityPosts(ctx context.Context, communityID string, skip, limit int) ([]models.Post, error) {
	if communityID == "" {
		return nil, fmt.Errorf("%w: community id", shared.ErrMissingArgument)
	}
	posts, err := s.list(ctx, "/posts/"+url.PathEscape(communityID)+"/posts", skip, limit)
	return posts, notFound(err, shared.ErrCommunityNotFound, communityID)
}

// FetchPage implements [feed.PageFetcher].
func (s *PostService) FetchPage(ctx context.Context, kind feed.SourceKind, sourceID string, skip, limit int) ([]models.Post, error) {
	switch kind {
	case feed.HomeFeed:
		return s.Feed(ctx, skip, limit)
	case feed.ExploreFeed:
		return s.Explore(ctx, skip, limit)
	case feed.CommunityFeed:
		if sourceID == "" {
			return nil, feed.ErrMissingSourceID
		}
		return s.CommunityPosts(ctx, sourceID, skip, limit)
	default:
		return nil, fmt.Errorf("%w: %v", feed.ErrUnknownSource, kind)
	}
}

func (s *PostService) list(ctx context.Context, path string, skip, limit int) ([]models.Post, error) {
	body, err := fetch(ctx, s.client, Request{Method: http.MethodGet, Path: path, Query: pageQuery(skip, limit)})
	if err != nil {
		return nil, err
	}
	return decodePosts(body)
}

func (s *PostService) Create(ctx context.Context, in models.PostInput) (*models.Post, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	body, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: "/posts/", Body: in})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return &models.Post{Content: in.Content, CommunityID: in.CommunityID, Tag: in.Tag}, nil
	}
	return decodePost(body)
}

func (s *PostService) Update(ctx context.Context, id string, in models.PostInput) (*models.Post, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	body, err := fetch(ctx, s.client, Request{Method: http.MethodPut, Path: postPath(id), Body: in})
	if err != nil {
		return nil, notFound(err, shared.ErrPostNotFound, id)
	}
	if body == nil {
		return &models.Post{ID: id, Content: in.Content, CommunityID: in.CommunityID, Tag: in.Tag}, nil
	}
	return decodePost(body)
}

func (s *PostService) Delete(ctx context.Context, id string) error {
	_, err := fetch(ctx, s.client, Request{Method: http.MethodDelete, Path: postPath(id)})
	return notFound(err, shared.ErrPostNotFound, id)
}

func (s *PostService) Like(ctx context.Context, id string) error {
	_, err := fetch(ctx, s.client, Request{Method: http.MethodPost, Path: postPath(id) + "/like"})
	return notFound(err, shared.ErrPostNotFound, id)
}

func (s *PostService) Unlike(ctx context.Context, id string) error {
	_, err := fetch(ctx, s.client, Request{Method: http.MethodDelete, Path: postPath(id) + "/like"})
	return notFound(err, shared.ErrPostNotFound, id)
}

// ToggleLike likes or unlikes p depending on its current state and returns the updated post.
func (s *PostService) ToggleLike(ctx context.Context, p models.Post) (models.Post, error) {
	if p.LikedByMe {
		if err := s.Unlike(ctx, p.ID); err != nil {
			return p, err
		}
		p.LikedByMe = false
		p.Likes = max(p.Likes-1, 0)
		return p, nil
	}

	if err := s.Like(ctx, p.ID); err != nil {
		return p, err
	}
	p.LikedByMe = true
	p.Likes++
	return p, nil
}

func postPath(id string) string {
	return "/posts/" + url.PathEscape(id)
}
