package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

type CommentService struct {
	client Requester
}

func NewCommentService(client Requester) *CommentService {
	return &CommentService{client: client}
}

func (s *CommentService) List(ctx context.Context, postID string) ([]models.Comment, error) {
	body, err := fetch(ctx, s.client, Request{Method: http.MethodGet, Path: postPath(postID) + "/comments"})
	if err != nil {
		return nil, notFound(err, shared.ErrPostNotFound, postID)
	}
	return decodeComments(body)
}

func (s *CommentService) Create(ctx context.Context, postID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: comment content is required", shared.ErrInvalidInput)
	}
	body, err := fetch(ctx, s.client, Request{
		Method: http.MethodPost,
		Path:   postPath(postID) + "/comments",
		Body:   map[string]string{"content": content},
	})
	if err != nil {
		return nil, notFound(err, shared.ErrPostNotFound, postID)
	}
	if body == nil {
		return &models.Comment{PostID: postID, Content: content}, nil
	}

	var raw rawComment
	if err := json.Unmarshal(unwrap(body), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode comment: %w", err)
	}
	c := normalizeComment(raw)
	if c.PostID == "" {
		c.PostID = postID
	}
	return &c, nil
}
