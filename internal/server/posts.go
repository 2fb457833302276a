package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/studyflow/internal/models"
)

func postID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil
}

// handleFeed serves posts from the viewer's joined communities, or every
// post when they have joined none.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	viewer := currentUserID(r)
	joined := s.store.joinedCommunities(viewer)
	posts := s.store.filterPosts(func(p *post) bool {
		return len(joined) == 0 || joined[p.CommunityID]
	})

	skip, limit := page(r)
	writeJSON(w, http.StatusOK, s.postViews(paginate(posts, skip, limit), viewer))
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	viewer := currentUserID(r)
	posts := s.store.filterPosts(func(*post) bool { return true })

	skip, limit := page(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.postViews(paginate(posts, skip, limit), viewer),
		"total": len(posts),
	})
}

func (s *Server) handleCommunityPosts(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "id")
	if _, ok := s.store.community(slug); !ok {
		writeDetail(w, http.StatusNotFound, "Community not found")
		return
	}

	viewer := currentUserID(r)
	posts := s.store.filterPosts(func(p *post) bool { return p.CommunityID == slug })

	skip, limit := page(r)
	writeJSON(w, http.StatusOK, map[string]any{"data": s.postViews(paginate(posts, skip, limit), viewer)})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in models.PostInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if in.CommunityID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "community_id is required")
		return
	}
	if _, ok := s.store.community(in.CommunityID); !ok {
		writeDetail(w, http.StatusNotFound, "Community not found")
		return
	}

	viewer := currentUserID(r)
	p := s.store.addPost(&post{
		CommunityID: in.CommunityID,
		AuthorID:    viewer,
		Content:     strings.TrimSpace(in.Content),
		Tag:         in.Tag,
	})
	writeJSON(w, http.StatusCreated, s.postView(p, viewer))
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	var in models.PostInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	viewer := currentUserID(r)
	p, err := s.store.updatePost(id, viewer, strings.TrimSpace(in.Content), in.Tag)
	if err != nil {
		writePostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.postView(p, viewer))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	if err := s.store.deletePost(id, currentUserID(r)); err != nil {
		writePostError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, true)
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, false)
}

func (s *Server) setLike(w http.ResponseWriter, r *http.Request, liked bool) {
	id, ok := postID(r)
	viewer := currentUserID(r)
	if !ok || !s.store.setLike(id, viewer, liked) {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	count, likedByMe := s.store.likeState(id, viewer)
	writeJSON(w, http.StatusOK, map[string]any{"likes_count": count, "is_liked": likedByMe})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	if _, ok := s.store.post(id); !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}

	comments := s.store.listComments(id)
	out := make([]commentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, s.commentView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Comment content is required")
		return
	}
	if _, ok := s.store.post(id); !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}

	c := s.store.addComment(&comment{PostID: id, AuthorID: currentUserID(r), Content: strings.TrimSpace(in.Content)})
	writeJSON(w, http.StatusCreated, s.commentView(c))
}

func writePostError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errForbidden):
		writeDetail(w, http.StatusForbidden, "Not allowed to modify this post")
	case errors.Is(err, errNotFound):
		writeDetail(w, http.StatusNotFound, "Post not found")
	default:
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}
