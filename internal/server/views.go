package server

import "time"

type authorView struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type postView struct {
	ID            int        `json:"id"`
	CommunityID   string     `json:"community_id"`
	Author        authorView `json:"author"`
	Content       string     `json:"content"`
	Tag           string     `json:"tag,omitempty"`
	LikesCount    int        `json:"likes_count"`
	IsLiked       bool       `json:"is_liked"`
	CommentsCount int        `json:"comments_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

type commentView struct {
	ID        int        `json:"id"`
	PostID    int        `json:"post_id"`
	Author    authorView `json:"author"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

type communityView struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberCount int      `json:"member_count"`
	IsJoined    bool     `json:"is_joined"`
	Tags        []string `json:"tags"`
}

func (s *Server) author(id int) authorView {
	u, ok := s.store.user(id)
	if !ok {
		return authorView{ID: id, Username: "deleted"}
	}
	return authorView{ID: u.ID, Username: u.Username, FullName: u.FullName}
}

func (s *Server) postView(p *post, viewer int) postView {
	likes, liked := s.store.likeState(p.ID, viewer)
	return postView{
		ID:            p.ID,
		CommunityID:   p.CommunityID,
		Author:        s.author(p.AuthorID),
		Content:       p.Content,
		Tag:           p.Tag,
		LikesCount:    likes,
		IsLiked:       liked,
		CommentsCount: s.store.commentCount(p.ID),
		CreatedAt:     p.CreatedAt,
	}
}

func (s *Server) postViews(posts []*post, viewer int) []postView {
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.postView(p, viewer))
	}
	return out
}

func (s *Server) commentView(c *comment) commentView {
	return commentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    s.author(c.AuthorID),
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func (s *Server) communityView(c *community, viewer int) communityView {
	count, joined := s.store.memberCount(c.Slug)
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return communityView{
		ID:          c.Slug,
		Slug:        c.Slug,
		Name:        c.Name,
		Description: c.Description,
		MemberCount: count,
		IsJoined:    joined(viewer),
		Tags:        tags,
	}
}
