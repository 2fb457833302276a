package models

import (
	"fmt"
	"strings"
	"time"
)

// User is the authenticated account returned by /users/me.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// DisplayName prefers the full name, falling back to the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Post is a single feed entry.
type Post struct {
	ID           string    `json:"id"`
	CommunityID  string    `json:"community_id"`
	AuthorID     string    `json:"author_id,omitempty"`
	Author       string    `json:"author"`
	Initials     string    `json:"initials"`
	Content      string    `json:"content"`
	Tag          string    `json:"tag,omitempty"`
	Likes        int       `json:"likes"`
	LikedByMe    bool      `json:"liked_by_me"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Community is a topic group with its own feed.
type Community struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberCount int      `json:"member_count"`
	IsJoined    bool     `json:"is_joined"`
	Tags        []string `json:"tags"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return fmt.Errorf("email and password are required")
	}
	return nil
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// Validate checks required fields.
func (r RegisterInput) Validate() error {
	if strings.TrimSpace(r.Email) == "" || strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("email and username are required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

// ProfileUpdate carries the editable profile fields; nil fields are left unchanged.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	FullName  *string `json:"full_name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// PasswordResetVerify is the payload for verifying an emailed reset code.
type PasswordResetVerify struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// PasswordReset sets a new password using a verified code.
type PasswordReset struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// PasswordChange changes the password of the signed-in user.
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PostInput is the payload for creating or editing a post.
type PostInput struct {
	Content     string `json:"content"`
	CommunityID string `json:"community_id,omitempty"`
	Tag         string `json:"tag,omitempty"`
}

// Validate checks required fields.
func (p PostInput) Validate() error {
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("post content is required")
	}
	return nil
}

// CommunityInput is the payload for creating a community.
type CommunityInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Validate checks required fields.
func (c CommunityInput) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("community name is required")
	}
	return nil
}

// ParseTags splits a comma separated tag list, dropping empty entries.
func ParseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Export records a feed export written to disk.
type Export struct {
	ID         string    `json:"id"`
	SourceKind string    `json:"source_kind"`
	SourceID   string    `json:"source_id,omitempty"`
	Format     string    `json:"format"`
	Path       string    `json:"path"`
	PostCount  int       `json:"post_count"`
	Pages      int       `json:"pages"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeedExport is a snapshot of every page fetched from one feed source.
type FeedExport struct {
	Source     string    `json:"source"`
	SourceID   string    `json:"source_id,omitempty"`
	Pages      int       `json:"pages"`
	ExportedAt time.Time `json:"exported_at"`
	Posts      []Post    `json:"posts"`
}

// Title names the export after its source, e.g. "community/react".
func (e FeedExport) Title() string {
	if e.SourceID != "" {
		return e.Source + "/" + e.SourceID
	}
	return e.Source
}
