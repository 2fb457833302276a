package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

// flexString accepts a JSON string, number or null. API ids arrive in both forms.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// rawAuthor is the object form of a post or comment author.
type rawAuthor struct {
	ID       flexString `json:"id"`
	Username string     `json:"username"`
	FullName string     `json:"full_name"`
	Name     string     `json:"name"`
}

// rawPost is every shape of post the API has been seen to return.
// All fields are optional:
//
//	id            string | number
//	community_id  string | number  (alias communityId, or community as a slug or {slug, id})
//	author        string | {id, username, full_name, name}
//	author_id     string | number
//	initials      string           (derived from author when absent)
//	content       string           (alias text)
//	tag           string
//	likes         number | [user ids]  (alias likes_count)
//	liked_by_me   bool             (alias is_liked)
//	comments      number | [comments]  (alias comments_count)
//	created_at    RFC 3339 or naive ISO timestamp (alias createdAt)
type rawPost struct {
	ID             flexString      `json:"id"`
	CommunityID    flexString      `json:"community_id"`
	CommunityIDAlt flexString      `json:"communityId"`
	Community      json.RawMessage `json:"community"`
	Author         json.RawMessage `json:"author"`
	AuthorID       flexString      `json:"author_id"`
	Initials       string          `json:"initials"`
	Content        string          `json:"content"`
	Text           string          `json:"text"`
	Tag            string          `json:"tag"`
	Likes          json.RawMessage `json:"likes"`
	LikesCount     *int            `json:"likes_count"`
	LikedByMe      *bool           `json:"liked_by_me"`
	IsLiked        *bool           `json:"is_liked"`
	Comments       json.RawMessage `json:"comments"`
	CommentsCount  *int            `json:"comments_count"`
	CreatedAt      string          `json:"created_at"`
	CreatedAtAlt   string          `json:"createdAt"`
}

func normalizePost(r rawPost) models.Post {
	p := models.Post{
		ID:          string(r.ID),
		CommunityID: firstNonEmpty(string(r.CommunityID), string(r.CommunityIDAlt), parseRef(r.Community)),
		AuthorID:    string(r.AuthorID),
		Initials:    r.Initials,
		Content:     firstNonEmpty(r.Content, r.Text),
		Tag:         r.Tag,
		CreatedAt:   parseTime(firstNonEmpty(r.CreatedAt, r.CreatedAtAlt)),
	}

	name, id := parseAuthor(r.Author)
	p.Author = name
	if p.AuthorID == "" {
		p.AuthorID = id
	}
	if p.Initials == "" {
		p.Initials = shared.Initials(p.Author)
	}

	if r.LikesCount != nil {
		p.Likes = *r.LikesCount
	} else {
		p.Likes = countOrLen(r.Likes)
	}
	switch {
	case r.LikedByMe != nil:
		p.LikedByMe = *r.LikedByMe
	case r.IsLiked != nil:
		p.LikedByMe = *r.IsLiked
	}

	if r.CommentsCount != nil {
		p.CommentCount = *r.CommentsCount
	} else {
		p.CommentCount = countOrLen(r.Comments)
	}
	return p
}

type rawComment struct {
	ID        flexString      `json:"id"`
	PostID    flexString      `json:"post_id"`
	PostIDAlt flexString      `json:"postId"`
	Author    json.RawMessage `json:"author"`
	Content   string          `json:"content"`
	Text      string          `json:"text"`
	CreatedAt string          `json:"created_at"`
}

func normalizeComment(r rawComment) models.Comment {
	name, _ := parseAuthor(r.Author)
	return models.Comment{
		ID:        string(r.ID),
		PostID:    firstNonEmpty(string(r.PostID), string(r.PostIDAlt)),
		Author:    name,
		Content:   firstNonEmpty(r.Content, r.Text),
		CreatedAt: parseTime(r.CreatedAt),
	}
}

// rawCommunity accepts a slug or id as the identifier and the camelCase
// aliases the web client reads.
type rawCommunity struct {
	ID             flexString `json:"id"`
	Slug           string     `json:"slug"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	MemberCount    *int       `json:"member_count"`
	MembersCount   *int       `json:"members_count"`
	MemberCountAlt *int       `json:"memberCount"`
	IsJoined       *bool      `json:"is_joined"`
	IsJoinedAlt    *bool      `json:"isJoined"`
	Tags           []string   `json:"tags"`
}

func normalizeCommunity(r rawCommunity) models.Community {
	c := models.Community{
		ID:          firstNonEmpty(r.Slug, string(r.ID)),
		Name:        r.Name,
		Description: r.Description,
		Tags:        r.Tags,
	}
	for _, n := range []*int{r.MemberCount, r.MembersCount, r.MemberCountAlt} {
		if n != nil {
			c.MemberCount = *n
			break
		}
	}
	for _, b := range []*bool{r.IsJoined, r.IsJoinedAlt} {
		if b != nil {
			c.IsJoined = *b
			break
		}
	}
	return c
}

type rawUser struct {
	ID          flexString `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	FullNameAlt string     `json:"fullName"`
	Bio         string     `json:"bio"`
	AvatarURL   string     `json:"avatar_url"`
	AvatarAlt   string     `json:"avatarUrl"`
	CreatedAt   string     `json:"created_at"`
}

func normalizeUser(r rawUser) models.User {
	return models.User{
		ID:        string(r.ID),
		Email:     r.Email,
		Username:  r.Username,
		FullName:  firstNonEmpty(r.FullName, r.FullNameAlt),
		Bio:       r.Bio,
		AvatarURL: firstNonEmpty(r.AvatarURL, r.AvatarAlt),
		CreatedAt: parseTime(r.CreatedAt),
	}
}

// unwrap strips a {"data": ...} envelope when present.
func unwrap(body []byte) json.RawMessage {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err == nil {
		if data, ok := env["data"]; ok && len(data) > 0 && string(data) != "null" {
			return data
		}
	}
	return body
}

// unwrapList finds the array in a bare list or an envelope keyed by one of keys.
func unwrapList(body []byte, keys ...string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return json.RawMessage("[]"), nil
	}
	if trimmed[0] == '[' {
		return trimmed, nil
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	for _, key := range append([]string{"data", "items"}, keys...) {
		if list, ok := env[key]; ok {
			if list = bytes.TrimSpace(list); len(list) > 0 && list[0] == '[' {
				return list, nil
			}
		}
	}
	return nil, fmt.Errorf("failed to decode list response: no list in envelope")
}

func decodePosts(body []byte) ([]models.Post, error) {
	list, err := unwrapList(body, "posts", "results")
	if err != nil {
		return nil, err
	}
	var raws []rawPost
	if err := json.Unmarshal(list, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	posts := make([]models.Post, 0, len(raws))
	for _, r := range raws {
		posts = append(posts, normalizePost(r))
	}
	return posts, nil
}

func decodePost(body []byte) (*models.Post, error) {
	var raw rawPost
	if err := json.Unmarshal(unwrap(body), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode post: %w", err)
	}
	p := normalizePost(raw)
	return &p, nil
}

func decodeComments(body []byte) ([]models.Comment, error) {
	list, err := unwrapList(body, "comments")
	if err != nil {
		return nil, err
	}
	var raws []rawComment
	if err := json.Unmarshal(list, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	comments := make([]models.Comment, 0, len(raws))
	for _, r := range raws {
		comments = append(comments, normalizeComment(r))
	}
	return comments, nil
}

func decodeCommunities(body []byte) ([]models.Community, error) {
	list, err := unwrapList(body, "communities")
	if err != nil {
		return nil, err
	}
	var raws []rawCommunity
	if err := json.Unmarshal(list, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode communities: %w", err)
	}
	communities := make([]models.Community, 0, len(raws))
	for _, r := range raws {
		communities = append(communities, normalizeCommunity(r))
	}
	return communities, nil
}

func decodeUser(body []byte) (*models.User, error) {
	var raw rawUser
	if err := json.Unmarshal(unwrap(body), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	u := normalizeUser(raw)
	return &u, nil
}

func parseAuthor(raw json.RawMessage) (name, id string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", ""
	}
	if raw[0] == '"' {
		_ = json.Unmarshal(raw, &name)
		return name, ""
	}
	var a rawAuthor
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", ""
	}
	return firstNonEmpty(a.FullName, a.Name, a.Username), string(a.ID)
}

// parseRef reads a reference given either as a bare id or as an object with a slug or id.
func parseRef(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] != '{' {
		var id flexString
		if err := json.Unmarshal(raw, &id); err != nil {
			return ""
		}
		return string(id)
	}
	var ref struct {
		Slug string     `json:"slug"`
		ID   flexString `json:"id"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	return firstNonEmpty(ref.Slug, string(ref.ID))
}

func countOrLen(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			return len(items)
		}
	default:
		if n, err := strconv.Atoi(string(raw)); err == nil {
			return n
		}
	}
	return 0
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// parseTime returns the zero time for relative labels like "2h ago".
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
