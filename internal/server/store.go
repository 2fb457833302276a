package server

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
)

var (
	errNotFound  = errors.New("not found")
	errForbidden = errors.New("forbidden")
)

type user struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio"`
	AvatarURL    string    `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
	passwordHash []byte
}

type post struct {
	ID          int
	CommunityID string
	AuthorID    int
	Content     string
	Tag         string
	CreatedAt   time.Time
}

type comment struct {
	ID        int
	PostID    int
	AuthorID  int
	Content   string
	CreatedAt time.Time
}

type community struct {
	Slug        string
	Name        string
	Description string
	Tags        []string
	CreatedAt   time.Time
}

// store holds all server state behind one lock.
type store struct {
	mu sync.RWMutex

	nextID      int
	users       map[int]*user
	emails      map[string]int
	posts       []*post // newest first
	comments    map[int][]*comment
	likes       map[int]map[int]bool // post -> user
	communities map[string]*community
	members     map[string]map[int]bool // community -> user
	resetCodes  map[string]string
}

func newStore() *store {
	return &store{
		users:       map[int]*user{},
		emails:      map[string]int{},
		comments:    map[int][]*comment{},
		likes:       map[int]map[int]bool{},
		communities: map[string]*community{},
		members:     map[string]map[int]bool{},
		resetCodes:  map[string]string{},
	}
}

func (s *store) id() int {
	s.nextID++
	return s.nextID
}

func (s *store) addUser(u *user) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.emails[email]; ok {
		return nil, fmt.Errorf("Email already registered")
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return nil, fmt.Errorf("Username already taken")
		}
	}

	u.ID = s.id()
	u.Email = email
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	cp := *u
	return &cp, nil
}

func (s *store) userByEmail(email string) (*user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, false
	}
	cp := *s.users[id]
	return &cp, true
}

func (s *store) user(id int) (*user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// updateUser applies fn under the write lock.
func (s *store) updateUser(id int, fn func(u *user) error) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("User not found")
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (s *store) addCommunity(c *community, ownerID int) (*community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Slug == "" {
		c.Slug = slugify(c.Name)
	}
	if c.Slug == "" {
		return nil, fmt.Errorf("Community name is required")
	}
	if _, ok := s.communities[c.Slug]; ok {
		return nil, fmt.Errorf("Community already exists")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.communities[c.Slug] = c
	s.members[c.Slug] = map[int]bool{}
	if ownerID != 0 {
		s.members[c.Slug][ownerID] = true
	}
	return c, nil
}

func (s *store) community(slug string) (*community, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.communities[slug]
	return c, ok
}

func (s *store) listCommunities() []*community {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*community, 0, len(s.communities))
	for _, c := range s.communities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func (s *store) setMember(slug string, userID int, member bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[slug]
	if !ok {
		return false
	}
	if member {
		m[userID] = true
	} else {
		delete(m, userID)
	}
	return true
}

func (s *store) memberCount(slug string) (count int, joined func(userID int) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.members[slug]
	snapshot := make(map[int]bool, len(m))
	for k := range m {
		snapshot[k] = true
	}
	return len(snapshot), func(userID int) bool { return snapshot[userID] }
}

func (s *store) addPost(p *post) *post {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.posts = append([]*post{p}, s.posts...)
	cp := *p
	return &cp
}

func (s *store) post(id int) (*post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		if p.ID == id {
			cp := *p
			return &cp, true
		}
	}
	return nil, false
}

func (s *store) updatePost(id, authorID int, content, tag string) (*post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID != id {
			continue
		}
		if p.AuthorID != authorID {
			return nil, errForbidden
		}
		p.Content = content
		if tag != "" {
			p.Tag = tag
		}
		cp := *p
		return &cp, nil
	}
	return nil, errNotFound
}

func (s *store) deletePost(id, authorID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.posts {
		if p.ID != id {
			continue
		}
		if p.AuthorID != authorID {
			return errForbidden
		}
		s.posts = slices.Delete(s.posts, i, i+1)
		delete(s.likes, id)
		delete(s.comments, id)
		return nil
	}
	return errNotFound
}

// filterPosts returns the posts matching keep, newest first.
func (s *store) filterPosts(keep func(p *post) bool) []*post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*post
	for _, p := range s.posts {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (s *store) joinedCommunities(userID int) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	joined := map[string]bool{}
	for slug, m := range s.members {
		if m[userID] {
			joined[slug] = true
		}
	}
	return joined
}

func (s *store) setLike(postID, userID int, liked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, p := range s.posts {
		if p.ID == postID {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if s.likes[postID] == nil {
		s.likes[postID] = map[int]bool{}
	}
	if liked {
		s.likes[postID][userID] = true
	} else {
		delete(s.likes[postID], userID)
	}
	return true
}

func (s *store) likeState(postID, userID int) (count int, likedByMe bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.likes[postID]), s.likes[postID][userID]
}

func (s *store) addComment(c *comment) *comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.comments[c.PostID] = append(s.comments[c.PostID], c)
	return c
}

func (s *store) listComments(postID int) []*comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*comment(nil), s.comments[postID]...)
}

func (s *store) commentCount(postID int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments[postID])
}

func (s *store) setResetCode(email, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetCodes[strings.ToLower(email)] = code
}

func (s *store) resetCode(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.resetCodes[strings.ToLower(email)]
	return code, ok
}

func (s *store) clearResetCode(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resetCodes, strings.ToLower(email))
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
