package server

import (
	"fmt"
	"time"
)

// Seed account, usable against a fresh server.
const (
	DemoEmail    = "demo@studyflow.dev"
	DemoPassword = "password123"
)

var seedCommunities = []struct {
	slug, name, description string
	tags                    []string
	posts                   int
	demoJoined              bool
}{
	{"react", "React", "Hooks, components and the rest of the React ecosystem.", []string{"frontend", "javascript"}, 14, true},
	{"python", "Python", "Scripts, data work and Django questions.", []string{"backend", "data"}, 8, false},
	{"go", "Go", "Concurrency, tooling and the standard library.", []string{"backend", "systems"}, 6, true},
}

var seedTags = []string{"question", "resource", "discussion"}

// seedData creates two users, three communities and their posts. The demo
// user joins react and go, so its home feed holds 20 posts and explore 28.
func (s *Server) seedData() error {
	hash, err := s.hash(DemoPassword)
	if err != nil {
		return err
	}

	demo, err := s.store.addUser(&user{Email: DemoEmail, Username: "demo", FullName: "Demo Student", passwordHash: hash})
	if err != nil {
		return err
	}
	mentor, err := s.store.addUser(&user{Email: "mentor@studyflow.dev", Username: "mentor", FullName: "Ada Mentor", passwordHash: hash})
	if err != nil {
		return err
	}

	base := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)
	n := 0
	for _, sc := range seedCommunities {
		if _, err := s.store.addCommunity(&community{
			Slug:        sc.slug,
			Name:        sc.name,
			Description: sc.description,
			Tags:        sc.tags,
			CreatedAt:   base,
		}, mentor.ID); err != nil {
			return err
		}
		if sc.demoJoined {
			s.store.setMember(sc.slug, demo.ID, true)
		}

		for i := range sc.posts {
			author := mentor.ID
			if i%3 == 0 {
				author = demo.ID
			}
			s.store.addPost(&post{
				CommunityID: sc.slug,
				AuthorID:    author,
				Content:     fmt.Sprintf("%s post %d", sc.name, i+1),
				Tag:         seedTags[i%len(seedTags)],
				CreatedAt:   base.Add(time.Duration(n) * time.Hour),
			})
			n++
		}
	}
	return nil
}
