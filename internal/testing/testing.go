// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/studyflow/internal/feed"
	"github.com/desertthunder/studyflow/internal/models"
)

// SamplePosts builds n posts with ids "{prefix}-{i}".
func SamplePosts(prefix string, n int) []models.Post {
	posts := make([]models.Post, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range posts {
		posts[i] = models.Post{
			ID:          fmt.Sprintf("%s-%d", prefix, i),
			CommunityID: prefix,
			Author:      "Test Author",
			Initials:    "TA",
			Content:     fmt.Sprintf("post %d from %s", i, prefix),
			Likes:       i,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
	}
	return posts
}

// StubFeed is a [feed.PageFetcher] serving fixed post lists by source, sliced by skip/limit.
type StubFeed struct {
	mu      sync.Mutex
	Sources map[string][]models.Post // keyed by [StubFeed.Key]
	Err     error
	Calls   int
}

// Key identifies a source, e.g. "community:react".
func (s *StubFeed) Key(kind feed.SourceKind, sourceID string) string {
	if sourceID == "" {
		return kind.String()
	}
	return kind.String() + ":" + sourceID
}

func (s *StubFeed) FetchPage(_ context.Context, kind feed.SourceKind, sourceID string, skip, limit int) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++

	if s.Err != nil {
		return nil, s.Err
	}
	posts := s.Sources[s.Key(kind, sourceID)]
	if skip >= len(posts) {
		return []models.Post{}, nil
	}
	end := min(skip+limit, len(posts))
	return append([]models.Post(nil), posts[skip:end]...), nil
}

// CallCount returns the number of FetchPage calls so far.
func (s *StubFeed) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
