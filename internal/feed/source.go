package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/studyflow/internal/models"
)

// SourceKind identifies which endpoint a feed pages through.
type SourceKind int

const (
	HomeFeed SourceKind = iota
	ExploreFeed
	CommunityFeed
)

func (k SourceKind) String() string {
	switch k {
	case HomeFeed:
		return "home"
	case ExploreFeed:
		return "explore"
	case CommunityFeed:
		return "community"
	default:
		return "unknown"
	}
}

// ParseSourceKind accepts the names printed by [SourceKind.String], plus "feed" for the home feed.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home", "feed", "":
		return HomeFeed, nil
	case "explore":
		return ExploreFeed, nil
	case "community":
		return CommunityFeed, nil
	default:
		return HomeFeed, fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// PageFetcher loads one page of posts from a source.
type PageFetcher interface {
	FetchPage(ctx context.Context, kind SourceKind, sourceID string, skip, limit int) ([]models.Post, error)
}

// PageFetcherFunc adapts a function to [PageFetcher].
type PageFetcherFunc func(ctx context.Context, kind SourceKind, sourceID string, skip, limit int) ([]models.Post, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, kind SourceKind, sourceID string, skip, limit int) ([]models.Post, error) {
	return f(ctx, kind, sourceID, skip, limit)
}
