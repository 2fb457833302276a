package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

var (
	_ list.Item = postItem{}
)

// postItem wraps [models.Post] to implement [list.Item].
type postItem struct {
	post models.Post
}

func (i postItem) FilterValue() string { return i.post.Content }
func (i postItem) Title() string {
	return fmt.Sprintf("[%s] %s", i.post.Initials, shared.Truncate(i.post.Content, 72))
}
func (i postItem) Description() string {
	heart := "♡"
	if i.post.LikedByMe {
		heart = "♥"
	}
	desc := fmt.Sprintf("%s • c/%s • %s %d • %d comments", i.post.Author, i.post.CommunityID, heart, i.post.Likes, i.post.CommentCount)
	if i.post.Tag != "" {
		desc = fmt.Sprintf("%s • #%s", desc, i.post.Tag)
	}
	return desc
}

func postItems(posts []models.Post) []list.Item {
	items := make([]list.Item, len(posts))
	for i, p := range posts {
		items[i] = postItem{post: p}
	}
	return items
}
