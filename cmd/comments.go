package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// CommentsList prints the comments on a post, oldest first.
func (r *Runner) CommentsList(ctx context.Context, cmd *cli.Command) error {
	postID, err := requireArg(cmd, "post-id")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	comments, err := svc.Comments.List(ctx, postID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(comments, cmd.Bool("pretty"))
	}
	if len(comments) == 0 {
		return r.writePlain("No comments on post %s\n", postID)
	}
	for _, c := range comments {
		r.writePlain("%s (%s):\n    %s\n", c.Author, c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
	}
	return nil
}

// CommentsCreate comments on a post.
func (r *Runner) CommentsCreate(ctx context.Context, cmd *cli.Command) error {
	postID, err := requireArg(cmd, "post-id")
	if err != nil {
		return err
	}
	content, err := requireArg(cmd, "content")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	c, err := svc.Comments.Create(ctx, postID, content)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Comment %s added to post %s\n", c.ID, postID)
}
