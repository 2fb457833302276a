package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.StringArg(name)
	if v == "" {
		return "", fmt.Errorf("%w: <%s>", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// PostsCreate publishes a post.
func (r *Runner) PostsCreate(ctx context.Context, cmd *cli.Command) error {
	content, err := requireArg(cmd, "content")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	post, err := svc.Posts.Create(ctx, models.PostInput{
		Content:     content,
		CommunityID: cmd.String("community"),
		Tag:         cmd.String("tag"),
	})
	if err != nil {
		return err
	}
	r.writePlain("✓ Posted in c/%s\n", post.CommunityID)
	r.writePost(*post)
	return nil
}

// PostsEdit replaces a post's content.
func (r *Runner) PostsEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
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

	post, err := svc.Posts.Update(ctx, id, models.PostInput{Content: content, Tag: cmd.String("tag")})
	if err != nil {
		return err
	}
	r.writePlain("✓ Post updated\n")
	r.writePost(*post)
	return nil
}

// PostsDelete removes a post.
func (r *Runner) PostsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	if err := svc.Posts.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted post %s\n", id)
}

// PostsLike likes a post.
func (r *Runner) PostsLike(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	if err := svc.Posts.Like(ctx, id); err != nil {
		return err
	}
	return r.writePlain("♥ Liked post %s\n", id)
}

// PostsUnlike removes a like.
func (r *Runner) PostsUnlike(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	if err := svc.Posts.Unlike(ctx, id); err != nil {
		return err
	}
	return r.writePlain("♡ Unliked post %s\n", id)
}
