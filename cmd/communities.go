package main

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/models"
)

// CommunitiesList prints every community.
func (r *Runner) CommunitiesList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	communities, err := svc.Communities.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(communities, cmd.Bool("pretty"))
	}
	for _, c := range communities {
		joined := " "
		if c.IsJoined {
			joined = "✓"
		}
		r.writePlain("%s %-16s %-20s %4d members\n", joined, c.ID, c.Name, c.MemberCount)
	}
	return nil
}

// CommunitiesGet prints one community.
func (r *Runner) CommunitiesGet(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	c, err := svc.Communities.Get(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(c, cmd.Bool("pretty"))
	}
	r.writeCommunity(c)
	return nil
}

// CommunitiesCreate creates a community and joins it.
func (r *Runner) CommunitiesCreate(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	c, err := svc.Communities.Create(ctx, models.CommunityInput{
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		Tags:        models.ParseTags(cmd.String("tags")),
	})
	if err != nil {
		return err
	}
	r.writePlain("✓ Created community\n")
	r.writeCommunity(c)
	return nil
}

// CommunitiesJoin joins a community.
func (r *Runner) CommunitiesJoin(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	if err := svc.Communities.Join(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Joined c/%s\n", id)
}

// CommunitiesLeave leaves a community.
func (r *Runner) CommunitiesLeave(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	svc, err := r.connect()
	if err != nil {
		return err
	}

	if err := svc.Communities.Leave(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Left c/%s\n", id)
}

func (r *Runner) writeCommunity(c *models.Community) {
	r.writePlainHeader(c.Name)
	r.writePlain("ID: %s\n", c.ID)
	if c.Description != "" {
		r.writePlain("%s\n", c.Description)
	}
	r.writePlain("Members: %d\n", c.MemberCount)
	if len(c.Tags) > 0 {
		r.writePlain("Tags: %s\n", strings.Join(c.Tags, ", "))
	}
	if c.IsJoined {
		r.writePlain("✓ Joined\n")
	}
}
