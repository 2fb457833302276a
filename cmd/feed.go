package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/feed"
	"github.com/desertthunder/studyflow/internal/formatter"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/tasks"
)

// FeedHome prints the home feed.
func (r *Runner) FeedHome(ctx context.Context, cmd *cli.Command) error {
	return r.showFeed(ctx, cmd, feed.HomeFeed, "")
}

// FeedExplore prints the explore feed.
func (r *Runner) FeedExplore(ctx context.Context, cmd *cli.Command) error {
	return r.showFeed(ctx, cmd, feed.ExploreFeed, "")
}

// FeedCommunity prints one community's feed.
func (r *Runner) FeedCommunity(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: community id is required", shared.ErrMissingArgument)
	}
	return r.showFeed(ctx, cmd, feed.CommunityFeed, id)
}

// showFeed pages through a source with a [feed.Controller] and prints what it loaded.
func (r *Runner) showFeed(ctx context.Context, cmd *cli.Command, kind feed.SourceKind, sourceID string) error {
	svc, err := r.connect()
	if err != nil {
		return err
	}

	pages := max(int(cmd.Int("pages")), 1)
	ctrl := feed.NewController(svc.Posts, feed.WithLogger(r.logger))

	r.logger.Info("loading feed", "source", kind, "id", sourceID, "pages", pages)
	if err := ctrl.ResetAndFetch(ctx, kind, sourceID); err != nil {
		return err
	}
	for loaded := 1; loaded < pages && ctrl.HasMore(); loaded++ {
		if err := ctrl.LoadMore(ctx); err != nil {
			return err
		}
	}

	posts := ctrl.Items()
	if cmd.Bool("json") {
		return r.writeJSON(posts, cmd.Bool("pretty"))
	}

	title := kind.String()
	if sourceID != "" {
		title += "/" + sourceID
	}
	r.writePlainHeader(fmt.Sprintf("%s (%d posts)", title, len(posts)))
	for _, p := range posts {
		r.writePost(p)
	}
	if ctrl.HasMore() {
		r.writePlainln("More posts available, use --pages %d", pages+1)
	}
	return nil
}

// FeedExport writes a full feed to a file and records it.
func (r *Runner) FeedExport(ctx context.Context, cmd *cli.Command) error {
	kind, err := feed.ParseSourceKind(cmd.String("source"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	sourceID := cmd.String("id")
	if kind == feed.CommunityFeed && sourceID == "" {
		return fmt.Errorf("%w: --id is required for community exports", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	svc, err := r.connect()
	if err != nil {
		return err
	}

	opts := tasks.ExportOpts{
		Format:    format,
		Output:    cmd.String("output"),
		MaxPages:  int(cmd.Int("max-pages")),
		RateLimit: cmd.Float("rate"),
	}
	if !cmd.IsSet("max-pages") {
		opts.MaxPages = r.config.Feed.MaxPages
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = r.config.Feed.ExportRate
	}

	r.logger.Info("starting export", "source", kind, "id", sourceID, "format", format)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPage:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.WriteFile, tasks.RecordExport:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	exporter := tasks.NewFeedExporter(svc.Posts, r.exports, r.logger)
	result, err := exporter.Export(ctx, progressCh, kind, sourceID, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Source: %s\n", result.Export.Title())
	r.writePlain("Posts: %d across %d pages\n", len(result.Export.Posts), result.Export.Pages)
	r.writePlain("File: %s\n", result.Path)
	if result.Record != nil {
		r.writePlain("Export ID: %s\n", result.Record.ID)
	}
	return nil
}

// FeedExports lists recorded exports.
func (r *Runner) FeedExports(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.connect(); err != nil {
		return err
	}

	exports, err := r.exports.List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(exports, cmd.Bool("pretty"))
	}
	if len(exports) == 0 {
		return r.writePlain("No exports yet\n")
	}
	for _, e := range exports {
		source := e.SourceKind
		if e.SourceID != "" {
			source += "/" + e.SourceID
		}
		r.writePlain("%s  %-18s %-8s %4d posts  %s\n", e.CreatedAt.Format("2006-01-02 15:04"), source, e.Format, e.PostCount, e.Path)
	}
	return nil
}

func (r *Runner) writePost(p models.Post) {
	heart := "♡"
	if p.LikedByMe {
		heart = "♥"
	}
	r.writePlain("\n[%s] %s in c/%s", p.Initials, p.Author, p.CommunityID)
	if p.Tag != "" {
		r.writePlain(" #%s", p.Tag)
	}
	r.writePlain("\n    %s\n", strings.ReplaceAll(p.Content, "\n", "\n    "))
	r.writePlain("    %s %d  💬 %d  id:%s\n", heart, p.Likes, p.CommentCount, p.ID)
}
