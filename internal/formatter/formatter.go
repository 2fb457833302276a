// package formatter renders feed exports as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

// Format is an export file format.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// ParseFormat accepts the format names and their common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q (use json, csv, markdown, txt)", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension, without the dot.
func (f Format) Extension() string {
	if f == Markdown {
		return "md"
	}
	return string(f)
}

// ExportToJSON renders the full export, including metadata.
func ExportToJSON(export *models.FeedExport, pretty bool) ([]byte, error) {
	return shared.MarshalJSON(export, pretty)
}

// ExportToCSV converts posts to CSV with columns: ID, Community, Author, Tag, Likes, Comments, Created, Content
func ExportToCSV(export *models.FeedExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Community", "Author", "Tag", "Likes", "Comments", "Created", "Content"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, post := range export.Posts {
		record := []string{
			post.ID,
			post.CommunityID,
			post.Author,
			post.Tag,
			strconv.Itoa(post.Likes),
			strconv.Itoa(post.CommentCount),
			formatTime(post.CreatedAt),
			post.Content,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders one section per post.
func ExportToMarkdown(export *models.FeedExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Feed: %s\n\n", export.Title())
	fmt.Fprintf(&buf, "**Posts**: %d\n", len(export.Posts))
	fmt.Fprintf(&buf, "**Pages**: %d\n", export.Pages)
	if !export.ExportedAt.IsZero() {
		fmt.Fprintf(&buf, "**Exported**: %s\n", formatTime(export.ExportedAt))
	}
	buf.WriteString("\n")

	for i, post := range export.Posts {
		fmt.Fprintf(&buf, "## %d. %s", i+1, authorOrAnonymous(post))
		if post.Tag != "" {
			fmt.Fprintf(&buf, " `%s`", post.Tag)
		}
		buf.WriteString("\n\n")

		for _, line := range strings.Split(strings.TrimSpace(post.Content), "\n") {
			fmt.Fprintf(&buf, "> %s\n", line)
		}
		buf.WriteString("\n")

		meta := fmt.Sprintf("%d likes · %d comments", post.Likes, post.CommentCount)
		if post.CommunityID != "" {
			meta += " · " + post.CommunityID
		}
		if ts := formatTime(post.CreatedAt); ts != "" {
			meta += " · " + ts
		}
		fmt.Fprintf(&buf, "_%s_\n\n", meta)
	}

	return buf.Bytes(), nil
}

// ExportToText renders one line per post.
func ExportToText(export *models.FeedExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Feed: %s\n", export.Title())
	fmt.Fprintf(&buf, "Posts: %d\n\n", len(export.Posts))

	for i, post := range export.Posts {
		fmt.Fprintf(&buf, "%d. [%s] %s (%d likes)\n", i+1, authorOrAnonymous(post), oneLine(post.Content, 80), post.Likes)
	}

	return buf.Bytes(), nil
}

// Render converts export to format.
func Render(export *models.FeedExport, format Format) ([]byte, error) {
	switch format {
	case JSON:
		return ExportToJSON(export, true)
	case CSV:
		return ExportToCSV(export)
	case Markdown:
		return ExportToMarkdown(export)
	case Text:
		return ExportToText(export)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidFlag, format)
	}
}

// DefaultFilename is {source}[_{id}]_posts.{ext}, e.g. community_react_posts.csv
func DefaultFilename(export *models.FeedExport, format Format) string {
	base := export.Source
	if export.SourceID != "" {
		base += "_" + sanitize(export.SourceID)
	}
	return fmt.Sprintf("%s_posts.%s", base, format.Extension())
}

// WriteExport renders export and writes it to path, creating parent directories.
// An empty path falls back to [DefaultFilename] in the working directory.
func WriteExport(export *models.FeedExport, format Format, path string) (string, error) {
	if path == "" {
		path = DefaultFilename(export, format)
	}

	data, err := Render(export, format)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

func authorOrAnonymous(p models.Post) string {
	if p.Author == "" {
		return "anonymous"
	}
	return p.Author
}

func oneLine(s string, n int) string {
	return shared.Truncate(strings.Join(strings.Fields(s), " "), n)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
