package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	th "github.com/desertthunder/studyflow/internal/testing"
)

func sampleExport() *models.FeedExport {
	return &models.FeedExport{
		Source:     "community",
		SourceID:   "react",
		Pages:      1,
		ExportedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Posts: []models.Post{
			{
				ID:           "1",
				CommunityID:  "react",
				Author:       "Ada Lovelace",
				Content:      "Hooks, finally.\nSecond line",
				Tag:          "Discussion",
				Likes:        3,
				CommentCount: 1,
				CreatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			},
			{
				ID:      "2",
				Content: "Has a, comma and \"quotes\"",
			},
		},
	}
}

func TestExporters(t *testing.T) {
	export := sampleExport()

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(export)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("generated CSV does not parse: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header + 2 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "ID,Community,Author,Tag,Likes,Comments,Created,Content" {
			t.Errorf("unexpected headers: %v", records[0])
		}
		if records[1][6] != "2024-05-01T12:00:00Z" {
			t.Errorf("expected RFC 3339 timestamp, got %q", records[1][6])
		}
		if records[2][7] != `Has a, comma and "quotes"` {
			t.Errorf("content not escaped correctly: %q", records[2][7])
		}
		if records[2][6] != "" {
			t.Errorf("zero time should be empty, got %q", records[2][6])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(export)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		md := string(data)

		for _, want := range []string{
			"# Feed: community/react",
			"**Posts**: 2",
			"## 1. Ada Lovelace `Discussion`",
			"> Hooks, finally.\n> Second line",
			"_3 likes · 1 comments · react · 2024-05-01T12:00:00Z_",
			"## 2. anonymous",
		} {
			if !strings.Contains(md, want) {
				t.Errorf("expected markdown to contain %q\n%s", want, md)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(export)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		text := string(data)
		if !strings.Contains(text, "1. [Ada Lovelace] Hooks, finally. Second line (3 likes)") {
			t.Errorf("unexpected text output:\n%s", text)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(export, false)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		var decoded models.FeedExport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded.Posts) != 2 || decoded.SourceID != "react" {
			t.Errorf("unexpected decoded export: %+v", decoded)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ext  string
	}{
		{"json", JSON, "json"},
		{"CSV", CSV, "csv"},
		{"md", Markdown, "md"},
		{"markdown", Markdown, "md"},
		{"text", Text, "txt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || got.Extension() != tt.ext {
				t.Errorf("ParseFormat(%q) = %q (.%s), want %q (.%s)", tt.in, got, got.Extension(), tt.want, tt.ext)
			}
		})
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestWriteExport(t *testing.T) {
	export := sampleExport()

	t.Run("WithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteExport(export, CSV, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != "community_react_posts.csv" {
			t.Errorf("expected default filename, got %q", path)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WithNestedPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "exports", "feed.md")

		got, err := WriteExport(export, Markdown, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "# Feed: community/react") {
			t.Errorf("unexpected file content: %s", content)
		}
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		if _, err := WriteExport(export, Format("xml"), filepath.Join(t.TempDir(), "x.xml")); err == nil {
			t.Error("expected error for unsupported format")
		}
	})

	t.Run("DefaultFilenameSanitizes", func(t *testing.T) {
		name := DefaultFilename(&models.FeedExport{Source: "community", SourceID: "a/b c"}, Text)
		if name != "community_a-b-c_posts.txt" {
			t.Errorf("unexpected filename %q", name)
		}
	})
}
