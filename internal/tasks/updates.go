package tasks

import (
	"fmt"

	"github.com/desertthunder/studyflow/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPage Phase = iota
	WriteFile
	RecordExport
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchPage:
		return "fetch_page"
	case WriteFile:
		return "write_file"
	case RecordExport:
		return "record_export"
	case Done:
		return "done"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingPageUpdate(page, maxPages int, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page,
		Total:   maxPages,
		Message: fmt.Sprintf("Fetching page %d of %s...", page, source),
	}
}

func fetchedPageUpdate(page, maxPages, posts int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page,
		Total:   maxPages,
		Message: fmt.Sprintf("[page %d] %d posts so far", page, posts),
		Data:    posts,
	}
}

func writingUpdate(format, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %s export to %s...", format, path),
	}
}

func doneUpdate(export *models.FeedExport, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Exported %d posts from %s to %s", len(export.Posts), export.Title(), path),
		Data:    export,
	}
}
