// Package tasks runs long feed operations with real-time progress reporting.
//
// [FeedExporter.Export] pages through a feed source with a [feed.Controller],
// throttled by a rate limiter, and writes the collected posts with the formatter.
//
// # Progress Reporting
//
// Operations take an optional send-only channel of [ProgressUpdate]. Updates
// use select with default so a slow or absent reader never blocks the task.
package tasks
