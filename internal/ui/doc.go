// Package ui implements an interactive feed browser using bubbletea's Elm architecture.
//
// The TUI shows one feed at a time in a tab bar:
//  1. home : posts from joined communities
//  2. explore : every post
//  3. community : a single community's posts
//
// All tabs share one [feed.Controller]. Switching tabs resets it, scrolling onto the last
// loaded post fetches the next page, and results from a superseded fetch are dropped.
// When the session can't be renewed the [Model] switches to [ExpiredView] until the user retries.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, r, l, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
