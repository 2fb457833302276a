package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/studyflow/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPageLoaded MsgKind = iota
	MsgPostLiked
)

// pageLoadedMsg is the constructor for [MsgPageLoaded]. err is nil on success.
func pageLoadedMsg(err error) Msg {
	return Msg{kind: MsgPageLoaded, data: struct{ err error }{err}}
}

// postLikedMsg is the constructor for [MsgPostLiked]
func postLikedMsg(post models.Post, err error) Msg {
	return Msg{
		kind: MsgPostLiked,
		data: struct {
			post models.Post
			err  error
		}{post, err},
	}
}
