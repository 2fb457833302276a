package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/studyflow/internal/feed"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/services"
	th "github.com/desertthunder/studyflow/internal/testing"
)

type fakeLiker struct {
	calls int
	err   error
}

func (f *fakeLiker) ToggleLike(_ context.Context, p models.Post) (models.Post, error) {
	f.calls++
	if f.err != nil {
		return p, f.err
	}
	p.LikedByMe = !p.LikedByMe
	if p.LikedByMe {
		p.Likes++
	} else {
		p.Likes--
	}
	return p, nil
}

func newStub() *th.StubFeed {
	stub := &th.StubFeed{Sources: map[string][]models.Post{}}
	stub.Sources[stub.Key(feed.HomeFeed, "")] = th.SamplePosts("home", 25)
	stub.Sources[stub.Key(feed.ExploreFeed, "")] = th.SamplePosts("explore", 4)
	stub.Sources[stub.Key(feed.CommunityFeed, "react")] = th.SamplePosts("react", 12)
	return stub
}

// run executes cmd and feeds every resulting ui message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			run(t, m, c)
		}
	case Msg:
		_, next := m.Update(msg)
		run(t, m, next)
	}
}

func press(t *testing.T, m *Model, k tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(k)
	run(t, m, cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(m *Model) int {
	return len(m.posts.Items())
}

func TestModel(t *testing.T) {
	ctx := context.Background()

	t.Run("Init loads the first home page", func(t *testing.T) {
		m := NewModel(ctx, newStub(), &fakeLiker{}, "react", nil)
		run(t, m, m.Init())

		if got := loaded(m); got != 10 {
			t.Fatalf("loaded = %d, want 10", got)
		}
		if !m.feed.HasMore() {
			t.Error("expected more pages")
		}
		if !strings.Contains(m.View(), "home") {
			t.Errorf("view missing tab label: %q", m.View())
		}
	})

	t.Run("tabs cycle through sources", func(t *testing.T) {
		m := NewModel(ctx, newStub(), &fakeLiker{}, "react", nil)
		run(t, m, m.Init())

		press(t, m, tea.KeyMsg{Type: tea.KeyTab})
		if m.tabs[m.active].kind != feed.ExploreFeed {
			t.Fatalf("active tab = %v, want explore", m.tabs[m.active].kind)
		}
		if got := loaded(m); got != 4 {
			t.Fatalf("loaded = %d, want 4", got)
		}
		if m.feed.HasMore() {
			t.Error("short explore page should end the feed")
		}

		press(t, m, tea.KeyMsg{Type: tea.KeyTab})
		if got := m.posts.Title; got != "community/react" {
			t.Fatalf("title = %q, want community/react", got)
		}
		if got := loaded(m); got != 10 {
			t.Fatalf("loaded = %d, want 10", got)
		}

		press(t, m, tea.KeyMsg{Type: tea.KeyTab})
		if m.active != 0 {
			t.Fatalf("active = %d, want wrap to 0", m.active)
		}

		press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
		if m.tabs[m.active].kind != feed.CommunityFeed {
			t.Fatalf("shift+tab should wrap to the community tab, got %v", m.tabs[m.active].kind)
		}
	})

	t.Run("community tab omitted without a community", func(t *testing.T) {
		m := NewModel(ctx, newStub(), nil, "", nil)
		if len(m.tabs) != 2 {
			t.Fatalf("tabs = %d, want 2", len(m.tabs))
		}
	})

	t.Run("last item loads the next page", func(t *testing.T) {
		stub := newStub()
		m := NewModel(ctx, stub, &fakeLiker{}, "react", nil)
		run(t, m, m.Init())

		if cmd := m.maybeLoadMore(); cmd != nil {
			t.Fatal("no load expected away from the end")
		}

		m.posts.Select(loaded(m) - 1)
		run(t, m, m.maybeLoadMore())
		if got := loaded(m); got != 20 {
			t.Fatalf("loaded = %d, want 20", got)
		}
		if got := m.posts.Index(); got != 9 {
			t.Errorf("selection moved to %d, want 9", got)
		}

		m.posts.Select(loaded(m) - 1)
		run(t, m, m.maybeLoadMore())
		if got := loaded(m); got != 25 {
			t.Fatalf("loaded = %d, want 25", got)
		}
		if m.feed.HasMore() {
			t.Error("feed should be exhausted")
		}

		calls := stub.CallCount()
		m.posts.Select(loaded(m) - 1)
		if cmd := m.maybeLoadMore(); cmd != nil {
			t.Error("exhausted feed should not load")
		}
		if stub.CallCount() != calls {
			t.Error("unexpected fetch")
		}
	})

	t.Run("reload resets to the first page", func(t *testing.T) {
		m := NewModel(ctx, newStub(), &fakeLiker{}, "react", nil)
		run(t, m, m.Init())
		m.posts.Select(loaded(m) - 1)
		run(t, m, m.maybeLoadMore())

		press(t, m, runes("r"))
		if got := loaded(m); got != 10 {
			t.Fatalf("loaded = %d, want 10", got)
		}
		if got := m.feed.Offset(); got != 10 {
			t.Errorf("offset = %d, want 10", got)
		}
	})

	t.Run("like updates the selected post", func(t *testing.T) {
		liker := &fakeLiker{}
		m := NewModel(ctx, newStub(), liker, "react", nil)
		run(t, m, m.Init())

		before := m.feed.Items()[0]
		press(t, m, runes("l"))

		if liker.calls != 1 {
			t.Fatalf("ToggleLike calls = %d, want 1", liker.calls)
		}
		after := m.feed.Items()[0]
		if !after.LikedByMe || after.Likes != before.Likes+1 {
			t.Fatalf("post not updated: %+v", after)
		}
		item := m.posts.Items()[0].(postItem)
		if !item.post.LikedByMe {
			t.Error("list item not refreshed")
		}
		if !strings.Contains(item.Description(), "♥") {
			t.Errorf("description = %q", item.Description())
		}
	})

	t.Run("like failure is shown", func(t *testing.T) {
		liker := &fakeLiker{err: errors.New("boom")}
		m := NewModel(ctx, newStub(), liker, "react", nil)
		run(t, m, m.Init())

		press(t, m, runes("l"))
		if m.err == nil || m.view != FeedView {
			t.Fatalf("err = %v, view = %v", m.err, m.view)
		}
		if !strings.Contains(m.View(), "boom") {
			t.Error("error missing from view")
		}
	})

	t.Run("fetch failure keeps the feed view", func(t *testing.T) {
		stub := newStub()
		stub.Err = errors.New("server down")
		m := NewModel(ctx, stub, &fakeLiker{}, "react", nil)
		run(t, m, m.Init())

		if m.view != FeedView {
			t.Fatalf("view = %v, want FeedView", m.view)
		}
		if m.err == nil {
			t.Fatal("expected error")
		}

		stub.Err = nil
		press(t, m, runes("r"))
		if m.err != nil || loaded(m) != 10 {
			t.Fatalf("retry failed: err = %v, loaded = %d", m.err, loaded(m))
		}
	})

	t.Run("session expiry switches views", func(t *testing.T) {
		stub := newStub()
		stub.Err = fmt.Errorf("%w: refresh rejected", services.ErrSessionExpired)
		m := NewModel(ctx, stub, &fakeLiker{}, "react", nil)
		run(t, m, m.Init())

		if m.view != ExpiredView {
			t.Fatalf("view = %v, want ExpiredView", m.view)
		}
		if !strings.Contains(m.View(), "Session expired") {
			t.Errorf("view = %q", m.View())
		}

		press(t, m, runes("l"))
		if m.view != ExpiredView {
			t.Fatal("other keys should be ignored while expired")
		}

		stub.Err = nil
		press(t, m, runes("r"))
		if m.view != FeedView || loaded(m) != 10 {
			t.Fatalf("view = %v, loaded = %d", m.view, loaded(m))
		}
	})

	t.Run("stale results are dropped", func(t *testing.T) {
		m := NewModel(ctx, newStub(), &fakeLiker{}, "react", nil)
		run(t, m, m.Init())

		m.Update(pageLoadedMsg(feed.ErrStale))
		if m.err != nil {
			t.Fatalf("stale result set err = %v", m.err)
		}
		if loaded(m) != 10 {
			t.Fatalf("loaded = %d, want 10", loaded(m))
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := NewModel(ctx, newStub(), &fakeLiker{}, "react", nil)
		_, cmd := m.Update(runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestPostItem(t *testing.T) {
	item := postItem{post: models.Post{
		Author:       "Ada Mentor",
		Initials:     "AM",
		CommunityID:  "go",
		Content:      "Channels",
		Tag:          "question",
		Likes:        3,
		CommentCount: 2,
	}}

	if got := item.Title(); got != "[AM] Channels" {
		t.Errorf("Title() = %q", got)
	}
	want := "Ada Mentor • c/go • ♡ 3 • 2 comments • #question"
	if got := item.Description(); got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}
}
