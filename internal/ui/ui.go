package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/studyflow/internal/feed"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FeedView ViewState = iota
	ExpiredView
)

// Liker toggles the signed-in user's like on a post.
type Liker interface {
	ToggleLike(ctx context.Context, p models.Post) (models.Post, error)
}

type tab struct {
	kind     feed.SourceKind
	sourceID string
}

func (t tab) label() string {
	if t.sourceID != "" {
		return t.kind.String() + "/" + t.sourceID
	}
	return t.kind.String()
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	feed   *feed.Controller
	liker  Liker
	logger *log.Logger
	tabs   []tab
	active int
	posts  list.Model
	width  int
	height int
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model. The community tab is omitted when community is empty.
func NewModel(ctx context.Context, fetcher feed.PageFetcher, liker Liker, community string, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	tabs := []tab{{kind: feed.HomeFeed}, {kind: feed.ExploreFeed}}
	if community != "" {
		tabs = append(tabs, tab{kind: feed.CommunityFeed, sourceID: community})
	}

	posts := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	posts.SetShowHelp(false)
	posts.SetFilteringEnabled(false)
	posts.Title = tabs[0].label()

	return &Model{
		ctx:    ctx,
		view:   FeedView,
		feed:   feed.NewController(fetcher, feed.WithLogger(logger)),
		liker:  liker,
		logger: logger,
		tabs:   tabs,
		posts:  posts,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init loads the first page of the home feed.
func (m *Model) Init() tea.Cmd {
	return m.reload()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.posts.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if m.view == ExpiredView {
			return m.handleExpiredKeys(msg)
		}
		return m.handleFeedKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgPageLoaded:
			data := msg.data.(struct{ err error })
			return m, m.handlePage(data.err)
		case MsgPostLiked:
			data := msg.data.(struct {
				post models.Post
				err  error
			})
			return m, m.handleLiked(data.post, data.err)
		}
	}

	var cmd tea.Cmd
	m.posts, cmd = m.posts.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ExpiredView:
		return m.renderExpired()
	default:
		return m.renderFeed()
	}
}

func (m *Model) handleFeedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.feed.Invalidate()
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextTab):
		return m, m.switchTab(m.active + 1)
	case key.Matches(msg, m.keys.prevTab):
		return m, m.switchTab(m.active - 1)
	case key.Matches(msg, m.keys.reload):
		return m, m.reload()
	case key.Matches(msg, m.keys.like):
		return m, m.like()
	}

	var cmd tea.Cmd
	m.posts, cmd = m.posts.Update(msg)
	return m, tea.Batch(cmd, m.maybeLoadMore())
}

func (m *Model) handleExpiredKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.view = FeedView
		m.err = nil
		return m, m.reload()
	}
	return m, nil
}

// handlePage folds a finished fetch into the list.
func (m *Model) handlePage(err error) tea.Cmd {
	switch {
	case errors.Is(err, feed.ErrStale):
		return nil
	case m.expired(err):
		return nil
	case err != nil:
		m.logger.Error("failed to load feed", "tab", m.tabs[m.active].label(), "error", err)
		m.err = err
	default:
		m.err = nil
	}
	return m.syncItems()
}

func (m *Model) handleLiked(post models.Post, err error) tea.Cmd {
	if m.expired(err) {
		return nil
	}
	if err != nil {
		m.logger.Error("failed to like post", "id", post.ID, "error", err)
		m.err = err
		return nil
	}
	m.feed.UpdateItem(post)
	return m.syncItems()
}

func (m *Model) expired(err error) bool {
	if !errors.Is(err, services.ErrSessionExpired) {
		return false
	}
	m.view = ExpiredView
	m.err = err
	return true
}

func (m *Model) syncItems() tea.Cmd {
	idx := m.posts.Index()
	items := postItems(m.feed.Items())
	cmd := m.posts.SetItems(items)
	if len(items) > 0 {
		m.posts.Select(min(idx, len(items)-1))
	}
	return cmd
}

func (m *Model) switchTab(i int) tea.Cmd {
	n := len(m.tabs)
	m.active = ((i % n) + n) % n
	m.posts.Title = m.tabs[m.active].label()
	m.posts.ResetSelected()
	m.posts.SetItems(nil)
	return m.reload()
}

func (m *Model) reload() tea.Cmd {
	t := m.tabs[m.active]
	return func() tea.Msg {
		return pageLoadedMsg(m.feed.ResetAndFetch(m.ctx, t.kind, t.sourceID))
	}
}

// maybeLoadMore requests the next page once the cursor sits on the last loaded post.
func (m *Model) maybeLoadMore() tea.Cmd {
	n := len(m.posts.Items())
	if n == 0 || m.posts.Index() < n-1 || !m.feed.HasMore() || m.feed.Loading() {
		return nil
	}
	return func() tea.Msg {
		return pageLoadedMsg(m.feed.LoadMore(m.ctx))
	}
}

func (m *Model) like() tea.Cmd {
	item, ok := m.posts.SelectedItem().(postItem)
	if !ok || m.liker == nil {
		return nil
	}
	return func() tea.Msg {
		post, err := m.liker.ToggleLike(m.ctx, item.post)
		return postLikedMsg(post, err)
	}
}

func (m *Model) renderTabs() string {
	labels := make([]string, len(m.tabs))
	for i, t := range m.tabs {
		style := styles.tab
		if i == m.active {
			style = styles.activeTab
		}
		labels[i] = style.Render(t.label())
	}
	return strings.Join(labels, "")
}

func (m *Model) renderStatus() string {
	cursor := m.feed.Cursor()
	switch {
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v (r to retry)", m.err))
	case cursor.Loading:
		return styles.warn.Render("Loading...")
	case cursor.HasMore:
		return styles.help.Render(fmt.Sprintf("%d posts loaded", cursor.Count))
	default:
		return styles.ok.Render(fmt.Sprintf("%d posts, end of feed", cursor.Count))
	}
}

func (m *Model) renderFeed() string {
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", m.renderTabs(), m.posts.View(), m.renderStatus(), helpView)
}

func (m *Model) renderExpired() string {
	title := styles.err.Render("Session expired")
	info := "\nYour session could not be renewed. Sign in again with `sf auth login`,\nthen press r to retry."
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.reload, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
