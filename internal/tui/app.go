package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/headlines/internal/config"
	"github.com/pders01/headlines/internal/debuglog"
	"github.com/pders01/headlines/internal/feed"
	"github.com/pders01/headlines/internal/media"
)

// Controller is the part of *feed.Controller the UI drives.
type Controller interface {
	State() feed.State
	LoadInitial(ctx context.Context) error
	LoadMore(ctx context.Context) error
	Search(ctx context.Context, query string) error
	Refresh(ctx context.Context) error
	OnShakeEvent(ctx context.Context) error
	AcknowledgeShake()
}

// ReadMarker records that an article was opened. *storage.Store
// implements it.
type ReadMarker interface {
	MarkArticleRead(url string, read bool) error
}

// Opener hands links to external programs. *media.Launcher implements it.
type Opener interface {
	Open(target string) error
	OpenImage(target string) error
}

type Option func(*App)

// WithStore persists read markers.
func WithStore(store ReadMarker) Option {
	return func(a *App) { a.store = store }
}

// WithLauncher replaces the media launcher built from the config.
func WithLauncher(o Opener) Option {
	return func(a *App) { a.launcher = o }
}

// WithContext bounds every controller call the UI makes.
func WithContext(ctx context.Context) Option {
	return func(a *App) { a.ctx = ctx }
}

type App struct {
	config     *config.Config
	ctrl       Controller
	events     *Events
	store      ReadMarker
	launcher   Opener
	ctx        context.Context
	keyHandler *KeyHandler
	log        *debuglog.FieldLogger

	list        list.Model
	searchInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model
	help        help.Model

	view         View
	previousView View
	state        feed.State
	current      *feed.Article
	read         map[string]bool

	status     string
	statusKind StatusKind

	width           int
	height          int
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
	loadingArticle  bool
}

func NewApp(cfg *config.Config, ctrl Controller, events *Events, opts ...Option) *App {
	delegate := list.NewDefaultDelegate()
	articleList := list.New([]list.Item{}, delegate, 0, 0)
	articleList.SetShowTitle(false)
	articleList.SetShowStatusBar(false)
	articleList.SetFilteringEnabled(false)
	articleList.SetShowHelp(false)
	articleList.DisableQuitKeybindings()

	si := textinput.New()
	si.Placeholder = "Search news…"
	si.Prompt = "⌕ "
	si.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	app := &App{
		config:       cfg,
		ctrl:         ctrl,
		events:       events,
		ctx:          context.Background(),
		log:          debuglog.WithFields(map[string]interface{}{"component": "tui"}),
		list:         articleList,
		searchInput:  si,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		help:         help.New(),
		view:         ViewFeed,
		previousView: ViewFeed,
		state:        ctrl.State(),
		read:         make(map[string]bool),
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.launcher == nil {
		app.launcher = media.NewLauncher(cfg)
	}

	app.keyHandler = NewKeyHandler(app, cfg)
	return app
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	maxWidth := a.config.UI.Article.WordWrapMaxWidth
	minWidth := a.config.UI.Article.WordWrapMinWidth

	wordWrapWidth := (a.width * 9) / 10
	if maxWidth > 0 && wordWrapWidth > maxWidth {
		wordWrapWidth = maxWidth
	}
	if wordWrapWidth < minWidth {
		wordWrapWidth = minWidth
	}
	if a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.events.Next(),
		a.loadInitial(),
		a.spinner.Tick,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		if a.view == ViewDetail {
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}
		return a, nil

	case stateMsg:
		a.applyState(msg.state)
		return a, a.events.Next()

	case loadErrMsg:
		a.setStatus(msg.err.Error(), errorKind(msg.err))
		return a, a.events.Next()

	case shakeRefreshedMsg:
		if a.view != ViewShakeAck {
			a.previousView = a.view
			a.view = ViewShakeAck
		}
		return a, a.events.Next()

	case opDoneMsg:
		a.handleOpDone(msg)
		return a, nil

	case articleRenderedMsg:
		if a.view == ViewDetail && a.current != nil && a.current.URL == msg.url {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loadingArticle = false
		}
		return a, nil

	case errorMsg:
		a.setStatus(msg.err.Error(), StatusError)
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.kind)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	a.help.Width = width

	// header (2) + search frame (3) + separator and status bar (2)
	a.list.SetSize(width, max(height-7, 3))
	a.viewport.Width = width
	a.viewport.Height = max(height-2, 1)

	inputWidth := width - 8
	if inputWidth < 10 {
		inputWidth = max(width-4, 1)
	}
	a.searchInput.Width = inputWidth
}

// applyState takes a controller snapshot as the source of truth for the
// list. Snapshots older than the one shown are dropped; concurrent
// operations may deliver theirs out of order.
func (a *App) applyState(s feed.State) {
	prev := a.state
	if prev.NewerThan(s) {
		a.log.Debugf("dropping outdated state v%d, showing v%d", s.Version, prev.Version)
		return
	}
	a.state = s

	if s.IsLoading() && !prev.IsLoading() {
		a.clearStatus()
	}
	if s.Mode.IsHeadlines() && prev.Mode.IsSearch() {
		a.searchInput.Reset()
	}

	a.refreshItems()
	if replacedItems(prev, s) {
		a.list.ResetSelected()
	}
}

// replacedItems reports whether s finished a load that replaced the list
// rather than extending it.
func replacedItems(prev, s feed.State) bool {
	if s.IsLoading() || !prev.IsLoading() || prev.IsLoadingMore() {
		return false
	}
	if len(prev.Items) == 0 || len(s.Items) == 0 {
		return true
	}
	return prev.Items[0].URL != s.Items[0].URL
}

func (a *App) refreshItems() {
	maxDesc := a.config.UI.Article.MaxDescriptionLength
	items := make([]list.Item, len(a.state.Items))
	for i, art := range a.state.Items {
		items[i] = articleItem{article: art, read: a.read[art.URL], maxDesc: maxDesc}
	}
	_ = a.list.SetItems(items)
}

func (a *App) handleOpDone(msg opDoneMsg) {
	if msg.err == nil {
		return
	}
	var verr *feed.ValidationError
	switch {
	case errors.As(msg.err, &verr):
		a.setStatus(verr.Error(), StatusWarn)
		a.searchInput.Focus()
	case errors.Is(msg.err, feed.ErrClosed), errors.Is(msg.err, context.Canceled):
	default:
		// Load failures were already reported through OnError.
		a.log.Debugf("%s: %v", msg.op, msg.err)
	}
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) clearStatus() {
	a.status = ""
	a.statusKind = StatusInfo
}

func (a *App) selectedArticle() (feed.Article, bool) {
	if i, ok := a.list.SelectedItem().(articleItem); ok {
		return i.article, true
	}
	return feed.Article{}, false
}

func (a *App) View() string {
	var content string
	bodyHeight := max(a.height-2, 1)

	switch a.view {
	case ViewFeed:
		content = a.feedView(bodyHeight)
	case ViewDetail:
		if a.loadingArticle {
			content = centered(a.width, bodyHeight, muted(MsgLoadingArticle))
		} else {
			content = a.viewport.View()
		}
	case ViewShakeAck:
		content = centered(a.width, bodyHeight, shakeModal("Enter"))
	}

	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width-1, 0)))
	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.statusBar())
}

func (a *App) feedView(height int) string {
	header := feedHeader(a.state, a.width)
	search := searchBox(a.searchInput)

	bodyHeight := max(height-lipgloss.Height(header)-lipgloss.Height(search), 1)
	var body string
	switch {
	case len(a.state.Items) > 0:
		body = a.list.View()
	case a.state.IsLoading():
		body = centered(a.width, bodyHeight, a.spinner.View()+" "+loadingMessage(a.state))
	default:
		body = centered(a.width, bodyHeight, emptyFeed(a.state, a.keyHandler.keys.Refresh.Help().Key))
	}

	return ContentWrapper(a.width, height).Render(
		lipgloss.JoinVertical(lipgloss.Top, header, search, body),
	)
}

func (a *App) statusBar() string {
	line := StatusBarStyle.Width(a.width).MaxHeight(1)
	switch {
	case a.state.IsLoading():
		return line.Render(a.spinner.View() + " " + loadingMessage(a.state))
	case a.status != "":
		return line.Render(a.statusKind.style().Render(a.statusKind.icon() + a.status))
	default:
		return StatusBarStyle.Width(a.width).Render(a.help.View(a.keyHandler.helpForView()))
	}
}

// ContentWrapper returns a style for wrapping content with width and
// height constraints.
func ContentWrapper(width, height int) lipgloss.Style {
	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height)
}

type articleItem struct {
	article feed.Article
	read    bool
	maxDesc int
}

func (i articleItem) Title() string {
	if i.read {
		return ReadItemStyle.Render(i.article.Title)
	}
	return UnreadItemStyle.Render("● " + i.article.Title)
}

func (i articleItem) Description() string {
	desc := oneLine(i.article.Description)
	if i.maxDesc > 0 {
		desc = truncateEnd(desc, i.maxDesc)
	}

	meta := i.article.SourceName
	if !i.article.PublishedAt.IsZero() {
		if meta != "" {
			meta += " • "
		}
		meta += i.article.PublishedAt.Format(cardDateLayout)
	}
	if meta != "" {
		meta = TimeStyle.Render(" • " + meta)
	}
	return muted(desc) + meta
}

func (i articleItem) FilterValue() string { return i.article.Title }
