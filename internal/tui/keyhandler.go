package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/headlines/internal/config"
	"github.com/pders01/headlines/internal/feed"
)

type KeyHandler struct {
	app  *App
	keys keyMap
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, keys: newKeyMap(cfg.Keys)}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if kh.app.view == ViewShakeAck {
		return kh.handleShakeAck(msg)
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewFeed && kh.app.searchInput.Focused()
}

// handleShakeAck keeps the modal up until the user acknowledges it. The
// controller ignores further shakes until then.
func (kh *KeyHandler) handleShakeAck(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return kh.app, tea.Quit
	case key.Matches(msg, kh.keys.Confirm):
		kh.app.ctrl.AcknowledgeShake()
		kh.app.view = kh.app.previousView
		if kh.app.view == ViewShakeAck {
			kh.app.view = ViewFeed
		}
		kh.app.setStatus(MsgNewsRefreshed, StatusSuccess)
	}
	return kh.app, nil
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return kh.app, tea.Quit
	case "esc":
		kh.app.searchInput.Blur()
		return kh.app, nil
	case "enter":
		query := kh.app.searchInput.Value()
		kh.app.searchInput.Blur()
		return kh.app, kh.app.search(query)
	case "tab", "down":
		if len(kh.app.list.Items()) > 0 {
			kh.app.searchInput.Blur()
		}
		return kh.app, nil
	default:
		var cmd tea.Cmd
		kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)
		return kh.app, cmd
	}
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	app := kh.app

	switch {
	case key.Matches(msg, kh.keys.Quit):
		return app, tea.Quit, true
	case key.Matches(msg, kh.keys.Help):
		app.help.ShowAll = !app.help.ShowAll
		return app, nil, true
	case key.Matches(msg, kh.keys.Back):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Search):
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Refresh):
		app.clearStatus()
		return app, app.refresh(), true
	case key.Matches(msg, kh.keys.Shake):
		return app, app.shake(), true
	case key.Matches(msg, kh.keys.OpenLink):
		if article, ok := kh.targetArticle(); ok && article.URL != "" {
			return app, app.openURL("link", article.URL), true
		}
		return app, nil, true
	case key.Matches(msg, kh.keys.OpenImage):
		article, ok := kh.targetArticle()
		if !ok {
			return app, nil, true
		}
		if article.ImageURL == "" {
			app.setStatus("No image for this article", StatusWarn)
			return app, nil, true
		}
		return app, app.openURL("image", article.ImageURL), true
	}

	if app.view == ViewFeed && key.Matches(msg, kh.keys.Focus) {
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	}
	return app, nil, false
}

// targetArticle is the article an action applies to: the one being read,
// or the one under the cursor.
func (kh *KeyHandler) targetArticle() (feed.Article, bool) {
	if kh.app.view == ViewDetail && kh.app.current != nil {
		return *kh.app.current, true
	}
	return kh.app.selectedArticle()
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewFeed:
		if key.Matches(msg, kh.keys.Open) {
			if article, ok := kh.app.selectedArticle(); ok {
				return kh.openDetail(article)
			}
			return kh.app, nil
		}
		if key.Matches(msg, kh.keys.Up) && kh.app.list.Index() == 0 {
			kh.app.searchInput.Focus()
			return kh.app, nil
		}
		kh.app.list, cmd = kh.app.list.Update(msg)
		return kh.app, tea.Batch(cmd, kh.app.maybeLoadMore())

	case ViewDetail:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) openDetail(article feed.Article) (tea.Model, tea.Cmd) {
	app := kh.app
	app.current = &article
	app.loadingArticle = true
	app.previousView = ViewFeed
	app.view = ViewDetail

	if !app.read[article.URL] {
		app.read[article.URL] = true
		app.refreshItems()
	}

	return app, tea.Batch(app.renderArticle(article), app.markArticleRead(article))
}

// navigateBack implements smart back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	app := kh.app
	switch app.view {
	case ViewDetail:
		app.view = ViewFeed
		app.current = nil
		app.loadingArticle = false
		return app, nil

	case ViewFeed:
		// Leaving a search goes back to the headlines.
		if app.state.Mode.IsSearch() {
			app.searchInput.Reset()
			return app, app.refresh()
		}
		app.clearStatus()
		return app, nil

	default:
		return app, nil
	}
}

func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	app := kh.app
	if app.view == ViewDetail {
		app.view = ViewFeed
		app.current = nil
	}
	app.clearStatus()
	app.searchInput.Focus()
	app.searchInput.CursorEnd()
	return app, textinput.Blink
}

// helpForView returns the bindings shown in the status bar for the
// current view.
func (kh *KeyHandler) helpForView() viewHelp {
	k := kh.keys
	switch {
	case kh.isInTextInputMode():
		return viewHelp{short: []key.Binding{k.Submit, withHelp(k.Back, "cancel")}}
	case kh.app.view == ViewDetail:
		return viewHelp{
			short: []key.Binding{k.Back, k.OpenLink, k.OpenImage, k.Help, k.Quit},
			full: [][]key.Binding{
				{k.Up, k.Down, k.Back},
				{k.OpenLink, k.OpenImage},
				{k.Search, k.Refresh, k.Shake},
				{k.Help, k.Quit},
			},
		}
	case kh.app.view == ViewShakeAck:
		return viewHelp{short: []key.Binding{k.Confirm}}
	default:
		return viewHelp{
			short: []key.Binding{k.Open, k.Search, k.Refresh, k.Shake, k.Help, k.Quit},
			full: [][]key.Binding{
				{k.Up, k.Down, k.Open},
				{k.Search, k.Focus, k.Refresh, k.Shake},
				{k.OpenLink, k.OpenImage},
				{k.Help, k.Quit},
			},
		}
	}
}

func withHelp(b key.Binding, desc string) key.Binding {
	b.SetHelp(b.Help().Key, desc)
	return b
}
