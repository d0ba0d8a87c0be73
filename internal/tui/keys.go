package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/pders01/headlines/internal/config"
)

// keyMap holds the bindings built from the [keys] section of the config.
// Action keys take the configured modifier; quit, back and help do not.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Open      key.Binding
	Submit    key.Binding
	Focus     key.Binding
	Search    key.Binding
	Refresh   key.Binding
	Shake     key.Binding
	OpenLink  key.Binding
	OpenImage key.Binding
	Confirm   key.Binding
	Back      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func newKeyMap(cfg config.KeyConfig) keyMap {
	mod := func(k string) string {
		if cfg.Modifier == "" {
			return k
		}
		return cfg.Modifier + "+" + k
	}
	or := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	b := cfg.Bindings
	quit := or(b.Quit, "q")
	back := or(b.Back, "esc")
	helpKey := or(b.Help, "?")

	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "read")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		Focus:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search box")),
		Search:    key.NewBinding(key.WithKeys(mod(or(b.Search, "s"))), key.WithHelp(mod(or(b.Search, "s")), "search")),
		Refresh:   key.NewBinding(key.WithKeys(mod(or(b.Refresh, "r"))), key.WithHelp(mod(or(b.Refresh, "r")), "refresh")),
		Shake:     key.NewBinding(key.WithKeys(mod(or(b.Shake, "k"))), key.WithHelp(mod(or(b.Shake, "k")), "shake")),
		OpenLink:  key.NewBinding(key.WithKeys(mod(or(b.OpenLink, "o"))), key.WithHelp(mod(or(b.OpenLink, "o")), "open link")),
		OpenImage: key.NewBinding(key.WithKeys(mod(or(b.OpenImage, "p"))), key.WithHelp(mod(or(b.OpenImage, "p")), "open image")),
		Confirm:   key.NewBinding(key.WithKeys("enter", back), key.WithHelp("enter", "ok")),
		Back:      key.NewBinding(key.WithKeys(back), key.WithHelp(back, "back")),
		Help:      key.NewBinding(key.WithKeys(helpKey), key.WithHelp(helpKey, "more")),
		Quit:      key.NewBinding(key.WithKeys(quit, "ctrl+c"), key.WithHelp(quit, "quit")),
	}
}

// viewHelp adapts a set of bindings to help.KeyMap.
type viewHelp struct {
	short []key.Binding
	full  [][]key.Binding
}

func (h viewHelp) ShortHelp() []key.Binding { return h.short }

func (h viewHelp) FullHelp() [][]key.Binding {
	if h.full == nil {
		return [][]key.Binding{h.short}
	}
	return h.full
}
