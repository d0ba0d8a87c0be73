package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/headlines/internal/feed"
)

// Events is the feed.Listener that feeds controller callbacks into the
// bubbletea update loop. The App keeps exactly one Next command pending,
// so messages reach Update in the order they were sent. Callbacks from
// concurrent operations may be sent out of order; the App orders state
// snapshots by Version.
type Events struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

func NewEvents() *Events {
	return &Events{
		ch:   make(chan tea.Msg, 64),
		done: make(chan struct{}),
	}
}

func (e *Events) OnStateChange(s feed.State) { e.send(stateMsg{state: s}) }

func (e *Events) OnError(err error) { e.send(loadErrMsg{err: err}) }

func (e *Events) OnShakeRefreshed() { e.send(shakeRefreshedMsg{}) }

// send blocks while the buffer is full; it gives up once Close is called.
func (e *Events) send(msg tea.Msg) {
	select {
	case <-e.done:
		return
	default:
	}
	select {
	case e.ch <- msg:
	case <-e.done:
	}
}

// Next waits for the next controller event.
func (e *Events) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-e.ch:
			return msg
		case <-e.done:
			return nil
		}
	}
}

// Close releases any sender blocked on a program that has exited.
func (e *Events) Close() {
	e.once.Do(func() { close(e.done) })
}
