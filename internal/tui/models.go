package tui

import "github.com/pders01/headlines/internal/feed"

type View int

const (
	ViewFeed View = iota
	ViewDetail
	ViewShakeAck
)

func (v View) String() string {
	switch v {
	case ViewFeed:
		return "feed"
	case ViewDetail:
		return "detail"
	case ViewShakeAck:
		return "shake"
	default:
		return "unknown"
	}
}

// stateMsg carries a controller snapshot into the update loop.
type stateMsg struct {
	state feed.State
}

// loadErrMsg carries an error the controller reported through OnError.
type loadErrMsg struct {
	err error
}

type shakeRefreshedMsg struct{}

// opDoneMsg is returned when a controller call made from a tea.Cmd
// returns. Load failures already arrived as loadErrMsg; only validation
// errors need showing from here.
type opDoneMsg struct {
	op  string
	err error
}

type articleRenderedMsg struct {
	url     string
	content string
}

type errorMsg struct {
	err error
}

type statusMsg struct {
	text string
	kind StatusKind
}
