package feed

import "fmt"

type ModeKind int

const (
	ModeHeadlines ModeKind = iota
	ModeSearch
)

// Mode is what the list currently shows: the top headlines, or the results
// of one search query.
type Mode struct {
	Kind  ModeKind
	Query string
}

func HeadlinesMode() Mode { return Mode{Kind: ModeHeadlines} }

func SearchMode(query string) Mode { return Mode{Kind: ModeSearch, Query: query} }

func (m Mode) IsHeadlines() bool { return m.Kind == ModeHeadlines }

func (m Mode) IsSearch() bool { return m.Kind == ModeSearch }

func (m Mode) Equal(other Mode) bool { return m == other }

func (m Mode) String() string {
	if m.Kind == ModeSearch {
		return fmt.Sprintf("search(%q)", m.Query)
	}
	return "headlines"
}

// LoadKind names the fetch currently in flight. Holding it in one field
// keeps the three loading flags mutually exclusive.
type LoadKind int

const (
	LoadNone LoadKind = iota
	LoadInitial
	LoadMore
	LoadRefresh
)

func (k LoadKind) String() string {
	switch k {
	case LoadInitial:
		return "initial"
	case LoadMore:
		return "more"
	case LoadRefresh:
		return "refresh"
	default:
		return "idle"
	}
}

// State is a snapshot of the feed. Page never exceeds TotalPages and Items
// never holds two articles with the same URL.
//
// Version increases with every mutation. Listeners may receive snapshots
// from concurrent operations out of order; a snapshot with a lower Version
// than one already seen is outdated.
type State struct {
	Items      []Article
	Mode       Mode
	Page       int
	TotalPages int
	Loading    LoadKind
	Version    uint64
}

// NewerThan reports whether s was taken after other.
func (s State) NewerThan(other State) bool { return s.Version > other.Version }

func initialState() State {
	return State{
		Mode:       HeadlinesMode(),
		Page:       0,
		TotalPages: 1,
		Loading:    LoadNone,
	}
}

func (s State) IsInitialLoading() bool { return s.Loading == LoadInitial }

func (s State) IsLoadingMore() bool { return s.Loading == LoadMore }

func (s State) IsRefreshing() bool { return s.Loading == LoadRefresh }

func (s State) IsLoading() bool { return s.Loading != LoadNone }

// HasMore reports whether scrolling may fetch another page.
func (s State) HasMore() bool {
	return s.Mode.IsHeadlines() && s.Page < s.TotalPages
}

func (s State) clone() State {
	c := s
	c.Items = append([]Article(nil), s.Items...)
	return c
}
