package search

import (
	"sync"

	"github.com/pders01/headlines/internal/debuglog"
	"github.com/pders01/headlines/internal/feed"
)

// ArticleSaver persists displayed articles. *storage.Store implements it.
type ArticleSaver interface {
	SaveArticles([]feed.Article) error
}

// Recorder is a feed.Listener that saves and indexes every article the
// controller displays. Writes happen on a background goroutine so the
// controller never waits on disk.
type Recorder struct {
	saver ArticleSaver
	index *Index
	log   *debuglog.FieldLogger

	mu     sync.Mutex
	seen   map[string]struct{}
	queue  chan []feed.Article
	done   chan struct{}
	closed bool
}

// NewRecorder starts the writer. Either saver or index may be nil.
func NewRecorder(saver ArticleSaver, index *Index) *Recorder {
	r := &Recorder{
		saver: saver,
		index: index,
		log:   debuglog.WithFields(map[string]interface{}{"component": "recorder"}),
		seen:  make(map[string]struct{}),
		queue: make(chan []feed.Article, 64),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) OnStateChange(s feed.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	var fresh []feed.Article
	for _, a := range s.Items {
		if _, ok := r.seen[a.URL]; ok {
			continue
		}
		r.seen[a.URL] = struct{}{}
		fresh = append(fresh, a)
	}
	if len(fresh) == 0 {
		return
	}

	select {
	case r.queue <- fresh:
	default:
		// Writer is behind; forget these so a later state retries them.
		for _, a := range fresh {
			delete(r.seen, a.URL)
		}
		r.log.Warnf("recorder queue full, deferring %d articles", len(fresh))
	}
}

func (r *Recorder) OnError(error) {}

func (r *Recorder) OnShakeRefreshed() {}

func (r *Recorder) run() {
	defer close(r.done)
	for batch := range r.queue {
		if r.saver != nil {
			if err := r.saver.SaveArticles(batch); err != nil {
				r.log.Errorf("saving %d articles: %v", len(batch), err)
			}
		}
		if r.index != nil {
			if err := r.index.Add(batch); err != nil {
				r.log.Errorf("indexing %d articles: %v", len(batch), err)
			}
		}
	}
}

// Close drains pending writes and stops the writer. It does not close the
// saver or the index.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return nil
}
