package mediagroup

import (
	"fmt"
	"sync"
	"time"
)

// File is one photo or document of a Telegram album.
type File struct {
	FileID   string
	Name     string
	MimeType string
}

type Item struct {
	ChatID  int64
	AlbumID string
	File    File
}

// Album is everything that arrived under one media group ID, in arrival order.
type Album struct {
	ChatID int64
	Files  []File
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Album)
}

// Aggregator collects album items that Telegram delivers as separate
// updates and flushes each album once no item arrived for Debounce.
type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Album)
	pending  map[string]*pendingAlbum
	closed   bool
}

type pendingAlbum struct {
	album Album
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		pending:  make(map[string]*pendingAlbum),
	}
}

func (a *Aggregator) Add(item Item) {
	if item.AlbumID == "" || item.File.FileID == "" {
		return
	}

	key := makeKey(item.ChatID, item.AlbumID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	pa, ok := a.pending[key]
	if !ok {
		pa = &pendingAlbum{album: Album{ChatID: item.ChatID}}
		a.pending[key] = pa
	}
	pa.album.Files = append(pa.album.Files, item.File)

	if pa.timer != nil {
		pa.timer.Stop()
	}
	pa.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

// Pending reports how many albums are still collecting items.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Close drops unflushed albums and ignores later items.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	for key, pa := range a.pending {
		if pa.timer != nil {
			pa.timer.Stop()
		}
		delete(a.pending, key)
	}
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pa, ok := a.pending[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	album := pa.album
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(album)
	}
}

func makeKey(chatID int64, albumID string) string {
	return fmt.Sprintf("%d:%s", chatID, albumID)
}
