// Package bufferpool implements a fixed-capacity page cache with pinning
// and least-recently-used eviction over a page.DiskManager.
package bufferpool

import (
	"container/list"
	"sync"

	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/page"
)

type frame struct {
	page     *page.Page
	pinCount int
	dirty    bool
	// elem is this frame's node in the LRU list when pinCount == 0, or
	// nil while the frame is pinned (pinned frames are never eviction
	// candidates).
	elem *list.Element
}

// BufferPool caches up to capacity pages in memory, evicting the least
// recently used unpinned page to make room for a fetch.
type BufferPool struct {
	disk     *page.DiskManager
	capacity int

	mu     sync.Mutex
	frames map[page.ID]*frame
	lru    *list.List // front = most recently used, back = eviction candidate

	cacheHits   uint64
	cacheMisses uint64
	evictions   uint64
}

// New creates a pool backed by disk with room for capacity pages.
func New(disk *page.DiskManager, capacity int) *BufferPool {
	return &BufferPool{
		disk:     disk,
		capacity: capacity,
		frames:   make(map[page.ID]*frame),
		lru:      list.New(),
	}
}

// PageHandle is a pinned reference to a cached page. Callers MUST call
// Unpin (typically via defer) once done with the page's contents.
type PageHandle struct {
	pool *BufferPool
	id   page.ID
	fr   *frame
}

// ID returns the handle's page ID.
func (h *PageHandle) ID() page.ID { return h.id }

// Data returns the page's raw byte slice for reading or in-place
// mutation. Callers that mutate the data must call MarkDirty.
func (h *PageHandle) Data() []byte {
	return h.fr.page.Data[:]
}

// MarkDirty flags the page as needing to be written back on flush.
func (h *PageHandle) MarkDirty() {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	h.fr.dirty = true
}

// Unpin releases the pin taken by FetchPage/NewPage. It is safe to call
// at most once per handle.
func (h *PageHandle) Unpin() {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	h.fr.pinCount--
	if h.fr.pinCount <= 0 {
		h.fr.pinCount = 0
		h.fr.elem = h.pool.lru.PushFront(h.id)
	}
}

func (p *BufferPool) lockedFetch(id page.ID, allowLoad bool) (*frame, error) {
	if fr, ok := p.frames[id]; ok {
		p.cacheHits++
		metrics.BufferPoolHits.Inc()
		if fr.elem != nil {
			p.lru.Remove(fr.elem)
			fr.elem = nil
		}
		fr.pinCount++
		return fr, nil
	}

	p.cacheMisses++
	metrics.BufferPoolMisses.Inc()
	if !allowLoad {
		return nil, engineerr.New(engineerr.KindPage, "page %s not resident", id)
	}

	if len(p.frames) >= p.capacity {
		if err := p.evictLocked(); err != nil {
			return nil, err
		}
	}

	pg, err := p.disk.ReadPage(id)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPage, err, "reading page %s", id)
	}
	fr := &frame{page: pg, pinCount: 1}
	p.frames[id] = fr
	return fr, nil
}

// FetchPage pins and returns the page identified by id, loading it from
// disk on a cache miss.
func (p *BufferPool) FetchPage(id page.ID) (*PageHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fr, err := p.lockedFetch(id, true)
	if err != nil {
		return nil, err
	}
	return &PageHandle{pool: p, id: id, fr: fr}, nil
}

// NewPage allocates a fresh page on disk and returns it pinned and
// already resident in the pool.
func (p *BufferPool) NewPage() (*PageHandle, error) {
	id, err := p.disk.AllocatePage()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindPage, err, "allocating page")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frames) >= p.capacity {
		if err := p.evictLocked(); err != nil {
			return nil, err
		}
	}
	fr := &frame{page: page.New(id), pinCount: 1, dirty: true}
	p.frames[id] = fr
	return &PageHandle{pool: p, id: id, fr: fr}, nil
}

// evictLocked evicts the least-recently-used unpinned page. Caller must
// hold p.mu. Returns engineerr.KindBufferPool if every frame is
// pinned.
func (p *BufferPool) evictLocked() error {
	elem := p.lru.Back()
	if elem == nil {
		return engineerr.New(engineerr.KindBufferPool, "buffer pool exhausted: all %d frames pinned", p.capacity)
	}
	id := elem.Value.(page.ID)
	fr := p.frames[id]
	if fr.dirty {
		if err := p.disk.WritePage(fr.page); err != nil {
			return engineerr.Wrap(engineerr.KindBufferPool, err, "flushing page %s during eviction", id)
		}
	}
	p.lru.Remove(elem)
	delete(p.frames, id)
	p.evictions++
	metrics.BufferPoolEvictions.Inc()
	return nil
}

// FlushPage writes a single dirty page back to disk, if present.
func (p *BufferPool) FlushPage(id page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fr, ok := p.frames[id]
	if !ok || !fr.dirty {
		return nil
	}
	if err := p.disk.WritePage(fr.page); err != nil {
		return engineerr.Wrap(engineerr.KindBufferPool, err, "flushing page %s", id)
	}
	fr.dirty = false
	return nil
}

// FlushAll writes every dirty page back to disk and syncs the file.
func (p *BufferPool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, fr := range p.frames {
		if !fr.dirty {
			continue
		}
		if err := p.disk.WritePage(fr.page); err != nil {
			return engineerr.Wrap(engineerr.KindBufferPool, err, "flushing page %s", id)
		}
		fr.dirty = false
	}
	return p.disk.Sync()
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Capacity     int
	PagesUsed    int
	DirtyPages   int
	PinnedPages  int
	CacheHits    uint64
	CacheMisses  uint64
	Evictions    uint64
}

// TotalAccesses returns the total number of fetch attempts observed.
func (s Stats) TotalAccesses() uint64 {
	return s.CacheHits + s.CacheMisses
}

// HitRate returns the cache hit ratio, and ok=false when no accesses
// have been recorded yet.
func (s Stats) HitRate() (float64, bool) {
	total := s.TotalAccesses()
	if total == 0 {
		return 0, false
	}
	return float64(s.CacheHits) / float64(total), true
}

// Stats returns a snapshot of the pool's current state.
func (p *BufferPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Capacity:    p.capacity,
		PagesUsed:   len(p.frames),
		CacheHits:   p.cacheHits,
		CacheMisses: p.cacheMisses,
		Evictions:   p.evictions,
	}
	for _, fr := range p.frames {
		if fr.dirty {
			s.DirtyPages++
		}
		if fr.pinCount > 0 {
			s.PinnedPages++
		}
	}
	metrics.BufferPoolDirtyFrames.Set(float64(s.DirtyPages))
	metrics.BufferPoolPinnedFrames.Set(float64(s.PinnedPages))
	return s
}
