package readstatus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"

	"golang.org/x/sync/errgroup"
)

type Store interface {
	ReadReceipts(ctx context.Context, sessionIDs []string) ([]entity.ReadReceipt, error)
	UpsertReadReceipt(ctx context.Context, sessionID string, agentID int64, at time.Time) error
}

type Options struct {
	TTL           time.Duration
	BatchSize     int
	Concurrency   int
	PriorityCount int
	PriorityDelay time.Duration
	// DeferredTimeout bounds the background fetch of the non-priority remainder.
	DeferredTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		TTL:             30 * time.Second,
		BatchSize:       50,
		Concurrency:     3,
		PriorityCount:   20,
		PriorityDelay:   time.Second,
		DeferredTimeout: 30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TTL <= 0 {
		o.TTL = d.TTL
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.PriorityCount <= 0 {
		o.PriorityCount = d.PriorityCount
	}
	if o.PriorityDelay <= 0 {
		o.PriorityDelay = d.PriorityDelay
	}
	if o.DeferredTimeout <= 0 {
		o.DeferredTimeout = d.DeferredTimeout
	}
	return o
}

type entry struct {
	readBy    []entity.ReadStatus
	fetchedAt time.Time
}

// mark is the agent's own read as recorded locally. A fetch sent before at
// does not know about it yet.
type mark struct {
	status entity.ReadStatus
	at     time.Time
}

// Cache holds one agent's view of who read which conversation. Entries are
// served for TTL after they were fetched; the unread flag is always derived
// again from the conversation's last message time.
type Cache struct {
	store    Store
	agent    entity.Agent
	opts     Options
	now      func() time.Time
	onUpdate func(map[string]entity.ConversationReadInfo)
	log      *slog.Logger

	mu         sync.Mutex
	entries    map[string]entry
	view       map[string]entity.ConversationReadInfo
	marks      map[string]mark
	generation uint64
	deferred   *time.Timer
}

func New(store Store, agent entity.Agent, opts Options, logger *slog.Logger) *Cache {
	return &Cache{
		store:   store,
		agent:   agent,
		opts:    opts.withDefaults(),
		now:     time.Now,
		log:     logger.With(sl.Module("read status"), slog.Int64("agent", agent.ID)),
		entries: make(map[string]entry),
		view:    make(map[string]entity.ConversationReadInfo),
		marks:   make(map[string]mark),
	}
}

func (c *Cache) Agent() entity.Agent {
	return c.agent
}

// OnUpdate registers fn to receive each partial result as it is applied.
func (c *Cache) OnUpdate(fn func(map[string]entity.ConversationReadInfo)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

func (c *Cache) notify(partial map[string]entity.ConversationReadInfo) {
	if len(partial) == 0 {
		return
	}
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn(partial)
	}
}

// BatchFetch returns read info for refs. Fresh entries are served from the
// cache; the rest are fetched in chunks with bounded concurrency, each chunk
// applied and announced as soon as it completes. A chunk that fails leaves
// its conversations unread with no readers unless an older entry exists.
func (c *Cache) BatchFetch(ctx context.Context, refs []entity.ConversationRef) map[string]entity.ConversationReadInfo {
	result := make(map[string]entity.ConversationReadInfo, len(refs))
	if len(refs) == 0 {
		return result
	}

	c.mu.Lock()
	gen := c.generation
	now := c.now()
	fresh := make(map[string]entity.ConversationReadInfo)
	var missing []entity.ConversationRef
	for _, ref := range refs {
		e, ok := c.entries[ref.SessionID]
		if ok && now.Sub(e.fetchedAt) < c.opts.TTL {
			info := entity.DeriveReadInfo(ref, e.readBy, c.agent.ID)
			c.view[ref.SessionID] = info
			fresh[ref.SessionID] = info
			continue
		}
		missing = append(missing, ref)
	}
	c.mu.Unlock()

	for id, info := range fresh {
		result[id] = info
	}
	c.notify(fresh)

	if len(missing) == 0 {
		return result
	}

	var resultMu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(c.opts.Concurrency)
	for _, chunk := range chunks(missing, c.opts.BatchSize) {
		g.Go(func() error {
			ids := make([]string, len(chunk))
			for i, ref := range chunk {
				ids[i] = ref.SessionID
			}
			receipts, err := c.store.ReadReceipts(ctx, ids)
			if err != nil {
				c.log.With(sl.Err(err), slog.Int("size", len(ids))).Warn("read status chunk failed")
			}
			partial, current := c.apply(gen, now, chunk, receipts, err)

			resultMu.Lock()
			for id, info := range partial {
				result[id] = info
			}
			resultMu.Unlock()

			if current {
				c.notify(partial)
			}
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// apply stores a finished chunk. Receipts were read at or after sent, so a
// local mark newer than sent is merged over them.
func (c *Cache) apply(gen uint64, sent time.Time, chunk []entity.ConversationRef, receipts []entity.ReadReceipt, fetchErr error) (map[string]entity.ConversationReadInfo, bool) {
	byID := make(map[string][]entity.ReadStatus)
	for _, r := range receipts {
		byID[r.SessionID] = append(byID[r.SessionID], r.Status())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current := gen == c.generation
	now := c.now()
	partial := make(map[string]entity.ConversationReadInfo, len(chunk))
	for _, ref := range chunk {
		m, marked := c.marks[ref.SessionID]
		pending := current && marked && !m.at.Before(sent)

		var info entity.ConversationReadInfo
		switch {
		case fetchErr == nil:
			readBy := byID[ref.SessionID]
			if pending {
				readBy = withOwn(readBy, m.status)
			} else if current && marked {
				delete(c.marks, ref.SessionID)
			}
			info = entity.DeriveReadInfo(ref, readBy, c.agent.ID)
			if current {
				c.entries[ref.SessionID] = entry{readBy: readBy, fetchedAt: now}
			}
		default:
			var readBy []entity.ReadStatus
			if e, ok := c.entries[ref.SessionID]; ok && current {
				readBy = e.readBy
			}
			if pending {
				readBy = withOwn(readBy, m.status)
			}
			if readBy != nil {
				info = entity.DeriveReadInfo(ref, readBy, c.agent.ID)
			} else {
				info = entity.UnreadDefault(ref.SessionID)
			}
		}
		if current {
			c.view[ref.SessionID] = info
		}
		partial[ref.SessionID] = info
	}
	return partial, current
}

func withOwn(readBy []entity.ReadStatus, own entity.ReadStatus) []entity.ReadStatus {
	out := make([]entity.ReadStatus, 0, len(readBy)+1)
	for _, r := range readBy {
		if r.AgentID != own.AgentID {
			out = append(out, r)
		}
	}
	return append(out, own)
}

func chunks(refs []entity.ConversationRef, size int) [][]entity.ConversationRef {
	var out [][]entity.ConversationRef
	for start := 0; start < len(refs); start += size {
		end := start + size
		if end > len(refs) {
			end = len(refs)
		}
		out = append(out, refs[start:end])
	}
	return out
}

// MarkAsRead records that the agent read the conversation now. The local
// projection is updated whether or not the backend accepted the receipt and
// the cache entry is dropped so the next fetch reconciles with other agents.
func (c *Cache) MarkAsRead(ctx context.Context, sessionID string) (entity.ConversationReadInfo, error) {
	now := c.now()
	err := c.store.UpsertReadReceipt(ctx, sessionID, c.agent.ID, now)
	if err != nil {
		c.log.With(sl.Err(err), slog.String("session", sessionID)).Warn("read receipt not stored, keeping local state")
	}

	status := entity.ReadStatus{
		AgentID:            c.agent.ID,
		AgentName:          c.agent.Name,
		LastReadAt:         now,
		ReadCount:          1,
		IsCurrentlyViewing: true,
	}

	c.mu.Lock()
	existing, ok := c.view[sessionID]
	if !ok {
		existing = entity.UnreadDefault(sessionID)
	}
	info := existing.WithReader(status)
	c.view[sessionID] = info
	c.marks[sessionID] = mark{status: status, at: c.now()}
	delete(c.entries, sessionID)
	c.mu.Unlock()

	c.notify(map[string]entity.ConversationReadInfo{sessionID: info})
	return info, err
}

func (c *Cache) Invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

// Clear drops everything and cancels a pending deferred load. Fetches still
// in flight finish but are no longer applied.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries = make(map[string]entry)
	c.view = make(map[string]entity.ConversationReadInfo)
	c.marks = make(map[string]mark)
	if c.deferred != nil {
		c.deferred.Stop()
		c.deferred = nil
	}
}

func (c *Cache) Get(sessionID string) (entity.ConversationReadInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.view[sessionID]
	return info, ok
}

func (c *Cache) Snapshot() map[string]entity.ConversationReadInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make(map[string]entity.ConversationReadInfo, len(c.view))
	for id, info := range c.view {
		snapshot[id] = info
	}
	return snapshot
}

// LoadPrioritized fetches the first PriorityCount refs now and the rest after
// PriorityDelay, so the visible part of a list is not held up by the tail.
func (c *Cache) LoadPrioritized(ctx context.Context, refs []entity.ConversationRef) map[string]entity.ConversationReadInfo {
	n := c.opts.PriorityCount
	if n > len(refs) {
		n = len(refs)
	}
	result := c.BatchFetch(ctx, refs[:n])

	rest := append([]entity.ConversationRef(nil), refs[n:]...)
	if len(rest) == 0 {
		return result
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deferred != nil {
		c.deferred.Stop()
	}
	gen := c.generation
	base := context.WithoutCancel(ctx)
	c.deferred = time.AfterFunc(c.opts.PriorityDelay, func() {
		c.mu.Lock()
		stale := gen != c.generation
		c.mu.Unlock()
		if stale {
			return
		}
		deferredCtx, cancel := context.WithTimeout(base, c.opts.DeferredTimeout)
		defer cancel()
		c.BatchFetch(deferredCtx, rest)
	})
	return result
}
