package summary

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nhle/career-planner/internal/model"
)

type cacheEntry struct {
	at      time.Time
	summary model.ProgressSummary
}

// userSlot is a user's generation, cached entry and the number of
// Summary calls currently computing for it. A slot with neither an entry
// nor a caller in flight is removed, so idle users cost nothing.
type userSlot struct {
	gen     uint64
	flights int
	entry   *cacheEntry
}

// Cache memoizes summaries per user. Each user has a generation counter
// that Invalidate bumps; an entry is served only while its generation is
// current and it is younger than the TTL. Concurrent misses for the same
// user and generation share one computation.
//
// Overdue counts are evaluated at computation time, so the TTL bounds
// how stale they can get.
type Cache struct {
	next Summarizer
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	users map[string]*userSlot
	group singleflight.Group
}

var _ Summarizer = (*Cache)(nil)

// NewCache wraps next with a cache of the given TTL.
func NewCache(next Summarizer, ttl time.Duration) *Cache {
	return &Cache{
		next:  next,
		ttl:   ttl,
		now:   time.Now,
		users: make(map[string]*userSlot),
	}
}

// Summary returns the cached summary for userID or computes a fresh one.
func (c *Cache) Summary(ctx context.Context, userID string) (model.ProgressSummary, error) {
	c.mu.Lock()
	u := c.users[userID]
	if u == nil {
		u = &userSlot{}
		c.users[userID] = u
	}
	if u.entry != nil {
		if c.now().Sub(u.entry.at) < c.ttl {
			s := u.entry.summary
			c.mu.Unlock()
			return s, nil
		}
		u.entry = nil
	}
	u.flights++
	gen := u.gen
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		u.flights--
		c.evict(userID, u)
		c.mu.Unlock()
	}()

	key := userID + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		s, err := c.next.Summary(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if u.gen == gen {
			u.entry = &cacheEntry{at: c.now(), summary: s}
		}
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return model.ProgressSummary{}, err
	}
	return v.(model.ProgressSummary), nil
}

// Invalidate drops the user's entry and retires any computation in flight.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.users[userID]
	if u == nil {
		return
	}
	u.gen++
	u.entry = nil
	c.evict(userID, u)
}

// evict removes u once nothing refers to its generation. The caller holds
// c.mu.
func (c *Cache) evict(userID string, u *userSlot) {
	if u.flights == 0 && u.entry == nil {
		delete(c.users, userID)
	}
}
