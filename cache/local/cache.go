package local

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zyedidia/generic/mapset"
)

// ErrNotFound is returned when a key or member does not exist.
var ErrNotFound = errors.New("cache: key not found")

const defaultGCInterval = 30 * time.Second

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

type value struct {
	data     string
	expireAt time.Time // zero means no expiry
}

func (v value) expired(now time.Time) bool {
	return !v.expireAt.IsZero() && now.After(v.expireAt)
}

type scored struct {
	member string
	score  float64
}

// LocalCache is the in-process Cache used when no Redis address is set.
// Every key space lives behind one mutex; the payloads are small and the
// hot paths (level reads, one push per tick) are short.
type LocalCache struct {
	mu    sync.Mutex
	kv    map[string]value
	sets  map[string]mapset.Set[string]
	zsets map[string][]scored // ascending by score, then member
	lists map[string][]string // head first

	stop      chan struct{}
	closeOnce sync.Once
}

// NewCache creates a LocalCache and starts sweeping expired keys.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = defaultGCInterval
	}
	c := &LocalCache{
		kv:    make(map[string]value),
		sets:  make(map[string]mapset.Set[string]),
		zsets: make(map[string][]scored),
		lists: make(map[string][]string),
		stop:  make(chan struct{}),
	}
	go c.sweep(interval)
	return c, nil
}

// Close stops the sweeper. It is safe to call more than once.
func (c *LocalCache) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *LocalCache) sweep(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			c.mu.Lock()
			for k, v := range c.kv {
				if v.expired(now) {
					delete(c.kv, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// live returns the value at key, dropping it if it has expired.
// Callers hold c.mu.
func (c *LocalCache) live(key string) (value, bool) {
	v, ok := c.kv[key]
	if !ok {
		return value{}, false
	}
	if v.expired(time.Now()) {
		delete(c.kv, key)
		return value{}, false
	}
	return v, true
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.live(key)
	if !ok {
		return "", ErrNotFound
	}
	return v.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, data string, ttl time.Duration) error {
	v := value{data: data}
	if ttl > 0 {
		v.expireAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.kv[key] = v
	c.mu.Unlock()
	return nil
}

// Del removes keys from every key space.
func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.kv, k)
		delete(c.sets, k)
		delete(c.zsets, k)
		delete(c.lists, k)
	}
	return nil
}

// Exists only looks at plain values.
func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live(key)
	return ok, nil
}

func (c *LocalCache) SAdd(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sets[key]
	if !ok {
		s = mapset.New[string]()
		c.sets[key] = s
	}
	for _, m := range members {
		s.Put(m)
	}
	return nil
}

func (c *LocalCache) SRem(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		s.Remove(m)
	}
	if s.Size() == 0 {
		delete(c.sets, key)
	}
	return nil
}

func (c *LocalCache) SMembers(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sets[key]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, s.Size())
	s.Each(func(m string) { out = append(out, m) })
	return out, nil
}

func (c *LocalCache) ZAdd(_ context.Context, key string, score float64, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := slices.DeleteFunc(c.zsets[key], func(e scored) bool { return e.member == member })
	e := scored{member: member, score: score}
	i, _ := slices.BinarySearchFunc(z, e, compareScored)
	c.zsets[key] = slices.Insert(z, i, e)
	return nil
}

func compareScored(a, b scored) int {
	switch {
	case a.score < b.score:
		return -1
	case a.score > b.score:
		return 1
	}
	return strings.Compare(a.member, b.member)
}

func (c *LocalCache) ZRangeWithScores(_ context.Context, key string, start, stop int64) ([]string, []float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := c.zsets[key]
	lo, hi, ok := bounds(len(z), start, stop)
	if !ok {
		return nil, nil, nil
	}
	members := make([]string, 0, hi-lo)
	scores := make([]float64, 0, hi-lo)
	for _, e := range z[lo:hi] {
		members = append(members, e.member)
		scores = append(scores, e.score)
	}
	return members, scores, nil
}

func (c *LocalCache) LPushCapped(_ context.Context, key string, limit int64, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.lists[key]
	l := make([]string, 0, len(values)+len(old))
	for i := len(values) - 1; i >= 0; i-- {
		l = append(l, values[i])
	}
	l = append(l, old...)
	if limit > 0 && int64(len(l)) > limit {
		l = l[:limit]
	}
	c.lists[key] = l
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.lists[key]
	lo, hi, ok := bounds(len(l), start, stop)
	if !ok {
		return nil, nil
	}
	return slices.Clone(l[lo:hi]), nil
}

// bounds converts an inclusive Redis-style [start, stop] range, where a
// negative index counts from the end, into a slice range.
func bounds(n int, start, stop int64) (lo, hi int, ok bool) {
	size := int64(n)
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop >= size {
		stop = size - 1
	}
	if start > stop || start >= size {
		return 0, 0, false
	}
	return int(start), int(stop) + 1, true
}
