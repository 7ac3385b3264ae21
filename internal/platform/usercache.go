package platform

import (
	"sync"
	"time"
)

// userCache is a bounded LRU of username lookups. User lookups draw from the
// same rate-limited surface as search, so repeated author checks within a TTL
// are served from memory. A hash map gives O(1) lookup; the doubly linked
// list gives O(1) eviction ordering.
type userCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*userNode
	head     *userNode // most recently used (sentinel)
	tail     *userNode // least recently used (sentinel)
	now      func() time.Time
}

type userNode struct {
	username string
	user     User
	fetched  time.Time
	prev     *userNode
	next     *userNode
}

func newUserCache(capacity int, ttl time.Duration) *userCache {
	head := &userNode{}
	tail := &userNode{}
	head.next = tail
	tail.prev = head

	return &userCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*userNode, capacity),
		head:     head,
		tail:     tail,
		now:      time.Now,
	}
}

// get returns the cached user if present and younger than the TTL. Expired
// entries are removed on access.
func (c *userCache) get(username string) (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[username]
	if !ok {
		return User{}, false
	}
	if c.now().Sub(n.fetched) > c.ttl {
		c.remove(n)
		delete(c.items, username)
		return User{}, false
	}

	c.moveToFront(n)
	return n.user, true
}

// put stores a lookup result, evicting the least recently used entry at
// capacity.
func (c *userCache) put(username string, u User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[username]; ok {
		n.user = u
		n.fetched = c.now()
		c.moveToFront(n)
		return
	}

	if len(c.items) >= c.capacity {
		victim := c.tail.prev
		c.remove(victim)
		delete(c.items, victim.username)
	}

	n := &userNode{username: username, user: u, fetched: c.now()}
	c.items[username] = n
	c.pushFront(n)
}

func (c *userCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// --- linked list operations (caller must hold lock) ---

func (c *userCache) remove(n *userNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

func (c *userCache) pushFront(n *userNode) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}

func (c *userCache) moveToFront(n *userNode) {
	c.remove(n)
	c.pushFront(n)
}
