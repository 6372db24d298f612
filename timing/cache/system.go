package cache

// System owns a group of caches that share one recency clock and advance
// together, once per cycle.
type System struct {
	caches []*Cache
	clock  uint64
}

// NewSystem creates an empty cache system.
func NewSystem() *System {
	return &System{}
}

// NewCache creates a cache and registers it. Caches tick in the order they
// were registered.
func (s *System) NewCache(name string, config Config, backing BackingStore) *Cache {
	c := newCache(name, config, backing, s)
	s.caches = append(s.caches, c)

	return c
}

// Caches returns the registered caches in tick order.
func (s *System) Caches() []*Cache {
	return s.caches
}

// Tick advances the miss queries of every registered cache by one cycle.
func (s *System) Tick() {
	for _, c := range s.caches {
		c.tick()
	}
}

// Clock returns the last recency stamp handed out.
func (s *System) Clock() uint64 {
	return s.clock
}

func (s *System) nextStamp() uint64 {
	s.clock++
	return s.clock
}

// Reset resets every cache and the clock.
func (s *System) Reset() {
	s.clock = 0
	for _, c := range s.caches {
		c.Reset()
	}
}
