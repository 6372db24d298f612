// Package cache models timed, set-associative, write-through caches built on
// the Akita cache directory. A miss does not complete immediately: it opens a
// query that counts down once per cycle and fills the line when it expires.
package cache

import (
	"log"

	"github.com/pkg/errors"
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/legsim/bitfield"
)

// Config holds cache configuration parameters.
type Config struct {
	// Sets is the number of sets.
	Sets int `json:"sets"`
	// Ways is the associativity.
	Ways int `json:"ways"`
	// BlockSize in bytes (cache line size).
	BlockSize int `json:"block_size"`
	// MissLatency is the number of ticks a miss waits before the fill.
	MissLatency int `json:"miss_latency"`
}

// DefaultInstructionConfig returns the instruction cache geometry:
// 64 sets, 4 ways, 32-byte blocks, 10-cycle misses.
func DefaultInstructionConfig() Config {
	return Config{Sets: 64, Ways: 4, BlockSize: 32, MissLatency: 10}
}

// DefaultDataConfig returns the data cache geometry:
// 256 sets, 8 ways, 32-byte blocks, 10-cycle misses.
func DefaultDataConfig() Config {
	return Config{Sets: 256, Ways: 8, BlockSize: 32, MissLatency: 10}
}

// Validate checks that the geometry can be built.
func (c Config) Validate() error {
	if !bitfield.IsPowerOfTwo(c.Sets) {
		return errors.Errorf("sets must be a power of two, got %d", c.Sets)
	}
	if c.Ways < 1 {
		return errors.Errorf("ways must be positive, got %d", c.Ways)
	}
	if !bitfield.IsPowerOfTwo(c.BlockSize) || c.BlockSize < 8 {
		return errors.Errorf("block_size must be a power of two >= 8, got %d", c.BlockSize)
	}
	if c.MissLatency < 1 {
		return errors.Errorf("miss_latency must be >= 1, got %d", c.MissLatency)
	}
	return nil
}

// BackingStore is the memory behind a cache. It never stalls.
type BackingStore interface {
	ReadWord(addr uint64) uint32
	WriteWord(addr uint64, value uint32)
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Remaining is the number of ticks until the block arrives; zero means
	// the access completed and Data is valid.
	Remaining int
	// Data is the value read, zero-extended. Undefined while Remaining > 0.
	Data uint64
	// Hit is true when the block was already resident and no query existed.
	Hit bool
}

// Done reports whether the access completed.
func (r AccessResult) Done() bool {
	return r.Remaining == 0
}

// Line is a snapshot of one cache line.
type Line struct {
	Valid    bool
	Tag      uint64
	LastUsed uint64
	Data     []byte
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads         uint64
	Writes        uint64
	Hits          uint64
	Misses        uint64
	Fills         uint64
	Evictions     uint64
	Cancels       uint64
	WriteThroughs uint64
}

// HitRate returns hits over resolved accesses, in percent.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

type query struct {
	blockAddr uint64
	remaining int
}

// Cache is one timed cache. Caches are created by a System, which owns the
// recency clock and ticks them.
type Cache struct {
	name   string
	config Config
	sys    *System

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * ways + wayID)
	dataStore [][]byte
	lastUsed  []uint64

	// Outstanding misses keyed by block address; order keeps creation order
	// so ticks are deterministic.
	queries map[uint64]*query
	order   []uint64

	backing BackingStore
	stats   Statistics
}

func newCache(name string, config Config, backing BackingStore, sys *System) *Cache {
	totalBlocks := config.Sets * config.Ways

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		name:   name,
		config: config,
		sys:    sys,
		directory: akitacache.NewDirectory(
			config.Sets,
			config.Ways,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		lastUsed:  make([]uint64, totalBlocks),
		queries:   make(map[uint64]*query),
		backing:   backing,
	}
}

// Name returns the cache name.
func (c *Cache) Name() string {
	return c.name
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

func (c *Cache) mustBeRegistered() {
	if c.sys == nil {
		log.Panicf("cache %q is not registered with a cache system", c.name)
	}
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr &^ uint64(c.config.BlockSize-1)
}

// blockIndex computes the index into dataStore for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Ways + block.WayID
}

func (c *Cache) lookup(addr uint64) *akitacache.Block {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block == nil || !block.IsValid {
		return nil
	}
	return block
}

// Lookup returns the resident line holding addr without touching recency.
func (c *Cache) Lookup(addr uint64) (Line, bool) {
	c.mustBeRegistered()

	block := c.lookup(addr)
	if block == nil {
		return Line{}, false
	}

	idx := c.blockIndex(block)
	data := make([]byte, c.config.BlockSize)
	copy(data, c.dataStore[idx])

	return Line{
		Valid:    true,
		Tag:      block.Tag >> bitfield.Log2(c.config.BlockSize),
		LastUsed: c.lastUsed[idx],
		Data:     data,
	}, true
}

// Read reads size bytes at addr. A miss opens a query and returns the miss
// latency; calling again for the same block reports the query's progress.
func (c *Cache) Read(addr uint64, size int) AccessResult {
	c.mustBeRegistered()
	c.stats.Reads++

	res, _ := c.access(addr, size)

	return res
}

// Write writes the low size bytes of data at addr once the block is
// resident, then copies the whole block through to the backing store.
func (c *Cache) Write(addr uint64, size int, data uint64) AccessResult {
	c.mustBeRegistered()
	c.stats.Writes++

	res, block := c.access(addr, size)
	if !res.Done() {
		return res
	}

	idx := c.blockIndex(block)
	bitfield.WriteBytes(c.dataStore[idx], addr-block.Tag, size, data)
	c.writeThrough(block)

	return res
}

func (c *Cache) access(addr uint64, size int) (AccessResult, *akitacache.Block) {
	blockAddr := c.blockAddr(addr)

	// tick fills and drops a query on the cycle it reaches zero, so a query
	// seen here is still counting down.
	if q, ok := c.queries[blockAddr]; ok {
		return AccessResult{Remaining: q.remaining}, nil
	}

	if block := c.lookup(addr); block != nil {
		c.stats.Hits++
		res := c.hit(block, addr, size)
		res.Hit = true

		return res, block
	}

	c.stats.Misses++
	q := c.addQuery(blockAddr)

	return AccessResult{Remaining: q.remaining}, nil
}

func (c *Cache) hit(block *akitacache.Block, addr uint64, size int) AccessResult {
	idx := c.blockIndex(block)
	c.touch(block)

	return AccessResult{
		Data: bitfield.ReadBytes(c.dataStore[idx], addr-block.Tag, size),
	}
}

func (c *Cache) touch(block *akitacache.Block) {
	c.directory.Visit(block)
	c.lastUsed[c.blockIndex(block)] = c.sys.nextStamp()
}

func (c *Cache) writeThrough(block *akitacache.Block) {
	data := c.dataStore[c.blockIndex(block)]
	for off := 0; off < c.config.BlockSize; off += 4 {
		word := uint32(bitfield.ReadBytes(data, uint64(off), 4))
		c.backing.WriteWord(block.Tag+uint64(off), word)
	}
	c.stats.WriteThroughs++
}

func (c *Cache) addQuery(blockAddr uint64) *query {
	if _, ok := c.queries[blockAddr]; ok {
		log.Panicf("cache %q: second outstanding query for block 0x%x", c.name, blockAddr)
	}

	q := &query{blockAddr: blockAddr, remaining: c.config.MissLatency}
	c.queries[blockAddr] = q
	c.order = append(c.order, blockAddr)

	return q
}

func (c *Cache) removeQuery(blockAddr uint64) {
	delete(c.queries, blockAddr)

	for i, a := range c.order {
		if a == blockAddr {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Cancel drops the outstanding query for the block holding addr, if any.
func (c *Cache) Cancel(addr uint64) {
	c.mustBeRegistered()

	blockAddr := c.blockAddr(addr)
	if _, ok := c.queries[blockAddr]; !ok {
		return
	}

	c.removeQuery(blockAddr)
	c.stats.Cancels++
}

// Pending reports whether any query is outstanding.
func (c *Cache) Pending() bool {
	return len(c.queries) > 0
}

// Remaining returns the countdown of the query for the block holding addr.
func (c *Cache) Remaining(addr uint64) (int, bool) {
	q, ok := c.queries[c.blockAddr(addr)]
	if !ok {
		return 0, false
	}
	return q.remaining, true
}

// tick advances every query by one cycle and fills the expired ones.
func (c *Cache) tick() {
	for _, blockAddr := range append([]uint64(nil), c.order...) {
		q := c.queries[blockAddr]

		q.remaining--
		if q.remaining < 0 {
			log.Panicf("cache %q: query for 0x%x has negative countdown", c.name, blockAddr)
		}

		if q.remaining == 0 {
			c.allocate(blockAddr)
			c.removeQuery(blockAddr)
		}
	}
}

// allocate fills blockAddr into the least recently used way of its set.
func (c *Cache) allocate(blockAddr uint64) {
	victim := c.directory.FindVictim(blockAddr)
	if victim.IsValid {
		c.stats.Evictions++
	}

	data := c.dataStore[c.blockIndex(victim)]
	for off := 0; off < c.config.BlockSize; off += 4 {
		word := c.backing.ReadWord(blockAddr + uint64(off))
		bitfield.WriteBytes(data, uint64(off), 4, uint64(word))
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.touch(victim)
	c.stats.Fills++
}

// Reset invalidates all lines and drops outstanding queries.
func (c *Cache) Reset() {
	c.directory.Reset()
	for i := range c.dataStore {
		clear(c.dataStore[i])
		c.lastUsed[i] = 0
	}
	c.queries = make(map[uint64]*query)
	c.order = nil
	c.stats = Statistics{}
}
