// Package cache provides the L1 cache-traffic model of the MIPS64 machine,
// built on Akita cache directories.
//
// The caches only track tags: they count hits and misses and never hold
// data, since the pipeline's timing does not depend on them.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache geometry.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"blockSize"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
}

// DefaultL1IConfig returns default configuration for the L1 instruction
// cache: 4KB, 2-way, 16B lines.
func DefaultL1IConfig() Config {
	return Config{
		Size:          4 * 1024,
		BlockSize:     16,
		Associativity: 2,
	}
}

// DefaultL1DConfig returns default configuration for the L1 data cache:
// 4KB, 2-way, 16B lines.
func DefaultL1DConfig() Config {
	return Config{
		Size:          4 * 1024,
		BlockSize:     16,
		Associativity: 2,
	}
}

// Validate checks that the geometry describes at least one whole set.
func (c Config) Validate() error {
	if c.Size <= 0 || c.BlockSize <= 0 || c.Associativity <= 0 {
		return fmt.Errorf("cache size, block size and associativity must be > 0")
	}
	if c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block size %d is not a power of two", c.BlockSize)
	}
	if c.Size%(c.BlockSize*c.Associativity) != 0 {
		return fmt.Errorf("size %d is not a multiple of block size x associativity (%d)",
			c.Size, c.BlockSize*c.Associativity)
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
	// Writeback is true if the evicted block was dirty.
	Writeback bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads       uint64
	Writes      uint64
	ReadMisses  uint64
	WriteMisses uint64
	Evictions   uint64
	Writebacks  uint64
}

// Hits returns the number of accesses that hit.
func (s Statistics) Hits() uint64 {
	return s.Reads + s.Writes - s.ReadMisses - s.WriteMisses
}

// Cache is a write-back, write-allocate L1 cache using an Akita directory
// with LRU replacement.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a new cache with the given configuration. The configuration
// must be valid.
func New(config Config) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)
}

// Read performs a cache read operation.
func (c *Cache) Read(addr uint64) AccessResult {
	c.stats.Reads++

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.directory.Visit(block)
		return AccessResult{Hit: true}
	}

	c.stats.ReadMisses++
	return c.allocate(blockAddr, false)
}

// Write performs a cache write operation. On a miss the block is allocated
// first.
func (c *Cache) Write(addr uint64) AccessResult {
	c.stats.Writes++

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		block.IsDirty = true
		c.directory.Visit(block)
		return AccessResult{Hit: true}
	}

	c.stats.WriteMisses++
	return c.allocate(blockAddr, true)
}

// allocate places blockAddr in its set, evicting the LRU block.
func (c *Cache) allocate(blockAddr uint64, dirty bool) AccessResult {
	result := AccessResult{}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag

		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = dirty
	c.directory.Visit(victim)

	return result
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates every line.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback and clears the
// statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
