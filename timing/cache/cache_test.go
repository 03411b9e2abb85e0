package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m64sim/timing/cache"
)

var _ = Describe("Cache", func() {
	var c *cache.Cache

	BeforeEach(func() {
		// Small cache for testing: 256B, 2-way, 16B lines -> 8 sets
		c = cache.New(cache.Config{
			Size:          256,
			Associativity: 2,
			BlockSize:     16,
		})
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			result := c.Read(0x1000)
			Expect(result.Hit).To(BeFalse())

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.ReadMisses).To(Equal(uint64(1)))
			Expect(stats.Hits()).To(BeZero())
		})

		It("should hit on a cached line", func() {
			c.Read(0x1000)

			result := c.Read(0x1000)
			Expect(result.Hit).To(BeTrue())
			Expect(c.Stats().Hits()).To(Equal(uint64(1)))
		})

		It("should hit on different addresses in same cache line", func() {
			c.Read(0x1000)

			Expect(c.Read(0x100C).Hit).To(BeTrue())
			Expect(c.Read(0x1010).Hit).To(BeFalse())
		})
	})

	Describe("Write operations", func() {
		It("should allocate on a write miss", func() {
			Expect(c.Write(0x20).Hit).To(BeFalse())
			Expect(c.Read(0x20).Hit).To(BeTrue())

			stats := c.Stats()
			Expect(stats.Writes).To(Equal(uint64(1)))
			Expect(stats.WriteMisses).To(Equal(uint64(1)))
		})
	})

	Describe("Replacement", func() {
		It("should evict the least recently used way", func() {
			// 8 sets of 16B: addresses 128 bytes apart share a set.
			c.Write(0x000)
			c.Read(0x080)
			c.Read(0x000)

			result := c.Read(0x100)
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint64(0x080)))
			Expect(result.Writeback).To(BeFalse())

			result = c.Read(0x180)
			Expect(result.EvictedAddr).To(Equal(uint64(0x000)))
			Expect(result.Writeback).To(BeTrue())
			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Invalidate, Flush and Reset", func() {
		It("should miss after invalidation", func() {
			c.Read(0x40)
			c.Invalidate(0x40)
			Expect(c.Read(0x40).Hit).To(BeFalse())
		})

		It("should count dirty lines on flush", func() {
			c.Write(0x40)
			c.Read(0x50)
			c.Flush()

			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
			Expect(c.Read(0x40).Hit).To(BeFalse())
		})

		It("should clear statistics on reset", func() {
			c.Read(0x40)
			c.Reset()

			Expect(c.Stats()).To(Equal(cache.Statistics{}))
			Expect(c.Read(0x40).Hit).To(BeFalse())
		})
	})

	Describe("Config validation", func() {
		It("should accept the defaults", func() {
			Expect(cache.DefaultL1IConfig().Validate()).To(Succeed())
			Expect(cache.DefaultL1DConfig().Validate()).To(Succeed())
		})

		It("should reject a block size that is not a power of two", func() {
			Expect(cache.Config{Size: 240, BlockSize: 12, Associativity: 2}.Validate()).
				NotTo(Succeed())
		})

		It("should reject a size that is not whole sets", func() {
			Expect(cache.Config{Size: 100, BlockSize: 16, Associativity: 2}.Validate()).
				NotTo(Succeed())
		})
	})
})
