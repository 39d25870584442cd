package cache_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/agent-management/internal/cache"
)

var _ = Describe("MemoryCache", func() {
	var (
		c   cache.Cache
		ctx context.Context
	)

	BeforeEach(func() {
		c = cache.NewMemory()
		ctx = context.Background()
	})

	Describe("Get and Set", func() {
		It("returns a stored value before expiry", func() {
			Expect(c.Set(ctx, "k", "v", time.Minute)).To(Succeed())

			val, found, err := c.Get(ctx, "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(val).To(Equal("v"))
		})

		It("misses on unknown keys", func() {
			_, found, err := c.Get(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("expires values after their ttl", func() {
			Expect(c.Set(ctx, "k", "v", time.Millisecond)).To(Succeed())

			Eventually(func() bool {
				_, found, _ := c.Get(ctx, "k")
				return found
			}).Should(BeFalse())
		})
	})

	Describe("Delete", func() {
		It("removes the key", func() {
			Expect(c.Set(ctx, "k", "v", time.Minute)).To(Succeed())
			Expect(c.Delete(ctx, "k")).To(Succeed())

			_, found, _ := c.Get(ctx, "k")
			Expect(found).To(BeFalse())
		})
	})

	Describe("Increment", func() {
		It("counts up within the window", func() {
			n, err := c.Increment(ctx, "counter", time.Minute)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			n, err = c.Increment(ctx, "counter", time.Minute)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
		})

		It("restarts the count after the window expires", func() {
			_, err := c.Increment(ctx, "counter", time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			time.Sleep(5 * time.Millisecond)

			n, err := c.Increment(ctx, "counter", time.Minute)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})
	})
})
