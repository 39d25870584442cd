package agent

import (
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("pagination", func() {
	parse := func(target string) (int, int) {
		return pagination(httptest.NewRequest("GET", target, nil))
	}

	ginkgo.It("defaults offset and limit when absent", func() {
		offset, limit := parse("/agents")
		gomega.Expect(offset).To(gomega.Equal(0))
		gomega.Expect(limit).To(gomega.Equal(20))
	})

	ginkgo.It("passes through values inside the bounds", func() {
		offset, limit := parse("/agents?offset=40&limit=50")
		gomega.Expect(offset).To(gomega.Equal(40))
		gomega.Expect(limit).To(gomega.Equal(50))
	})

	ginkgo.It("clamps an oversized limit to the cap", func() {
		_, limit := parse("/agents?limit=500")
		gomega.Expect(limit).To(gomega.Equal(100))
	})

	ginkgo.It("falls back to the default for zero and negative limits", func() {
		_, limit := parse("/agents?limit=0")
		gomega.Expect(limit).To(gomega.Equal(20))

		_, limit = parse("/agents?limit=-5")
		gomega.Expect(limit).To(gomega.Equal(20))
	})

	ginkgo.It("floors a negative offset at zero", func() {
		offset, _ := parse("/agents?offset=-3&limit=10")
		gomega.Expect(offset).To(gomega.Equal(0))
	})
})
