package user

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/agent-management/pkg/logger"
)

var _ = ginkgo.Describe("UserHandler List", func() {
	var handler *Handler

	ginkgo.BeforeEach(func() {
		repo := newMockUserRepository()
		service := NewService(repo, bcrypt.MinCost, logger.L())
		handler = NewHandler(service, logger.L())

		for _, name := range []string{"alice", "bob", "carol"} {
			_, err := service.Create(CreateUserDTO{
				Username: name,
				Email:    name + "@example.com",
				Password: "correct-horse",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		}
	})

	list := func(target string) ListUsersResponse {
		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest("GET", target, nil))
		gomega.Expect(rec.Code).To(gomega.Equal(200))

		var resp ListUsersResponse
		gomega.Expect(json.NewDecoder(rec.Body).Decode(&resp)).To(gomega.Succeed())
		return resp
	}

	ginkgo.It("applies the default limit", func() {
		resp := list("/users")
		gomega.Expect(resp.Limit).To(gomega.Equal(20))
		gomega.Expect(resp.Total).To(gomega.Equal(int64(3)))
	})

	ginkgo.It("clamps an oversized limit to the cap", func() {
		resp := list("/users?limit=500")
		gomega.Expect(resp.Limit).To(gomega.Equal(100))
		gomega.Expect(resp.Users).To(gomega.HaveLen(3))
	})

	ginkgo.It("honors offset and limit inside the bounds", func() {
		resp := list("/users?offset=1&limit=1")
		gomega.Expect(resp.Limit).To(gomega.Equal(1))
		gomega.Expect(resp.Offset).To(gomega.Equal(1))
		gomega.Expect(resp.Users).To(gomega.HaveLen(1))
		gomega.Expect(resp.Users[0].Username).To(gomega.Equal("bob"))
	})
})
