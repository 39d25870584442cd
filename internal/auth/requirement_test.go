package auth

import (
	"net/http"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/agent-management/internal"
	"github.com/frahmantamala/agent-management/pkg/logger"
)

var _ = ginkgo.Describe("Guard", func() {
	var (
		guard   *Guard
		next    http.Handler
		reached bool
	)

	ginkgo.BeforeEach(func() {
		guard = NewGuard(logger.L())
		reached = false
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		})
	})

	serve := func(req Requirement, principal *internal.AuthenticatedUser) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if principal != nil {
			r = r.WithContext(internal.ContextWithUser(r.Context(), principal))
		}
		w := httptest.NewRecorder()
		guard.Require(req)(next).ServeHTTP(w, r)
		return w
	}

	agentPrincipal := func() *internal.AuthenticatedUser {
		return &internal.AuthenticatedUser{
			ID:          "u1",
			Username:    "alice",
			Roles:       []string{"agent"},
			Permissions: []string{"agents.read", "users.read"},
		}
	}

	ginkgo.It("forbids requests without a principal", func() {
		w := serve(Requirement{Roles: []string{"admin"}}, nil)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(reached).To(gomega.BeFalse())
	})

	ginkgo.It("passes an empty requirement", func() {
		w := serve(Requirement{}, agentPrincipal())
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(reached).To(gomega.BeTrue())
	})

	ginkgo.Describe("role checks", func() {
		ginkgo.It("passes when any listed role matches", func() {
			w := serve(Requirement{Roles: []string{"admin", "agent"}}, agentPrincipal())
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("forbids when no listed role matches", func() {
			w := serve(Requirement{Roles: []string{"admin"}}, agentPrincipal())
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(reached).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("permission checks", func() {
		ginkgo.It("passes when any listed permission matches", func() {
			w := serve(Requirement{Permissions: []string{"agents.read", "agents.create"}}, agentPrincipal())
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("forbids when no listed permission matches", func() {
			w := serve(Requirement{Permissions: []string{"agents.delete"}}, agentPrincipal())
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
		})
	})

	ginkgo.Describe("combined requirements", func() {
		ginkgo.It("requires both the role and the permission check to pass", func() {
			w := serve(Requirement{
				Roles:       []string{"agent"},
				Permissions: []string{"agents.delete"},
			}, agentPrincipal())
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))

			w = serve(Requirement{
				Roles:       []string{"agent"},
				Permissions: []string{"agents.read"},
			}, agentPrincipal())
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		})
	})
})
