package agent

import (
	"sort"
	"strings"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/agent-management/internal"
	userdm "github.com/frahmantamala/agent-management/internal/core/datamodel/user"
	"github.com/frahmantamala/agent-management/pkg/logger"
)

func TestAgent(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Agent Module Suite")
}

type mockAgentRepository struct {
	agents         map[string]*Agent
	reparentWrites int

	// beforeReparent runs before Reparent reads any state, like a
	// concurrent transaction committing just ahead of this one.
	beforeReparent func()
}

func newMockAgentRepository() *mockAgentRepository {
	return &mockAgentRepository{agents: make(map[string]*Agent)}
}

func (m *mockAgentRepository) Create(a *Agent) error {
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *mockAgentRepository) GetByID(id string) (*Agent, error) {
	if a, ok := m.agents[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *mockAgentRepository) GetByCode(code string) (*Agent, error) {
	for _, a := range m.agents {
		if a.Code == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockAgentRepository) GetByUserID(userID string) (*Agent, error) {
	for _, a := range m.agents {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockAgentRepository) List(offset, limit int) ([]*Agent, int64, error) {
	all := m.sorted(func(*Agent) bool { return true })
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockAgentRepository) ListDescendants(prefix Path) ([]*Agent, error) {
	return m.sorted(func(a *Agent) bool {
		return strings.HasPrefix(string(a.Path), string(prefix))
	}), nil
}

func (m *mockAgentRepository) Update(a *Agent) error {
	if _, ok := m.agents[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *mockAgentRepository) Reparent(agentID string, newParentID *string, compute ReparentFunc) (*Agent, error) {
	if m.beforeReparent != nil {
		m.beforeReparent()
	}

	stored, ok := m.agents[agentID]
	if !ok {
		return nil, ErrNotFound
	}
	moved := *stored

	var parent *Agent
	if newParentID != nil {
		p, ok := m.agents[*newParentID]
		if !ok {
			return nil, ErrParentNotFound
		}
		cp := *p
		parent = &cp
	}

	descendants := m.sorted(func(a *Agent) bool {
		return strings.HasPrefix(string(a.Path), string(moved.FullPath()))
	})

	if err := compute(&moved, parent, descendants); err != nil {
		return nil, err
	}

	m.reparentWrites++
	for _, a := range append([]*Agent{&moved}, descendants...) {
		cp := *a
		m.agents[a.ID] = &cp
	}
	return &moved, nil
}

func (m *mockAgentRepository) Delete(id string) error {
	delete(m.agents, id)
	return nil
}

func (m *mockAgentRepository) sorted(keep func(*Agent) bool) []*Agent {
	out := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type mockUserDirectory struct {
	users map[string]*UserSummary
	repo  *mockAgentRepository
}

func newMockUserDirectory(repo *mockAgentRepository) *mockUserDirectory {
	return &mockUserDirectory{users: make(map[string]*UserSummary), repo: repo}
}

func (m *mockUserDirectory) addUser(id, username, userType string) {
	m.users[id] = &UserSummary{ID: id, Username: username, UserType: userType}
}

func (m *mockUserDirectory) GetSummary(userID string) (*UserSummary, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	_, err := m.repo.GetByUserID(userID)
	cp.HasAgentRecord = err == nil
	return &cp, nil
}

func (m *mockUserDirectory) SetUserType(userID, userType string) error {
	if u, ok := m.users[userID]; ok {
		u.UserType = userType
		return nil
	}
	return ErrUserNotFound
}

func (m *mockUserDirectory) SetManagingAgent(userID string, agentID *string) error {
	if u, ok := m.users[userID]; ok {
		u.ManagingAgentID = agentID
		return nil
	}
	return ErrUserNotFound
}

func (m *mockUserDirectory) ListManagedBy(agentIDs []string) ([]*ManagedUser, error) {
	ids := make(map[string]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		ids[id] = struct{}{}
	}

	out := []*ManagedUser{}
	for _, u := range m.users {
		if u.ManagingAgentID == nil {
			continue
		}
		if _, ok := ids[*u.ManagingAgentID]; ok {
			out = append(out, &ManagedUser{
				ID:              u.ID,
				Username:        u.Username,
				ManagingAgentID: u.ManagingAgentID,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

var _ = ginkgo.Describe("AgentService", func() {
	var (
		service *Service
		repo    *mockAgentRepository
		users   *mockUserDirectory
	)

	ginkgo.BeforeEach(func() {
		repo = newMockAgentRepository()
		users = newMockUserDirectory(repo)
		service = NewService(repo, users, logger.L())
	})

	// mustCreate promotes a fresh user and creates the agent under parent.
	mustCreate := func(id, code, name string, parentID *string) *Agent {
		users.addUser("owner-"+id, "owner-"+id, userdm.TypeUser)
		a, err := service.CreateAgent(CreateAgentDTO{
			Code:          code,
			Name:          name,
			UserID:        "owner-" + id,
			ParentAgentID: parentID,
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return a
	}

	ginkgo.Describe("CreateAgent", func() {
		ginkgo.It("creates a root agent at level zero with the root path", func() {
			a := mustCreate("r", "ROOT", "Root", nil)

			gomega.Expect(a.Level).To(gomega.Equal(0))
			gomega.Expect(a.Path).To(gomega.Equal(RootPath))
			gomega.Expect(a.FullPath()).To(gomega.Equal(Path("/" + a.ID + "/")))
		})

		ginkgo.It("places a child under its parent's full path", func() {
			root := mustCreate("r", "ROOT", "Root", nil)
			child := mustCreate("c", "CHILD", "Child", &root.ID)

			gomega.Expect(child.Level).To(gomega.Equal(1))
			gomega.Expect(child.Path).To(gomega.Equal(root.FullPath()))
			gomega.Expect(*child.ParentAgentID).To(gomega.Equal(root.ID))
		})

		ginkgo.It("flags the owning user as an agent", func() {
			a := mustCreate("r", "ROOT", "Root", nil)

			summary, err := users.GetSummary(a.UserID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(summary.UserType).To(gomega.Equal(userdm.TypeAgent))
		})

		ginkgo.It("rejects a duplicate code", func() {
			mustCreate("r", "ROOT", "Root", nil)
			users.addUser("owner-x", "owner-x", userdm.TypeUser)

			_, err := service.CreateAgent(CreateAgentDTO{Code: "ROOT", Name: "Other", UserID: "owner-x"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAgentCodeExists))
		})

		ginkgo.It("rejects an unknown owner", func() {
			_, err := service.CreateAgent(CreateAgentDTO{Code: "AG01", Name: "Agent", UserID: "ghost"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrUserNotFound))
		})

		ginkgo.It("rejects a user that already owns an agent", func() {
			a := mustCreate("r", "ROOT", "Root", nil)

			_, err := service.CreateAgent(CreateAgentDTO{Code: "OTHER", Name: "Other", UserID: a.UserID})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrUserAlreadyAgent))
		})

		ginkgo.It("rejects an unknown parent", func() {
			users.addUser("owner-x", "owner-x", userdm.TypeUser)
			ghost := "no-such-agent"

			_, err := service.CreateAgent(CreateAgentDTO{Code: "AG02", Name: "Agent", UserID: "owner-x", ParentAgentID: &ghost})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("GetHierarchy", func() {
		ginkgo.It("returns the agent first, then descendants by level and name", func() {
			root := mustCreate("r", "ROOT", "Root", nil)
			b := mustCreate("b", "BETA", "Beta", &root.ID)
			a := mustCreate("a", "ALPHA", "Alpha", &root.ID)
			deep := mustCreate("d", "DEEP", "Deep", &b.ID)

			hierarchy, err := service.GetHierarchy(root.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			ids := make([]string, 0, len(hierarchy))
			for _, h := range hierarchy {
				ids = append(ids, h.ID)
			}
			gomega.Expect(ids).To(gomega.Equal([]string{root.ID, a.ID, b.ID, deep.ID}))
		})

		ginkgo.It("does not leak siblings into a subtree", func() {
			root := mustCreate("r", "ROOT", "Root", nil)
			a := mustCreate("a", "ALPHA", "Alpha", &root.ID)
			mustCreate("b", "BETA", "Beta", &root.ID)
			deep := mustCreate("d", "DEEP", "Deep", &a.ID)

			hierarchy, err := service.GetHierarchy(a.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(hierarchy).To(gomega.HaveLen(2))
			gomega.Expect(hierarchy[0].ID).To(gomega.Equal(a.ID))
			gomega.Expect(hierarchy[1].ID).To(gomega.Equal(deep.ID))
		})
	})

	ginkgo.Describe("Reparent", func() {
		var root, mid, leaf, other *Agent

		ginkgo.BeforeEach(func() {
			root = mustCreate("r", "ROOT", "Root", nil)
			mid = mustCreate("m", "MID", "Mid", &root.ID)
			leaf = mustCreate("l", "LEAF", "Leaf", &mid.ID)
			other = mustCreate("o", "OTHER", "Other", nil)
		})

		ginkgo.It("moves the subtree and rewrites paths and levels consistently", func() {
			moved, err := service.Reparent(mid.ID, &other.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(moved.Level).To(gomega.Equal(1))
			gomega.Expect(moved.Path).To(gomega.Equal(other.FullPath()))

			storedLeaf, err := service.GetAgent(leaf.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(storedLeaf.Level).To(gomega.Equal(2))
			gomega.Expect(storedLeaf.Path).To(gomega.Equal(moved.FullPath()))
		})

		ginkgo.It("moves a subtree to the root", func() {
			moved, err := service.Reparent(mid.ID, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(moved.Level).To(gomega.Equal(0))
			gomega.Expect(moved.Path).To(gomega.Equal(RootPath))
			gomega.Expect(moved.ParentAgentID).To(gomega.BeNil())

			storedLeaf, _ := service.GetAgent(leaf.ID)
			gomega.Expect(storedLeaf.Level).To(gomega.Equal(1))
			gomega.Expect(storedLeaf.Path).To(gomega.Equal(moved.FullPath()))
		})

		ginkgo.It("preserves relative depth for deep subtrees", func() {
			deeper := mustCreate("x", "DEEPER", "Deeper", &leaf.ID)

			_, err := service.Reparent(mid.ID, &other.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			stored, _ := service.GetAgent(deeper.ID)
			gomega.Expect(stored.Level).To(gomega.Equal(3))
			gomega.Expect(stored.Path.ContainsID(other.ID)).To(gomega.BeTrue())
			gomega.Expect(stored.Path.ContainsID(mid.ID)).To(gomega.BeTrue())
			gomega.Expect(stored.Path.ContainsID(leaf.ID)).To(gomega.BeTrue())
			gomega.Expect(stored.Path.ContainsID(root.ID)).To(gomega.BeFalse())
		})

		ginkgo.It("computes against a move committed just before it runs", func() {
			repo.beforeReparent = func() {
				repo.beforeReparent = nil
				_, err := service.Reparent(leaf.ID, nil)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			}

			moved, err := service.Reparent(mid.ID, &other.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// the leaf's promotion to root survives the second move
			storedLeaf, err := service.GetAgent(leaf.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(storedLeaf.Level).To(gomega.Equal(0))
			gomega.Expect(storedLeaf.Path).To(gomega.Equal(RootPath))
			gomega.Expect(storedLeaf.ParentAgentID).To(gomega.BeNil())

			// and mid lands under other without dragging the departed leaf
			gomega.Expect(moved.Path).To(gomega.Equal(other.FullPath()))
			hierarchy, err := service.GetHierarchy(moved.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(hierarchy).To(gomega.HaveLen(1))
		})

		ginkgo.It("reports an unknown new parent as not found", func() {
			ghost := "no-such-agent"

			_, err := service.Reparent(mid.ID, &ghost)
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(404))
			gomega.Expect(repo.reparentWrites).To(gomega.Equal(0))
		})

		ginkgo.It("refuses to move an agent under itself", func() {
			_, err := service.Reparent(mid.ID, &mid.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAgentCycle))
		})

		ginkgo.It("refuses to move an agent under its own descendant and leaves the tree untouched", func() {
			before, _ := service.GetHierarchy(root.ID)

			_, err := service.Reparent(root.ID, &leaf.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAgentCycle))
			gomega.Expect(repo.reparentWrites).To(gomega.Equal(0))

			after, _ := service.GetHierarchy(root.ID)
			gomega.Expect(after).To(gomega.Equal(before))
		})
	})

	ginkgo.Describe("VerifyAccess", func() {
		var root, mid, leaf, other *Agent

		ginkgo.BeforeEach(func() {
			root = mustCreate("r", "ROOT", "Root", nil)
			mid = mustCreate("m", "MID", "Mid", &root.ID)
			leaf = mustCreate("l", "LEAF", "Leaf", &mid.ID)
			other = mustCreate("o", "OTHER", "Other", nil)
		})

		ginkgo.It("rejects callers without an agent record", func() {
			users.addUser("plain", "plain", userdm.TypeUser)
			err := service.VerifyAccess(root.ID, "plain")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNotAnAgent))
		})

		ginkgo.It("allows an agent to access itself", func() {
			gomega.Expect(service.VerifyAccess(mid.ID, mid.UserID)).To(gomega.Succeed())
		})

		ginkgo.It("allows an ancestor to access any descendant", func() {
			gomega.Expect(service.VerifyAccess(leaf.ID, root.UserID)).To(gomega.Succeed())
			gomega.Expect(service.VerifyAccess(mid.ID, root.UserID)).To(gomega.Succeed())
		})

		ginkgo.It("denies a descendant access to its ancestor", func() {
			err := service.VerifyAccess(root.ID, leaf.UserID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAgentAccessDenied))
		})

		ginkgo.It("denies access across unrelated branches", func() {
			err := service.VerifyAccess(mid.ID, other.UserID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAgentAccessDenied))
		})

		ginkgo.It("reports a missing target as not found", func() {
			err := service.VerifyAccess("no-such-agent", root.UserID)
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(404))
		})
	})

	ginkgo.Describe("AssignUser and RemoveUser", func() {
		var root, mid *Agent

		ginkgo.BeforeEach(func() {
			root = mustCreate("r", "ROOT", "Root", nil)
			mid = mustCreate("m", "MID", "Mid", &root.ID)
			users.addUser("customer", "customer", userdm.TypeUser)
		})

		ginkgo.It("assigns a plain user to an agent the caller manages", func() {
			gomega.Expect(service.AssignUser(mid.ID, "customer", root.UserID)).To(gomega.Succeed())

			summary, _ := users.GetSummary("customer")
			gomega.Expect(summary.ManagingAgentID).ToNot(gomega.BeNil())
			gomega.Expect(*summary.ManagingAgentID).To(gomega.Equal(mid.ID))
		})

		ginkgo.It("refuses to assign another agent as a managed user", func() {
			err := service.AssignUser(root.ID, mid.UserID, root.UserID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAgentAsManagedUser))
		})

		ginkgo.It("denies assignment outside the caller's subtree", func() {
			other := mustCreate("o", "OTHER", "Other", nil)

			err := service.AssignUser(root.ID, "customer", other.UserID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAgentAccessDenied))
		})

		ginkgo.It("removes a user from its managing agent", func() {
			gomega.Expect(service.AssignUser(mid.ID, "customer", mid.UserID)).To(gomega.Succeed())
			gomega.Expect(service.RemoveUser("customer", root.UserID)).To(gomega.Succeed())

			summary, _ := users.GetSummary("customer")
			gomega.Expect(summary.ManagingAgentID).To(gomega.BeNil())
		})

		ginkgo.It("fails removal when the user has no managing agent", func() {
			err := service.RemoveUser("customer", root.UserID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNoManagingAgent))
		})
	})

	ginkgo.Describe("ManagedUsers", func() {
		ginkgo.It("collects users across the whole subtree, ordered by username", func() {
			root := mustCreate("r", "ROOT", "Root", nil)
			mid := mustCreate("m", "MID", "Mid", &root.ID)

			users.addUser("zoe", "zoe", userdm.TypeUser)
			users.addUser("adam", "adam", userdm.TypeUser)
			gomega.Expect(service.AssignUser(root.ID, "zoe", root.UserID)).To(gomega.Succeed())
			gomega.Expect(service.AssignUser(mid.ID, "adam", root.UserID)).To(gomega.Succeed())

			managed, err := service.ManagedUsers(root.ID, root.UserID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(managed).To(gomega.HaveLen(2))
			gomega.Expect(managed[0].Username).To(gomega.Equal("adam"))
			gomega.Expect(managed[1].Username).To(gomega.Equal("zoe"))
		})

		ginkgo.It("excludes users managed by agents above the caller", func() {
			root := mustCreate("r", "ROOT", "Root", nil)
			mid := mustCreate("m", "MID", "Mid", &root.ID)

			users.addUser("upper", "upper", userdm.TypeUser)
			gomega.Expect(service.AssignUser(root.ID, "upper", root.UserID)).To(gomega.Succeed())

			managed, err := service.ManagedUsers(mid.ID, mid.UserID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(managed).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("DeleteAgent", func() {
		ginkgo.It("removes the agent and reverts the user type", func() {
			a := mustCreate("r", "ROOT", "Root", nil)

			gomega.Expect(service.DeleteAgent(a.ID)).To(gomega.Succeed())

			_, err := service.GetAgent(a.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrAgentNotFound))

			summary, _ := users.GetSummary(a.UserID)
			gomega.Expect(summary.UserType).To(gomega.Equal(userdm.TypeUser))
		})
	})
})
