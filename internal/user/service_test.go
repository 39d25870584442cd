package user

import (
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/agent-management/internal"
	userdm "github.com/frahmantamala/agent-management/internal/core/datamodel/user"
	"github.com/frahmantamala/agent-management/pkg/logger"
)

func TestUser(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "User Module Suite")
}

type mockUserRepository struct {
	users   map[string]*User
	deleted map[string]bool
	roles   map[string]bool
	nextID  int
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:   make(map[string]*User),
		deleted: make(map[string]bool),
		roles:   map[string]bool{"admin": true, "user": true, "agent": true},
		nextID:  1,
	}
}

func (m *mockUserRepository) Create(u *User, passwordHash string) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	u.ID = strconv.Itoa(m.nextID)
	m.nextID++
	u.PasswordHash = passwordHash
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepository) GetByID(id string) (*User, error) {
	if u, ok := m.users[id]; ok && !m.deleted[id] {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *mockUserRepository) GetByEmail(email string) (*User, error) {
	for id, u := range m.users {
		if u.Email == email && !m.deleted[id] {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockUserRepository) GetByUsername(username string) (*User, error) {
	for id, u := range m.users {
		if u.Username == username && !m.deleted[id] {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockUserRepository) List(offset, limit int, includeDeleted bool) ([]*User, int64, error) {
	out := []*User{}
	for id, u := range m.users {
		if m.deleted[id] && !includeDeleted {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	total := int64(len(out))
	if offset > len(out) {
		offset = len(out)
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (m *mockUserRepository) Update(u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	stored := m.users[u.ID]
	hash := stored.PasswordHash
	cp := *u
	cp.PasswordHash = hash
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepository) UpdatePassword(id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) SoftDelete(id string) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	m.deleted[id] = true
	return nil
}

func (m *mockUserRepository) Restore(id string) error {
	if !m.deleted[id] {
		return ErrNotFound
	}
	delete(m.deleted, id)
	return nil
}

func (m *mockUserRepository) AssignRole(userID, roleName string) error {
	if !m.roles[roleName] {
		return ErrNotFound
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	for _, r := range u.Roles {
		if r == roleName {
			return nil
		}
	}
	u.Roles = append(u.Roles, roleName)
	return nil
}

func (m *mockUserRepository) RemoveRole(userID, roleName string) error {
	if !m.roles[roleName] {
		return ErrNotFound
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	out := u.Roles[:0]
	for _, r := range u.Roles {
		if r != roleName {
			out = append(out, r)
		}
	}
	u.Roles = out
	return nil
}

var _ = ginkgo.Describe("UserService", func() {
	var (
		service *Service
		repo    *mockUserRepository
	)

	ginkgo.BeforeEach(func() {
		repo = newMockUserRepository()
		service = NewService(repo, bcrypt.MinCost, logger.L())
	})

	create := func(username, email string) *User {
		u, err := service.Create(CreateUserDTO{
			Username: username,
			Email:    email,
			Password: "correct-horse",
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return u
	}

	ginkgo.Describe("Create", func() {
		ginkgo.It("creates an active plain user with a hashed password", func() {
			u := create("alice", "alice@example.com")

			gomega.Expect(u.IsActive).To(gomega.BeTrue())
			gomega.Expect(u.UserType).To(gomega.Equal(userdm.TypeUser))

			stored := repo.users[u.ID]
			gomega.Expect(stored.PasswordHash).ToNot(gomega.Equal("correct-horse"))
			gomega.Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse"))).To(gomega.Succeed())
		})

		ginkgo.It("rejects a taken email", func() {
			create("alice", "alice@example.com")

			_, err := service.Create(CreateUserDTO{Username: "other", Email: "alice@example.com", Password: "correct-horse"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrEmailExists))
		})

		ginkgo.It("rejects a taken username", func() {
			create("alice", "alice@example.com")

			_, err := service.Create(CreateUserDTO{Username: "alice", Email: "other@example.com", Password: "correct-horse"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrUsernameExists))
		})

		ginkgo.It("rejects a short password", func() {
			_, err := service.Create(CreateUserDTO{Username: "alice", Email: "alice@example.com", Password: "short"})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Update", func() {
		ginkgo.It("applies partial updates", func() {
			u := create("alice", "alice@example.com")

			first := "Alice"
			inactive := false
			updated, err := service.Update(u.ID, UpdateUserDTO{FirstName: &first, IsActive: &inactive})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.FirstName).To(gomega.Equal("Alice"))
			gomega.Expect(updated.IsActive).To(gomega.BeFalse())
			gomega.Expect(updated.Email).To(gomega.Equal("alice@example.com"))
		})

		ginkgo.It("rejects an email already used by someone else", func() {
			create("alice", "alice@example.com")
			u := create("bob", "bob@example.com")

			taken := "alice@example.com"
			_, err := service.Update(u.ID, UpdateUserDTO{Email: &taken})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrEmailExists))
		})

		ginkgo.It("lets a user keep their own email", func() {
			u := create("alice", "alice@example.com")

			same := "alice@example.com"
			_, err := service.Update(u.ID, UpdateUserDTO{Email: &same})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("ChangePassword", func() {
		ginkgo.It("replaces the password when the current one matches", func() {
			u := create("alice", "alice@example.com")

			err := service.ChangePassword(u.ID, ChangePasswordDTO{
				CurrentPassword: "correct-horse",
				NewPassword:     "battery-staple",
				ConfirmPassword: "battery-staple",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			stored := repo.users[u.ID]
			gomega.Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("battery-staple"))).To(gomega.Succeed())
		})

		ginkgo.It("rejects a wrong current password", func() {
			u := create("alice", "alice@example.com")

			err := service.ChangePassword(u.ID, ChangePasswordDTO{
				CurrentPassword: "wrong",
				NewPassword:     "battery-staple",
				ConfirmPassword: "battery-staple",
			})
			gomega.Expect(err).To(gomega.HaveOccurred())

			stored := repo.users[u.ID]
			gomega.Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse"))).To(gomega.Succeed())
		})

		ginkgo.It("rejects a mismatched confirmation", func() {
			u := create("alice", "alice@example.com")

			err := service.ChangePassword(u.ID, ChangePasswordDTO{
				CurrentPassword: "correct-horse",
				NewPassword:     "battery-staple",
				ConfirmPassword: "battery-stable",
			})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Delete and Restore", func() {
		ginkgo.It("soft deletes and restores an account", func() {
			u := create("alice", "alice@example.com")

			gomega.Expect(service.Delete(u.ID)).To(gomega.Succeed())
			_, err := service.Get(u.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrUserNotFound))

			gomega.Expect(service.Restore(u.ID)).To(gomega.Succeed())
			restored, err := service.Get(u.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(restored.Username).To(gomega.Equal("alice"))
		})

		ginkgo.It("fails to restore an account that was never deleted", func() {
			u := create("alice", "alice@example.com")

			err := service.Restore(u.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrUserNotFound))
		})

		ginkgo.It("excludes deleted accounts from listings unless asked", func() {
			u := create("alice", "alice@example.com")
			create("bob", "bob@example.com")
			gomega.Expect(service.Delete(u.ID)).To(gomega.Succeed())

			visible, total, err := service.List(0, 10, false)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(total).To(gomega.Equal(int64(1)))
			gomega.Expect(visible[0].Username).To(gomega.Equal("bob"))

			all, total, err := service.List(0, 10, true)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(total).To(gomega.Equal(int64(2)))
			gomega.Expect(all).To(gomega.HaveLen(2))
		})
	})

	ginkgo.Describe("Role assignment", func() {
		ginkgo.It("assigns and removes a role", func() {
			u := create("alice", "alice@example.com")

			gomega.Expect(service.AssignRole(u.ID, "agent")).To(gomega.Succeed())
			gomega.Expect(repo.users[u.ID].Roles).To(gomega.ContainElement("agent"))

			gomega.Expect(service.RemoveRole(u.ID, "agent")).To(gomega.Succeed())
			gomega.Expect(repo.users[u.ID].Roles).ToNot(gomega.ContainElement("agent"))
		})

		ginkgo.It("reports an unknown role", func() {
			u := create("alice", "alice@example.com")

			err := service.AssignRole(u.ID, "superuser")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrRoleNotFound))
		})

		ginkgo.It("reports an unknown user", func() {
			err := service.AssignRole("999", "agent")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrUserNotFound))
		})
	})
})
