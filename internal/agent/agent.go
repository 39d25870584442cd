package agent

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by repositories on lookup misses; the service
// translates it into the API error taxonomy.
var ErrNotFound = errors.New("agent not found")

// ErrUserNotFound is the UserDirectory miss sentinel.
var ErrUserNotFound = errors.New("user not found")

// ErrParentNotFound is returned by Repository.Reparent when the target
// parent vanished before the transaction could lock it.
var ErrParentNotFound = errors.New("parent agent not found")

// Separator frames the ids inside a materialized path. "/" can never
// appear inside a UUID, so segment containment checks are unambiguous.
const Separator = "/"

// Path is the materialized path of an agent: the ids of its ancestors,
// root first, each framed by Separator. A root agent's path is a single
// Separator. The agent's own id is not part of its path; FullPath
// appends it when deriving a child's path.
type Path string

// RootPath is the path of every root agent.
const RootPath = Path(Separator)

// Child derives the path of a direct child of the agent owning this
// path: the parent's path with the parent's id appended.
func (p Path) Child(parentID string) Path {
	if p == "" {
		return Path(Separator + parentID + Separator)
	}
	return p + Path(parentID+Separator)
}

// ContainsID reports whether id occurs as a whole path segment, which
// is exactly "id is an ancestor of the path's owner".
func (p Path) ContainsID(id string) bool {
	return strings.Contains(string(p), Separator+id+Separator)
}

// After returns the remainder of p after the given prefix. The second
// return is false when prefix is not an actual prefix of p.
func (p Path) After(prefix Path) (Path, bool) {
	if !strings.HasPrefix(string(p), string(prefix)) {
		return "", false
	}
	return p[len(prefix):], true
}

// Depth is the number of ancestor ids encoded in the path.
func (p Path) Depth() int {
	return len(p.Segments())
}

// Segments returns the ancestor ids in root-first order.
func (p Path) Segments() []string {
	parts := strings.Split(string(p), Separator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

type Agent struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	ParentAgentID *string    `json:"parent_agent_id,omitempty"`
	UserID        string     `json:"user_id"`
	IsActive      bool       `json:"is_active"`
	Level         int        `json:"level"`
	Path          Path       `json:"path"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// FullPath is the path every descendant of this agent carries as a
// prefix: the agent's own path plus its id.
func (a *Agent) FullPath() Path {
	return a.Path.Child(a.ID)
}

// IsDescendantOf reports whether other is a strict ancestor of a.
func (a *Agent) IsDescendantOf(other *Agent) bool {
	return a.Path.ContainsID(other.ID)
}

// IsAncestorOf reports whether a is a strict ancestor of other.
func (a *Agent) IsAncestorOf(other *Agent) bool {
	return other.Path.ContainsID(a.ID)
}

// AncestorIDs returns the ids of all ancestors, root first.
func (a *Agent) AncestorIDs() []string {
	return a.Path.Segments()
}

// Repository is the persistence contract for the hierarchy. Lookup
// misses return ErrAgentNotFound from the errors package via the
// service; repositories signal them with gorm-style not-found errors
// translated at the boundary.
type Repository interface {
	Create(a *Agent) error
	GetByID(id string) (*Agent, error)
	GetByCode(code string) (*Agent, error)
	GetByUserID(userID string) (*Agent, error)
	List(offset, limit int) ([]*Agent, int64, error)

	// ListDescendants returns every agent whose path begins with the
	// given full path, ordered by level ascending then name ascending.
	ListDescendants(prefix Path) ([]*Agent, error)

	Update(a *Agent) error

	// Reparent runs one move as a single transaction: it locks and
	// loads the moved agent, the new parent (nil newParentID targets
	// the root), and the current descendant set, hands them to compute,
	// then persists the rewritten rows. Loading under the same locks as
	// the write is what serializes concurrent moves over overlapping
	// subtrees; a move committed moments earlier is seen, not clobbered.
	// Misses surface as ErrNotFound (moved) or ErrParentNotFound.
	Reparent(agentID string, newParentID *string, compute ReparentFunc) (*Agent, error)

	Delete(id string) error
}

// ReparentFunc rewrites the moved agent and its descendants in place
// from state the repository read under its locks. parent is nil for a
// move to the root. Returning an error aborts the transaction.
type ReparentFunc func(moved *Agent, parent *Agent, descendants []*Agent) error

// UserDirectory is what the hierarchy needs to know about users.
type UserDirectory interface {
	GetSummary(userID string) (*UserSummary, error)
	SetUserType(userID, userType string) error
	SetManagingAgent(userID string, agentID *string) error

	// ListManagedBy returns users whose managing agent is any of the
	// given agents, ordered by username ascending.
	ListManagedBy(agentIDs []string) ([]*ManagedUser, error)
}

// UserSummary is the slice of a user record the hierarchy reads.
type UserSummary struct {
	ID              string
	Username        string
	UserType        string
	ManagingAgentID *string
	HasAgentRecord  bool
}

// ManagedUser is a user listed under an agent subtree.
type ManagedUser struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	IsActive        bool    `json:"is_active"`
	ManagingAgentID *string `json:"managing_agent_id,omitempty"`
}
