package role

import (
	"errors"
	"sync"
)

// Role identifies a privilege tier. Only the relative rank order between
// roles carries meaning; the integer values themselves are configuration.
type Role string

const (
	// Guest is the unauthenticated / lowest tier.
	Guest Role = "guest"
	// Member is a regular congregation member.
	Member Role = "member"
	// DataEntry is the staff tier assigned to new registrations.
	DataEntry Role = "data_entry"
	// BranchAdmin administers a single branch.
	BranchAdmin Role = "branch_admin"
	// Admin administers the whole organization.
	Admin Role = "admin"
	// SuperAdmin holds every permission unconditionally.
	SuperAdmin Role = "super_admin"
)

// Wildcard in a permission set grants every permission key, including keys
// never registered anywhere.
const Wildcard = "*"

// Definition describes one role: its human label, ordered rank (higher is
// more privileged), and permission set. Permission keys are dot-scoped
// strings ("resource.action"); no hierarchy is inferred between keys.
type Definition struct {
	Label       string
	Rank        int
	Permissions []string
}

type compiled struct {
	label    string
	rank     int
	perms    map[string]struct{}
	wildcard bool
	ordered  []string
}

// Table is the static role model: role to rank, role to permission set.
// Build it once at startup (Register then Freeze, or DefaultTable), after
// which every method is a pure read safe for unlimited concurrent callers.
type Table struct {
	mu     sync.RWMutex
	roles  map[Role]compiled
	frozen bool
}

// NewTable returns an empty, unfrozen Table.
func NewTable() *Table {
	return &Table{roles: make(map[Role]compiled)}
}

// Register adds a role definition. It fails on an empty name, a duplicate
// registration, or a frozen table.
func (t *Table) Register(name Role, def Definition) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return errors.New("role table frozen")
	}
	if name == "" {
		return errors.New("role name empty")
	}
	if _, exists := t.roles[name]; exists {
		return errors.New("role already registered: " + string(name))
	}

	c := compiled{
		label:   def.Label,
		rank:    def.Rank,
		perms:   make(map[string]struct{}, len(def.Permissions)),
		ordered: append([]string(nil), def.Permissions...),
	}
	for _, p := range def.Permissions {
		if p == Wildcard {
			c.wildcard = true
		}
		c.perms[p] = struct{}{}
	}

	t.roles[name] = c
	return nil
}

// Freeze makes the table immutable. Further Register calls fail.
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Known reports whether the role is registered.
func (t *Table) Known(name Role) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.roles[name]
	return ok
}

// Rank returns the role's ordered rank. Unknown roles report false.
func (t *Table) Rank(name Role) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.roles[name]
	return c.rank, ok
}

// Label returns the role's human-readable label.
func (t *Table) Label(name Role) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.roles[name]
	return c.label, ok
}

// HasRole reports whether a user holding userRole satisfies a
// required-minimum-role check: rank(userRole) >= rank(required). Either
// side being unknown fails closed.
func (t *Table) HasRole(userRole, required Role) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	u, ok := t.roles[userRole]
	if !ok {
		return false
	}
	r, ok := t.roles[required]
	if !ok {
		return false
	}
	return u.rank >= r.rank
}

// HasPermission reports whether the role's permission set contains key,
// either explicitly or through the wildcard. Keys are matched exactly;
// "users.edit" does not imply "users.view".
func (t *Table) HasPermission(name Role, key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.roles[name]
	if !ok {
		return false
	}
	if c.wildcard {
		return true
	}
	_, ok = c.perms[key]
	return ok
}

// Permissions returns a copy of the role's declared permission list.
func (t *Table) Permissions(name Role) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.roles[name]
	if !ok {
		return nil
	}
	return append([]string(nil), c.ordered...)
}
