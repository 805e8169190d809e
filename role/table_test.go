package role

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndFreeze(t *testing.T) {
	tbl := NewTable()

	require.NoError(t, tbl.Register(Member, Definition{Label: "Member", Rank: 10}))
	require.Error(t, tbl.Register(Member, Definition{Label: "Again", Rank: 20}), "duplicate registration")
	require.Error(t, tbl.Register("", Definition{Rank: 1}), "empty name")

	tbl.Freeze()
	require.Error(t, tbl.Register(Admin, Definition{Rank: 40}), "frozen table")
	require.True(t, tbl.Known(Member))
	require.False(t, tbl.Known(Admin))
}

func TestHasRoleRankOrder(t *testing.T) {
	tbl := DefaultTable()

	require.True(t, tbl.HasRole(Admin, Member), "higher rank satisfies lower requirement")
	require.True(t, tbl.HasRole(Member, Member), "equal rank satisfies")
	require.False(t, tbl.HasRole(Member, Admin), "lower rank fails")
	require.True(t, tbl.HasRole(SuperAdmin, Admin))
	require.False(t, tbl.HasRole(Guest, Member))
}

func TestHasRoleFailsClosedOnUnknown(t *testing.T) {
	tbl := DefaultTable()

	require.False(t, tbl.HasRole("made_up", Member))
	require.False(t, tbl.HasRole(Admin, "made_up"))
}

func TestHasPermissionExactMatch(t *testing.T) {
	tbl := DefaultTable()

	require.True(t, tbl.HasPermission(Member, "events.view"))
	require.False(t, tbl.HasPermission(Member, "members.edit"))
	require.True(t, tbl.HasPermission(DataEntry, "members.edit"))

	// Keys are matched exactly: edit does not imply view or vice versa.
	require.True(t, tbl.HasPermission(BranchAdmin, "members.delete"))
	require.False(t, tbl.HasPermission(DataEntry, "members.delete"))
}

func TestWildcardGrantsEverything(t *testing.T) {
	tbl := DefaultTable()

	require.True(t, tbl.HasPermission(SuperAdmin, "events.view"))
	require.True(t, tbl.HasPermission(SuperAdmin, "finance.reports"))
	require.True(t, tbl.HasPermission(SuperAdmin, "never.registered.anywhere"))
}

func TestDefaultTableShape(t *testing.T) {
	tbl := DefaultTable()

	for _, r := range []Role{Guest, Member, DataEntry, BranchAdmin, Admin, SuperAdmin} {
		require.True(t, tbl.Known(r), "role %s", r)
	}

	order := []Role{Guest, Member, DataEntry, BranchAdmin, Admin, SuperAdmin}
	prev := -1
	for _, r := range order {
		rank, ok := tbl.Rank(r)
		require.True(t, ok)
		require.Greater(t, rank, prev, "ranks must be strictly increasing")
		prev = rank
	}

	require.Equal(t, DataEntry, DefaultRegistrationRole)
}

func TestPermissionsReturnsCopy(t *testing.T) {
	tbl := DefaultTable()

	perms := tbl.Permissions(Member)
	require.NotEmpty(t, perms)
	perms[0] = "mutated"

	fresh := tbl.Permissions(Member)
	require.NotContains(t, fresh, "mutated")
}

func TestUnknownRoleHasNothing(t *testing.T) {
	tbl := DefaultTable()

	require.False(t, tbl.HasPermission("made_up", "events.view"))
	require.Nil(t, tbl.Permissions("made_up"))
	_, ok := tbl.Label("made_up")
	require.False(t, ok)
}
