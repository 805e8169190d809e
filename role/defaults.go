package role

// DefaultRegistrationRole is assigned to self-registered accounts.
const DefaultRegistrationRole = DataEntry

// DefaultTable returns the standard church-management role hierarchy,
// already frozen. Rank order (low to high):
//
//	guest < member < data_entry < branch_admin < admin < super_admin
func DefaultTable() *Table {
	t := NewTable()

	defs := map[Role]Definition{
		Guest: {
			Label: "Guest",
			Rank:  0,
		},
		Member: {
			Label: "Member",
			Rank:  10,
			Permissions: []string{
				"announcements.view",
				"events.view",
				"giving.own",
			},
		},
		DataEntry: {
			Label: "Data Entry",
			Rank:  20,
			Permissions: []string{
				"announcements.view",
				"events.view",
				"giving.own",
				"members.view",
				"members.edit",
				"attendance.record",
			},
		},
		BranchAdmin: {
			Label: "Branch Admin",
			Rank:  30,
			Permissions: []string{
				"announcements.view",
				"announcements.edit",
				"events.view",
				"events.edit",
				"giving.own",
				"members.view",
				"members.edit",
				"members.delete",
				"attendance.record",
				"finance.view",
				"reports.view",
				"users.view",
			},
		},
		Admin: {
			Label: "Admin",
			Rank:  40,
			Permissions: []string{
				"announcements.view",
				"announcements.edit",
				"events.view",
				"events.edit",
				"giving.own",
				"giving.all",
				"members.view",
				"members.edit",
				"members.delete",
				"attendance.record",
				"finance.view",
				"finance.reports",
				"reports.view",
				"users.view",
				"users.edit",
				"users.delete",
				"settings.edit",
			},
		},
		SuperAdmin: {
			Label:       "Super Admin",
			Rank:        50,
			Permissions: []string{Wildcard},
		},
	}

	for name, def := range defs {
		// Registration cannot fail here: names are unique and non-empty.
		_ = t.Register(name, def)
	}

	t.Freeze()
	return t
}
