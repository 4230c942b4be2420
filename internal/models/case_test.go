package models

import "testing"

func TestRoleCanonical(t *testing.T) {
	cases := map[Role]Role{
		"student":     RoleStudent,
		"LAW_STUDENT": RoleStudent,
		" student ":   RoleStudent,
		"paralegal":   RoleParalegal,
		"associate":   RoleParalegal,
		"":            RoleParalegal,
	}
	for in, want := range cases {
		if got := in.Canonical(); got != want {
			t.Fatalf("Role(%q).Canonical() = %q, want %q", in, got, want)
		}
	}
}
