package roles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Support   Lead ": "Support Lead",
		"Admin":             "Admin",
		"Cafe\u0301":        "Caf\u00e9",
		"\tOps\nTeam":       "Ops Team",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeName(in), "input %q", in)
	}
}

func TestDraftValidation(t *testing.T) {
	tests := []struct {
		name   string
		input  RoleInput
		fields []string
	}{
		{name: "valid", input: RoleInput{Name: "Moderator", Permissions: map[string]rbac.Grant{"users": {ManageAll: true}}}},
		{name: "too short", input: RoleInput{Name: " ab "}, fields: []string{"name"}},
		{name: "punctuation", input: RoleInput{Name: "Admin!"}, fields: []string{"name"}},
		{name: "too long", input: RoleInput{Name: strings.Repeat("a", 65)}, fields: []string{"name"}},
		{
			name:   "unknown categories",
			input:  RoleInput{Name: "Moderator", Permissions: map[string]rbac.Grant{"zeta": {}, "alpha": {}}},
			fields: []string{"permissions.alpha", "permissions.zeta"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			role, err := tc.input.Draft()
			if len(tc.fields) == 0 {
				require.NoError(t, err)
				require.Equal(t, NormalizeName(tc.input.Name), role.Name)
				return
			}
			require.True(t, shared.IsKind(err, shared.KindValidation))
			var appErr *shared.Error
			require.ErrorAs(t, err, &appErr)
			got := make([]string, 0, len(appErr.Fields))
			for _, f := range appErr.Fields {
				got = append(got, f.Field)
			}
			require.Equal(t, tc.fields, got)
		})
	}
}

func TestDraftLowercasesColor(t *testing.T) {
	role, err := RoleInput{Name: "Design", DecorationColor: "#FFAA00", HierarchyLevel: 5}.Draft()
	require.NoError(t, err)
	require.Equal(t, "#ffaa00", role.DecorationColor)
	require.Equal(t, 5, role.HierarchyLevel)
	require.NotNil(t, role.Permissions)
}

func TestSortRoles(t *testing.T) {
	list := []rbac.Role{
		{Name: "b", HierarchyLevel: 1},
		{Name: "a", HierarchyLevel: 1},
		{Name: "z", HierarchyLevel: 10},
	}
	SortRoles(list)
	require.Equal(t, []string{"z", "a", "b"}, []string{list[0].Name, list[1].Name, list[2].Name})
}
