package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRoles(t *testing.T) {
	cases := []struct {
		name   string
		roles  []string
		direct bool
		want   Level
	}{
		{"no roles", nil, false, LevelDefault},
		{"direct context ignores roles", []string{RoleOwner}, true, LevelDefault},
		{"trusted", []string{RoleTrusted}, false, LevelTrusted},
		{"admin", []string{RoleAdmin}, false, LevelAdmin},
		{"owner", []string{RoleOwner}, false, LevelOwner},
		{"highest role wins", []string{RoleTrusted, RoleOwner, RoleAdmin}, false, LevelOwner},
		{"unknown flags ignored", []string{"moderator", "vip"}, false, LevelDefault},
		{"unknown mixed with known", []string{"vip", RoleAdmin}, false, LevelAdmin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FromRoles(tc.roles, tc.direct))
		})
	}
}

func TestAuthorize(t *testing.T) {
	// default threshold is 3
	assert.True(t, Authorize(LevelAdmin, 3))
	assert.True(t, Authorize(LevelOwner, 3))
	assert.True(t, Authorize(LevelElevated, 3))
	assert.False(t, Authorize(LevelDefault, 3))
	assert.False(t, Authorize(LevelTrusted, 3))

	// threshold 1 admits everyone
	assert.True(t, Authorize(LevelDefault, 1))
	// threshold 5 admits only the elevated operator
	assert.False(t, Authorize(LevelOwner, 5))
	assert.True(t, Authorize(LevelElevated, 5))
}

func TestElevatedNeverDerivedFromRoles(t *testing.T) {
	// Level 5 comes from an external identity check only.
	assert.NotEqual(t, LevelElevated, FromRoles([]string{RoleOwner, RoleAdmin, RoleTrusted}, false))
}
