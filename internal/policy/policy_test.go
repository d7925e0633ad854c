package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RoleAdmin, ParseRole("ADMIN"))
	assert.Equal(t, RoleModerator, ParseRole(" moderator "))
	assert.Equal(t, RoleMember, ParseRole("member"))
	assert.Equal(t, RoleMember, ParseRole(""))
	assert.Equal(t, RoleMember, ParseRole("superuser"))
}

func TestCanModerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Principal
		want bool
	}{
		{"anonymous", Principal{Role: RoleAdmin}, false},
		{"member", Principal{UserID: 1, Role: RoleMember}, false},
		{"moderator", Principal{UserID: 2, Role: RoleModerator}, true},
		{"admin", Principal{UserID: 3, Role: RoleAdmin}, true},
		{"empty role", Principal{UserID: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModerate(tt.p))
		})
	}
}

func TestCanModify(t *testing.T) {
	t.Parallel()

	owner := Principal{UserID: 7, Role: RoleMember}
	other := Principal{UserID: 8, Role: RoleMember}
	mod := Principal{UserID: 9, Role: RoleModerator}

	assert.True(t, CanModify(owner, 7))
	assert.False(t, CanModify(other, 7))
	assert.True(t, CanModify(mod, 7))
	assert.False(t, CanModify(Principal{}, 0))
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Asha", Principal{Name: " Asha "}.DisplayName())
	assert.Equal(t, "ravi", Principal{Email: "ravi@pariposhan.com"}.DisplayName())
	assert.Equal(t, "Anonymous", Principal{}.DisplayName())
}
