package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipal_IsAdmin(t *testing.T) {
	tests := []struct {
		name  string
		p     *Principal
		admin bool
	}{
		{"nil", nil, false},
		{"plain user", &Principal{UserID: "u", Roles: []string{RoleUser}}, false},
		{"admin", &Principal{UserID: "u", Roles: []string{RoleUser, RoleAdmin}}, true},
		{"super admin", &Principal{UserID: "u", Roles: []string{RoleSuperAdmin}}, true},
		{"system", SystemPrincipal(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.admin, tt.p.IsAdmin())
		})
	}
}

func TestAdminStatusFor(t *testing.T) {
	r := &Review{AuthorID: "author"}
	assert.Equal(t, "", AdminStatusFor(r, nil))
	assert.Equal(t, AdminStatusAuthor, AdminStatusFor(r, &Principal{UserID: "author"}))
	assert.Equal(t, AdminStatusAdmin, AdminStatusFor(r, &Principal{UserID: "x", Roles: []string{RoleAdmin}}))
	assert.Equal(t, "", AdminStatusFor(r, &Principal{UserID: "x"}))
}

func TestComment_CanModerate(t *testing.T) {
	c := &Comment{AuthorID: "a"}
	assert.True(t, c.CanModerate(&Principal{UserID: "a"}))
	assert.True(t, c.CanModerate(&Principal{UserID: "b", Roles: []string{RoleSuperAdmin}}))
	assert.False(t, c.CanModerate(&Principal{UserID: "b"}))
	assert.False(t, c.CanModerate(nil))
}

func TestComment_ShowsModeration(t *testing.T) {
	roles := func(r ...string) []string { return r }
	tests := []struct {
		name   string
		author []string
		viewer *Principal
		shows  bool
	}{
		{"nil viewer", roles(RoleUser), nil, false},
		{"author", roles(RoleAdmin), &Principal{UserID: "a", Roles: roles(RoleAdmin)}, true},
		{"plain user", roles(RoleUser), &Principal{UserID: "b", Roles: roles(RoleUser)}, false},
		{"admin over user", roles(RoleUser), &Principal{UserID: "b", Roles: roles(RoleAdmin)}, true},
		{"admin over admin", roles(RoleUser, RoleAdmin), &Principal{UserID: "b", Roles: roles(RoleAdmin)}, false},
		{"admin over super admin", roles(RoleSuperAdmin), &Principal{UserID: "b", Roles: roles(RoleAdmin)}, false},
		{"super admin over admin", roles(RoleAdmin), &Principal{UserID: "b", Roles: roles(RoleSuperAdmin)}, true},
		{"super admin over super admin", roles(RoleSuperAdmin), &Principal{UserID: "b", Roles: roles(RoleSuperAdmin)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Comment{AuthorID: "a", AuthorRoles: tt.author}
			assert.Equal(t, tt.shows, c.ShowsModeration(tt.viewer))
		})
	}
}
