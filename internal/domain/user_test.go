package domain

import "testing"

func TestRoleValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleClient, true},
		{RoleDeveloper, true},
		{RoleAdmin, true},
		{Role("developer"), false},
		{Role(""), false},
	}
	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestProfileIdentityAndDisplayName(t *testing.T) {
	var nilProfile *Profile
	if nilProfile.IdentityID() != 0 {
		t.Fatal("expected nil profile to have zero identity")
	}

	p := &Profile{ID: 3, User: User{ID: 7, Username: "ada"}}
	if p.IdentityID() != 7 {
		t.Errorf("expected identity id from nested user, got %d", p.IdentityID())
	}
	if p.DisplayName() != "ada" {
		t.Errorf("expected username fallback, got %q", p.DisplayName())
	}

	p.User.FirstName = "Ada"
	p.User.LastName = "Lovelace"
	if p.DisplayName() != "Ada Lovelace" {
		t.Errorf("expected full name, got %q", p.DisplayName())
	}
}
