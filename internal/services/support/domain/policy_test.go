package domain

import "testing"

func TestAllow(t *testing.T) {
	t.Parallel()

	user := Actor{ID: "u1", Role: RoleUser}
	specialist := Actor{ID: "s1", Role: RoleSupportSpecialist}
	admin := Actor{ID: "a1", Role: RoleAdmin}
	unknown := Actor{ID: "x1", Role: Role("OBSERVER")}

	tests := []struct {
		name   string
		actor  Actor
		op     Operation
		target string
		want   bool
	}{
		{"specialist views progress", specialist, OperationViewProgress, "u1", true},
		{"admin views progress", admin, OperationViewProgress, "u1", true},
		{"user denied progress view", user, OperationViewProgress, "u1", false},
		{"user denied progress view of self", user, OperationViewProgress, "u1", false},
		{"unknown role denied progress view", unknown, OperationViewProgress, "u1", false},

		{"specialist sends hint", specialist, OperationSendHint, "u1", true},
		{"admin sends hint", admin, OperationSendHint, "u1", true},
		{"user denied sending hints", user, OperationSendHint, "u2", false},

		{"specialist lists any target", specialist, OperationListOwnHints, "u2", true},
		{"admin lists any target", admin, OperationListOwnHints, "u2", true},
		{"user lists without target", user, OperationListOwnHints, "", true},
		{"user lists with irrelevant target still allowed", user, OperationListOwnHints, "u2", true},
		{"unknown role denied listing", unknown, OperationListOwnHints, "", false},

		{"user passes mark-viewed role gate", user, OperationMarkViewed, "", true},
		{"admin passes mark-viewed role gate", admin, OperationMarkViewed, "", true},
		{"specialist denied mark-viewed", specialist, OperationMarkViewed, "", false},

		{"unknown operation denied", admin, Operation(0), "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Allow(tc.actor, tc.op, tc.target); got != tc.want {
				t.Fatalf("Allow(%v, %d, %q) = %t, want %t", tc.actor, tc.op, tc.target, got, tc.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  Role
		ok    bool
	}{
		{"USER", RoleUser, true},
		{"user", RoleUser, true},
		{" SUPPORT_SPECIALIST ", RoleSupportSpecialist, true},
		{"ADMIN", RoleAdmin, true},
		{"", "", false},
		{"OBSERVER", "", false},
	}
	for _, tc := range tests {
		role, ok := ParseRole(tc.value)
		if ok != tc.ok || role != tc.want {
			t.Fatalf("ParseRole(%q) = (%q, %t), want (%q, %t)", tc.value, role, ok, tc.want, tc.ok)
		}
	}
}
