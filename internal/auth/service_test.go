package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	plain := "harambee10"

	newHash, err := HashPassword(plain)
	require.NoError(t, err)

	require.True(t, ComparePasswords(newHash, plain))
	require.False(t, ComparePasswords(newHash, "wrong"))
}

func TestValidateUserFields(t *testing.T) {
	valid := NewUser{
		UserName:      "john_doe",
		FullName:      "John Doe",
		PasswordPlain: "secure123",
		Email:         "john.doe@gmail.com",
		Phone:         "+254712345678",
	}

	tests := []struct {
		name        string
		mutate      func(u *NewUser)
		expectedMsg string
	}{
		{
			name:   "Success - valid fields",
			mutate: func(u *NewUser) {},
		},
		{
			name:        "Fail - empty username",
			mutate:      func(u *NewUser) { u.UserName = "" },
			expectedMsg: "Username cannot be empty!",
		},
		{
			name:        "Fail - bad username characters",
			mutate:      func(u *NewUser) { u.UserName = "John Doe!" },
			expectedMsg: "wrong characters",
		},
		{
			name:        "Fail - empty email",
			mutate:      func(u *NewUser) { u.Email = "" },
			expectedMsg: "Email cannot be empty!",
		},
		{
			name:        "Fail - bad email",
			mutate:      func(u *NewUser) { u.Email = "not-an-email" },
			expectedMsg: "Invalid email format",
		},
		{
			name:        "Fail - bad phone",
			mutate:      func(u *NewUser) { u.Phone = "07-12-abc" },
			expectedMsg: "Invalid phone format",
		},
		{
			name:        "Fail - empty password",
			mutate:      func(u *NewUser) { u.PasswordPlain = "" },
			expectedMsg: "Password cannot be empty!",
		},
		{
			name:        "Fail - short password",
			mutate:      func(u *NewUser) { u.PasswordPlain = "123" },
			expectedMsg: "Password so short",
		},
		{
			name:        "Fail - long password",
			mutate:      func(u *NewUser) { u.PasswordPlain = strings.Repeat("a", 73) },
			expectedMsg: "Password so long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := valid
			tt.mutate(&u)
			err := u.ValidateUserFields()

			if tt.expectedMsg == "" {
				if err != nil {
					t.Errorf("Expected success, but got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, but got nil", tt.expectedMsg)
			}
			if !strings.Contains(err.Error(), tt.expectedMsg) {
				t.Errorf("Error message mismatch:\n got:  %q\n want to contain: %q", err.Error(), tt.expectedMsg)
			}
		})
	}
}
