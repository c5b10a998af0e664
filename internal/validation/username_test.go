package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		errMsg   string
		wantErr  bool
	}{
		{
			name:     "valid username - lowercase",
			username: "ada",
		},
		{
			name:     "valid username - uppercase",
			username: "ADA",
		},
		{
			name:     "valid username - with underscore and dash",
			username: "ada_love-lace",
		},
		{
			name:     "valid username - all numbers",
			username: "123456",
		},
		{
			name:     "valid username - max length",
			username: strings.Repeat("a", 20),
		},
		{
			name:     "invalid - empty username",
			username: "",
			wantErr:  true,
			errMsg:   "username cannot be empty",
		},
		{
			name:     "invalid - too short (2 chars)",
			username: "ab",
			wantErr:  true,
			errMsg:   "must be 3-20 characters",
		},
		{
			name:     "invalid - too long (21 chars)",
			username: strings.Repeat("a", 21),
			wantErr:  true,
			errMsg:   "must be 3-20 characters",
		},
		{
			name:     "invalid - with dot",
			username: "ada.lovelace",
			wantErr:  true,
			errMsg:   "can only contain",
		},
		{
			name:     "invalid - with space",
			username: "ada l",
			wantErr:  true,
			errMsg:   "can only contain",
		},
		{
			name:     "invalid - cyrillic characters",
			username: "алиса",
			wantErr:  true,
			errMsg:   "can only contain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCanonicalUsername(t *testing.T) {
	assert.Equal(t, "ada", CanonicalUsername("ADA"))
	assert.Equal(t, "ada_x-1", CanonicalUsername(" Ada_X-1 "))

	// every valid username canonicalizes into the allowed lowercase charset
	for _, in := range []string{"Ada", "ZZZ_top", "a-B-c", "0xDEAD"} {
		require.NoError(t, ValidateUsername(in))
		out := CanonicalUsername(in)
		assert.Equal(t, strings.ToLower(in), out)
		assert.NoError(t, ValidateUsername(out))
	}
}

func TestIsReservedUsername(t *testing.T) {
	for _, name := range []string{"admin", "ADMIN", "Api", "www", "mail", "ftp", "login", "register", "auth", "user", "data", "account"} {
		assert.True(t, IsReservedUsername(name), name)
	}
	assert.False(t, IsReservedUsername("ada"))
	assert.False(t, IsReservedUsername("administrator"))
	assert.Len(t, ReservedUsernames(), 11)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		errMsg   string
		wantErr  bool
	}{
		{
			name:     "valid password - exactly 6 chars",
			password: "secret",
		},
		{
			name:     "valid password - unicode",
			password: "пароль1",
		},
		{
			name:     "invalid - empty password",
			password: "",
			wantErr:  true,
			errMsg:   "password cannot be empty",
		},
		{
			name:     "invalid - too short (5 chars)",
			password: "short",
			wantErr:  true,
			errMsg:   "must be at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.Com "))

	require.NoError(t, ValidateEmail("a@x.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("Ada <a@x.com>"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@x.com"))
}
