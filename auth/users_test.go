package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashCode(t *testing.T) {
	assert.Equal(t, "sha256:8d969eef6ecad3c29a3a629280e686cf0c3f5d5a86aff3ca12020c923adc6c92", HashCode("123456"))
}

func TestCheckCode(t *testing.T) {
	bc, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, CheckCode(HashCode("s3cret"), "s3cret"))
	assert.False(t, CheckCode(HashCode("s3cret"), "S3cret"))
	assert.True(t, CheckCode(string(bc), "s3cret"))
	assert.False(t, CheckCode(string(bc), "other"))
	assert.False(t, CheckCode("s3cret", "s3cret"), "plain text is never accepted")
	assert.False(t, CheckCode("", ""))
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadUsersJSON(t *testing.T) {
	path := writeFile(t, "users.json", `[
		{"user_id": " u001 ", "name": "张三", "code_hash": "`+HashCode("123456")+`"},
		{"user_id": "admin", "name": "管理员", "code_hash": "`+HashCode("root")+`", "role": "admin"},
		{"user_id": "u002", "name": "李四", "code_hash": "`+HashCode("x")+`", "active": false},
		{"name": "无账号"}
	]`)
	d, err := LoadUsers(path)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	id, err := d.Authenticate("u001", " 123456 ")
	require.NoError(t, err)
	assert.Equal(t, "u001", id.UserID)
	assert.Equal(t, "张三", id.DisplayName)
	assert.Equal(t, RoleStudent, id.Role)

	id, err = d.Authenticate("admin", "root")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, id.Role)

	tests := []struct {
		name   string
		user   string
		code   string
		target error
	}{
		{"missing-user", "", "123456", ErrMissingFields},
		{"missing-code", "u001", "  ", ErrMissingFields},
		{"unknown", "u999", "123456", ErrUnknownUser},
		{"inactive", "u002", "x", ErrInactive},
		{"wrong-code", "u001", "654321", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Authenticate(tt.user, tt.code)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestLoadUsersYAML(t *testing.T) {
	bc, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	path := writeFile(t, "users.yaml", `
- user_id: u100
  name: 王五
  code_hash: "`+string(bc)+`"
  active: true
`)
	d, err := LoadUsers(path)
	require.NoError(t, err)
	id, err := d.Authenticate("u100", "pw")
	require.NoError(t, err)
	assert.Equal(t, "王五", id.DisplayName)
}

func TestLoadUsersMissingAndBroken(t *testing.T) {
	d, err := LoadUsers(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())

	_, err = LoadUsers(writeFile(t, "users.json", `{"user_id": "u001"}`))
	assert.Error(t, err)
}
