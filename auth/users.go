// Package auth checks a user id and login code against the users file and
// hands back the Identity the rest of the server works with.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"crc-quiz-server/models"
)

// Roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

const sha256Prefix = "sha256:"

var (
	ErrMissingFields      = errors.New("user id and login code are required")
	ErrUnknownUser        = errors.New("account does not exist")
	ErrInactive           = errors.New("account is not enabled")
	ErrInvalidCredentials = errors.New("login code is incorrect")
)

// User is one entry of the users file.
type User struct {
	UserID   string `json:"user_id" yaml:"user_id"`
	Name     string `json:"name" yaml:"name"`
	CodeHash string `json:"code_hash" yaml:"code_hash"`
	Role     string `json:"role" yaml:"role"`
	Active   *bool  `json:"active,omitempty" yaml:"active,omitempty"`
}

// IsActive treats a missing flag as active.
func (u User) IsActive() bool {
	return u.Active == nil || *u.Active
}

// Directory is an immutable index of users by id.
type Directory struct {
	users map[string]User
}

// NewDirectory indexes users, dropping entries without an id. Later
// duplicates win.
func NewDirectory(users []User) *Directory {
	d := &Directory{users: make(map[string]User, len(users))}
	for _, u := range users {
		u.UserID = strings.TrimSpace(u.UserID)
		if u.UserID == "" {
			continue
		}
		if u.Role == "" {
			u.Role = RoleStudent
		}
		d.users[u.UserID] = u
	}
	return d
}

// LoadUsers reads a JSON or YAML users file, chosen by extension. A missing
// file yields an empty directory so nobody can log in.
func LoadUsers(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("Users file %s not found, no accounts available", path)
			return NewDirectory(nil), nil
		}
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var users []User
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &users)
	default:
		err = json.Unmarshal(data, &users)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}
	d := NewDirectory(users)
	log.Printf("Loaded %d users from %s", d.Len(), path)
	return d, nil
}

// Len is the number of indexed users.
func (d *Directory) Len() int {
	return len(d.users)
}

// Authenticate verifies code for userID. Both are trimmed first.
func (d *Directory) Authenticate(userID, code string) (models.Identity, error) {
	userID = strings.TrimSpace(userID)
	code = strings.TrimSpace(code)
	if userID == "" || code == "" {
		return models.Identity{}, ErrMissingFields
	}
	u, ok := d.users[userID]
	if !ok {
		return models.Identity{}, ErrUnknownUser
	}
	if !u.IsActive() {
		return models.Identity{}, ErrInactive
	}
	if !CheckCode(u.CodeHash, code) {
		return models.Identity{}, ErrInvalidCredentials
	}
	return models.Identity{UserID: u.UserID, DisplayName: u.Name, Role: u.Role}, nil
}

// HashCode returns the sha256 form stored in users files.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return sha256Prefix + hex.EncodeToString(sum[:])
}

// CheckCode compares code with a "sha256:<hex>" or bcrypt hash.
func CheckCode(hash, code string) bool {
	switch {
	case strings.HasPrefix(hash, sha256Prefix):
		return subtle.ConstantTimeCompare([]byte(hash), []byte(HashCode(code))) == 1
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
	default:
		return false
	}
}
