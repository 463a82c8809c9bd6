package utils

import (
	"crypto/sha256"
	"strings"
	"unicode/utf8"
)

// ContainsInt checks if an int slice contains a specific int.
func ContainsInt(slice []int, item int) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// ContainsString checks if a string slice contains a specific string.
func ContainsString(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// BytesToInt converts a byte slice (e.g., from SHA256 sum) to an int64.
// Used for generating a deterministic seed from a hash.
func BytesToInt(b []byte) int64 {
	// Take the first 8 bytes (or less if available) to fit into int64
	var i int64
	for idx, val := range b {
		if idx >= 8 {
			break
		}
		i = (i << 8) | int64(val)
	}
	return i
}

// SeedFromParts hashes the parts joined by "|" and reduces the digest to an int64 seed.
func SeedFromParts(parts ...string) int64 {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return BytesToInt(sum[:])
}

// RuneLen counts characters, not bytes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Shorten trims s and cuts it to at most n characters, marking the cut with "…".
func Shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
