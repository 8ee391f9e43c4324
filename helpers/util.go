package helpers

import (
	"errors"
	"strings"
)

func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// ContainsFold reports whether either string contains the other,
// case-insensitively. Used by city-level post-filters where upstream
// localities come in mixed spellings.
func ContainsFold(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}
