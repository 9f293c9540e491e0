package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxTagsPerVideo caps how many tags a single video may carry.
const MaxTagsPerVideo = 10

var tagRegex = regexp.MustCompile(`^[a-z0-9-]{1,32}$`)

// NormalizeTag lowercases and trims a tag name and checks its format.
func NormalizeTag(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "#")
	n = strings.Join(strings.Fields(n), "-")
	if !tagRegex.MatchString(n) {
		return "", fmt.Errorf("tag %q must be 1-32 characters of lowercase letters, numbers, and hyphens", name)
	}
	return n, nil
}

// NormalizeTags normalizes names, drops duplicates and keeps input order.
func NormalizeTags(names []string) ([]string, error) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		n, err := NormalizeTag(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) > MaxTagsPerVideo {
		return nil, fmt.Errorf("a video can have at most %d tags", MaxTagsPerVideo)
	}
	return out, nil
}
