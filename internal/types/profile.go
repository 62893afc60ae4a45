package types

import (
	"net/url"
	"regexp"
	"strings"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,39}$`)

// Path segments that precede the handle on profile sites,
// e.g. linkedin.com/in/<user>, leetcode.com/u/<user>, codechef.com/users/<user>.
var profilePathPrefixes = map[string]bool{
	"in":    true,
	"u":     true,
	"users": true,
}

// UsernameFromProfile extracts a username from a profile URL or a bare handle.
// It returns "" when nothing usable is found.
func UsernameFromProfile(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.Contains(s, ".com/") || strings.HasSuffix(s, ".com") {
		if !strings.Contains(s, "://") {
			s = "https://" + s
		}
		parsed, err := url.Parse(s)
		if err != nil {
			return ""
		}
		parts := make([]string, 0, 2)
		for _, p := range strings.Split(parsed.Path, "/") {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 1 && profilePathPrefixes[strings.ToLower(parts[0])] {
			parts = parts[1:]
		}
		if len(parts) == 0 {
			return ""
		}
		return parts[0]
	}

	if handlePattern.MatchString(s) {
		return s
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// ProfileHandles groups the coding-platform and social handles of a candidate.
type ProfileHandles struct {
	GitHub   string `json:"github,omitempty"`
	LeetCode string `json:"leetcode,omitempty"`
	CodeChef string `json:"codechef,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// HandlesFromFields derives profile handles from extracted fields.
// Non-empty overrides win over extracted values.
func HandlesFromFields(fields *StructuredFields, overrides ProfileHandles) ProfileHandles {
	pick := func(override string, extracted FlexString) string {
		if name := UsernameFromProfile(override); name != "" {
			return name
		}
		return UsernameFromProfile(extracted.String())
	}

	if fields == nil {
		fields = &StructuredFields{}
	}
	return ProfileHandles{
		GitHub:   pick(overrides.GitHub, fields.GitHub),
		LeetCode: pick(overrides.LeetCode, fields.LeetCode),
		CodeChef: pick(overrides.CodeChef, fields.CodeChef),
		LinkedIn: pick(overrides.LinkedIn, fields.LinkedIn),
	}
}
