package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile("{(.*?)}")

// ResolveTemplate replaces {$.path} tokens with values looked up in data.
// Tokens that do not resolve are left as written.
func ResolveTemplate(data map[string]any, template string) string {
	if len(data) == 0 || !strings.Contains(template, "{") {
		return template
	}
	tokenMap := make(map[string]any)
	tokens := tokenPattern.FindAllString(template, -1)
	for _, token := range tokens {
		tmatch := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}"))
		if !strings.HasPrefix(tmatch, "$") {
			continue
		}
		value, err := jsonpath.JsonPathLookup(data, tmatch)
		if err != nil || value == nil {
			continue
		}
		tokenMap[token] = value
	}
	out := template
	for t, tv := range tokenMap {
		out = strings.ReplaceAll(out, t, fmt.Sprintf("%v", tv))
	}
	return out
}
