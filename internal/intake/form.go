// Package intake turns GitHub issue-form submissions into admission
// candidates.
package intake

import (
	"regexp"
	"strings"
)

// Form holds the answered sections of an issue form keyed by normalized
// header.
type Form map[string]string

var (
	nonKeyChars = regexp.MustCompile(`[^a-z0-9_]`)
	blankRuns   = regexp.MustCompile(`\n\s*\n\s*\n+`)
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
)

var noResponse = map[string]struct{}{
	"_no response_": {},
	"no response":   {},
}

// ParseIssueBody splits body into its "### Header" sections. Sections with no
// content are dropped, a leading "- [x]" checkbox marker is removed and
// anything after an HTML comment opener is discarded.
func ParseIssueBody(body string) Form {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	form := Form{}
	for _, section := range strings.Split("\n"+body, "\n### ") {
		section = strings.TrimSpace(section)
		section = strings.TrimSpace(strings.TrimPrefix(section, "###"))
		header, content, ok := strings.Cut(section, "\n")
		if !ok {
			continue
		}
		content = strings.TrimSpace(content)
		if rest, checked := strings.CutPrefix(content, "- [x]"); checked {
			content = strings.TrimSpace(rest)
		}
		if before, _, found := strings.Cut(content, "<!-- "); found {
			content = strings.TrimSpace(before)
		}
		key := FieldKey(header)
		if key == "" || content == "" {
			continue
		}
		form[key] = content
	}
	return form
}

// FieldKey normalizes a form header: lower case, spaces and slashes become
// underscores, anything else outside [a-z0-9_] is dropped.
func FieldKey(header string) string {
	key := strings.ToLower(strings.TrimSpace(header))
	key = strings.NewReplacer(" ", "_", "/", "_", "(", "", ")", "").Replace(key)
	return nonKeyChars.ReplaceAllString(key, "")
}

// Get returns the first non-placeholder answer among keys.
func (f Form) Get(keys ...string) string {
	for _, k := range keys {
		if v := CleanNoResponse(f[k]); v != "" {
			return v
		}
	}
	return ""
}

// CleanNoResponse drops GitHub's "_No response_" placeholder and collapses
// runs of blank lines and horizontal whitespace.
func CleanNoResponse(text string) string {
	cleaned := strings.TrimSpace(text)
	if _, placeholder := noResponse[strings.ToLower(cleaned)]; placeholder {
		return ""
	}
	cleaned = blankRuns.ReplaceAllString(cleaned, "\n\n")
	cleaned = spaceRuns.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Lines returns the non-empty trimmed lines of text.
func Lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
