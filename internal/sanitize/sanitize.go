package sanitize

import "strings"

// Slug derives a file-system friendly name from free text.
//
// Rules applied:
//   - Converts to lowercase
//   - Replaces every run of characters outside [a-z0-9] with a single "-"
//   - Trims leading/trailing "-"
//   - Truncates to maxLen bytes (maxLen <= 0 disables truncation)
//
// The result may be empty; callers skip generation in that case.
//
// Examples:
//
//	"Error Handling!"  -> "error-handling"
//	"  api  / routes " -> "api-routes"
//	"???"              -> ""
func Slug(s string, maxLen int) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('-')
			inRun = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return slug
}
