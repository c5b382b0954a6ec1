package notion

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ashureev/mockdy/internal/domain"
)

var (
	leetcodeRef   = regexp.MustCompile(`(?i)(?:LeetCode|Leetcode|LC)\s*#?\s*(\d+)`)
	designSubject = regexp.MustCompile(`(?i)(?:design|build)\s+(?:a\s+)?(?:system\s+for\s+)?["']?([^"'\n]{1,50})["']?`)
	quotedPhrase  = regexp.MustCompile(`["']([^"'\n]{1,50})["']`)
)

// Title derives the report page title from the session.
func Title(session domain.StoredSession) string {
	switch session.Type {
	case domain.InterviewTechnical:
		if p := session.ProblemInfo; p != nil {
			return fmt.Sprintf("Mock Leetcode %d. %s", p.ID, p.Name)
		}
		if m := leetcodeRef.FindStringSubmatch(session.FirstModelMessage()); m != nil {
			return "Mock Leetcode " + m[1]
		}
		return "Mock Leetcode"
	case domain.InterviewSystemDesign:
		first := session.FirstModelMessage()
		m := designSubject.FindStringSubmatch(first)
		if m == nil {
			m = quotedPhrase.FindStringSubmatch(first)
		}
		if m != nil && utf8.RuneCountInString(m[1]) > 3 {
			return "Design " + capitalize(strings.TrimSpace(m[1]))
		}
		return "Design System"
	default:
		return "Mock BQ"
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
